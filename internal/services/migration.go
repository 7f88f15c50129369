package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"einkauf/internal/amqp"
	"einkauf/internal/auth"
	"einkauf/internal/core"
)

// ErrAlreadyMigrated is returned when the local collections carry a
// completion marker and the caller did not force a re-run.
var ErrAlreadyMigrated = errors.New("local data already migrated")

// LocalSource is the slice of the local store the migration reads.
type LocalSource interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListItems(ctx context.Context) ([]core.Item, error)
	ListMarkets(ctx context.Context) ([]core.Market, error)
	ListPurchases(ctx context.Context) ([]core.Purchase, error)
	MigrationCompleted(ctx context.Context) (bool, error)
	MarkMigrationCompleted(ctx context.Context) error
}

// RemoteTarget is the user-scoped slice of the gateway the migration
// writes. Purchase headers and lines are inserted separately so a line
// that fails to resolve never blocks the rest of the purchase.
type RemoteTarget interface {
	CategoryCount(ctx context.Context) (int64, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	CreateMarket(ctx context.Context, m core.Market) (core.Market, error)
	CreateItem(ctx context.Context, it core.Item) (core.Item, error)
	InsertPurchaseHeader(ctx context.Context, p core.Purchase) (core.Purchase, error)
	InsertPurchaseItem(ctx context.Context, purchaseID string, li core.LineItem) error
}

// RoleSource resolves the caller's role on the hosted backend.
type RoleSource interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// Report counts what one migration run moved and what it skipped.
type Report struct {
	Categories    int `json:"categories"`
	Markets       int `json:"markets"`
	Items         int `json:"items"`
	Purchases     int `json:"purchases"`
	LineItems     int `json:"lineItems"`
	SkippedDupes  int `json:"skippedDuplicates"`
	SkippedLines  int `json:"skippedLineItems"`
	FailedHeaders int `json:"failedPurchases"`
}

// Preflight describes the state a migration run would start from.
type Preflight struct {
	Role            string `json:"role"`
	HasRemoteData   bool   `json:"hasRemoteData"`
	AlreadyMigrated bool   `json:"alreadyMigrated"`
	LocalPurchases  int    `json:"localPurchases"`
	LocalCategories int    `json:"localCategories"`
}

// Migrator drains the local collections into the remote gateway for one
// user. The run is resumable rather than transactional: every entity
// that can be moved is moved, duplicates are tolerated, and unresolvable
// line items are dropped with a count.
type Migrator struct {
	local      LocalSource
	remote     RemoteTarget
	roles      RoleSource
	amqpClient *amqp.Client
}

func NewMigrator(local LocalSource, remote RemoteTarget, roles RoleSource, amqpClient *amqp.Client) *Migrator {
	return &Migrator{
		local:      local,
		remote:     remote,
		roles:      roles,
		amqpClient: amqpClient,
	}
}

// CheckPreflight gathers the facts a caller needs before deciding to
// migrate. Role and remote-data probe are independent reads, so they
// run concurrently.
func (m *Migrator) CheckPreflight(ctx context.Context, session auth.Session) (Preflight, error) {
	if session.UserID == "" {
		return Preflight{}, auth.ErrNotAuthenticated
	}

	var pf Preflight

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		role, err := m.roles.RoleOf(gctx, session.UserID)
		if err != nil {
			return fmt.Errorf("resolve role: %w", err)
		}
		pf.Role = role
		return nil
	})
	g.Go(func() error {
		n, err := m.remote.CategoryCount(gctx)
		if err != nil {
			return fmt.Errorf("probe remote data: %w", err)
		}
		pf.HasRemoteData = n > 0
		return nil
	})
	if err := g.Wait(); err != nil {
		return Preflight{}, err
	}

	migrated, err := m.local.MigrationCompleted(ctx)
	if err != nil {
		return Preflight{}, fmt.Errorf("read migration marker: %w", err)
	}
	pf.AlreadyMigrated = migrated

	cats, err := m.local.ListCategories(ctx)
	if err != nil {
		return Preflight{}, fmt.Errorf("list local categories: %w", err)
	}
	purchases, err := m.local.ListPurchases(ctx)
	if err != nil {
		return Preflight{}, fmt.Errorf("list local purchases: %w", err)
	}
	pf.LocalCategories = len(cats)
	pf.LocalPurchases = len(purchases)

	return pf, nil
}

// Run migrates categories, markets, items, then purchases, in that
// order, so every reference can be remapped to its freshly minted remote
// id. Force re-runs a migration despite the completion marker;
// duplicate rejections from the gateway make that safe.
func (m *Migrator) Run(ctx context.Context, session auth.Session, force bool) (Report, error) {
	if session.UserID == "" {
		return Report{}, auth.ErrNotAuthenticated
	}

	migrated, err := m.local.MigrationCompleted(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read migration marker: %w", err)
	}
	if migrated && !force {
		return Report{}, ErrAlreadyMigrated
	}

	var report Report

	categoryIDs, err := m.migrateCategories(ctx, &report)
	if err != nil {
		return report, err
	}
	marketIDs, err := m.migrateMarkets(ctx, &report)
	if err != nil {
		return report, err
	}
	itemIDs, err := m.migrateItems(ctx, categoryIDs, &report)
	if err != nil {
		return report, err
	}
	if err := m.migratePurchases(ctx, itemIDs, marketIDs, &report); err != nil {
		return report, err
	}

	if err := m.local.MarkMigrationCompleted(ctx); err != nil {
		return report, fmt.Errorf("write migration marker: %w", err)
	}

	if m.amqpClient != nil {
		if err := m.amqpClient.PublishMigrationCompleted(ctx, session.UserID, report.Purchases); err != nil {
			slog.ErrorContext(ctx, "Failed to publish migration event",
				"userId", session.UserID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Migration finished",
		"userId", session.UserID,
		"categories", report.Categories,
		"markets", report.Markets,
		"items", report.Items,
		"purchases", report.Purchases,
		"skippedDuplicates", report.SkippedDupes,
		"skippedLineItems", report.SkippedLines)

	return report, nil
}

// migrateCategories copies local categories, injecting the reserved
// Pfand entry when the local set lacks it. The returned map resolves
// both local ids and names to remote ids; duplicates that already exist
// remotely are skipped and deliberately left unmapped.
func (m *Migrator) migrateCategories(ctx context.Context, report *Report) (map[string]string, error) {
	locals, err := m.local.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local categories: %w", err)
	}

	hasPfand := false
	for _, c := range locals {
		if core.IsPfand(c.Name) {
			hasPfand = true
			break
		}
	}
	if !hasPfand {
		locals = append(locals, core.Category{Name: core.PfandName})
	}

	ids := make(map[string]string)
	for _, c := range locals {
		created, err := m.remote.CreateCategory(ctx, core.Category{Name: c.Name})
		if err != nil {
			if errors.Is(err, core.ErrDuplicateName) {
				report.SkippedDupes++
				slog.WarnContext(ctx, "Category already exists remotely, skipping",
					"name", c.Name)
				continue
			}
			return nil, fmt.Errorf("migrate category %q: %w", c.Name, err)
		}
		if c.ID != "" {
			ids[c.ID] = created.ID
		}
		ids[c.Name] = created.ID
		report.Categories++
	}
	return ids, nil
}

func (m *Migrator) migrateMarkets(ctx context.Context, report *Report) (map[string]string, error) {
	locals, err := m.local.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local markets: %w", err)
	}

	ids := make(map[string]string)
	for _, mk := range locals {
		created, err := m.remote.CreateMarket(ctx, core.Market{Name: mk.Name, Location: mk.Location})
		if err != nil {
			if errors.Is(err, core.ErrDuplicateName) {
				report.SkippedDupes++
				slog.WarnContext(ctx, "Market already exists remotely, skipping",
					"name", mk.Name)
				continue
			}
			return nil, fmt.Errorf("migrate market %q: %w", mk.Name, err)
		}
		if mk.ID != "" {
			ids[mk.ID] = created.ID
		}
		ids[mk.Name] = created.ID
		report.Markets++
	}
	return ids, nil
}

// migrateItems remaps each item's category reference. The local field
// may hold a category id or a category name; when neither resolves, the
// item lands in the Pfand category rather than being dropped.
func (m *Migrator) migrateItems(ctx context.Context, categoryIDs map[string]string, report *Report) (map[string]string, error) {
	locals, err := m.local.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local items: %w", err)
	}

	ids := make(map[string]string)
	for _, it := range locals {
		categoryID, ok := categoryIDs[it.Category]
		if !ok {
			categoryID = categoryIDs[core.PfandName]
			if it.Category != "" {
				slog.WarnContext(ctx, "Item category unresolved, assigning Pfand",
					"item", it.Name, "category", it.Category)
			}
		}

		created, err := m.remote.CreateItem(ctx, core.Item{Name: it.Name, Category: categoryID})
		if err != nil {
			if errors.Is(err, core.ErrDuplicateName) {
				report.SkippedDupes++
				slog.WarnContext(ctx, "Item already exists remotely, skipping",
					"name", it.Name)
				continue
			}
			return nil, fmt.Errorf("migrate item %q: %w", it.Name, err)
		}
		if it.ID != "" {
			ids[it.ID] = created.ID
		}
		ids[it.Name] = created.ID
		report.Items++
	}
	return ids, nil
}

// migratePurchases copies headers and lines. A header that fails to
// insert is logged and skipped; a line whose item cannot be resolved is
// dropped and counted. Everything else keeps flowing.
func (m *Migrator) migratePurchases(ctx context.Context, itemIDs, marketIDs map[string]string, report *Report) error {
	locals, err := m.local.ListPurchases(ctx)
	if err != nil {
		return fmt.Errorf("list local purchases: %w", err)
	}

	for _, p := range locals {
		header := core.Purchase{
			Date:        p.Date,
			MarketName:  p.MarketName,
			TotalAmount: p.TotalAmount,
			CreatedAt:   p.CreatedAt,
		}
		if remoteMarket, ok := marketIDs[p.MarketID]; ok {
			header.MarketID = remoteMarket
		} else if remoteMarket, ok := marketIDs[p.MarketName]; ok {
			header.MarketID = remoteMarket
		}

		created, err := m.remote.InsertPurchaseHeader(ctx, header)
		if err != nil {
			report.FailedHeaders++
			slog.ErrorContext(ctx, "Failed to migrate purchase, continuing",
				"purchaseId", p.ID, "date", p.Date.DayKey(), "error", err)
			continue
		}
		report.Purchases++

		for _, li := range p.Items {
			itemID, ok := itemIDs[li.ItemID]
			if !ok {
				itemID, ok = itemIDs[li.ItemName]
			}
			if !ok {
				report.SkippedLines++
				continue
			}

			line := li
			line.ItemID = itemID
			if err := m.remote.InsertPurchaseItem(ctx, created.ID, line); err != nil {
				report.SkippedLines++
				slog.ErrorContext(ctx, "Failed to migrate line item, continuing",
					"purchaseId", created.ID, "item", li.ItemName, "error", err)
				continue
			}
			report.LineItems++
		}
	}
	return nil
}
