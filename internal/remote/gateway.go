// Package remote implements the hosted relational backend: a SQLite
// database in which every row is owned by a user and every query is
// filtered by the owning user's id.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"einkauf/internal/core"
)

type Gateway struct {
	db *sql.DB
}

// Open prepares the gateway database, creating the file and running
// schema migrations as needed.
func Open(dbPath string) (*Gateway, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Gateway{db: db}, nil
}

func (g *Gateway) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

// ForUser returns a view of the gateway scoped to one user. The view
// implements the store ports; every statement it issues carries the
// user id filter.
func (g *Gateway) ForUser(userID string) *UserStore {
	return &UserStore{g: g, userID: userID}
}

// RoleOf returns the role recorded for the user in the user_roles side
// table, defaulting to "user" when no row exists.
func (g *Gateway) RoleOf(ctx context.Context, userID string) (string, error) {
	var role string
	err := g.db.QueryRowContext(ctx,
		"SELECT role FROM user_roles WHERE user_id = ?", userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "user", nil
	}
	if err != nil {
		return "", fmt.Errorf("query role: %w", err)
	}
	return role, nil
}

// SetRole records or replaces the user's role.
func (g *Gateway) SetRole(ctx context.Context, userID, role string) error {
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET role = excluded.role`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// UserStore is a user-scoped view of the gateway.
type UserStore struct {
	g      *Gateway
	userID string
}

func (s *UserStore) UserID() string { return s.userID }

// wrapConstraint maps SQLite uniqueness rejections onto the domain
// sentinel so callers can treat duplicates as recoverable.
func wrapConstraint(err error, verb string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return core.ErrDuplicateName
	}
	return fmt.Errorf("%s: %w", verb, err)
}

// CategoryCount is the existence probe used to decide whether the user
// already holds remote data.
func (s *UserStore) CategoryCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.g.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE user_id = ?", s.userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Categories

func (s *UserStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.g.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM categories WHERE user_id = ? ORDER BY created_at",
		s.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt.Time); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *UserStore) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = core.Now()
	}
	_, err := s.g.db.ExecContext(ctx,
		"INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		c.ID, s.userID, c.Name, c.CreatedAt.Time,
	)
	if err != nil {
		return core.Category{}, wrapConstraint(err, "insert category")
	}
	return c, nil
}

func (s *UserStore) RenameCategory(ctx context.Context, id, name string) error {
	res, err := s.g.db.ExecContext(ctx,
		"UPDATE categories SET name = ? WHERE id = ? AND user_id = ?",
		name, id, s.userID,
	)
	if err != nil {
		return wrapConstraint(err, "rename category")
	}
	return requireRow(res)
}

func (s *UserStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.g.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, s.userID,
	)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

// Items

func (s *UserStore) ListItems(ctx context.Context) ([]core.Item, error) {
	rows, err := s.g.db.QueryContext(ctx,
		"SELECT id, name, category_id, created_at FROM items WHERE user_id = ? ORDER BY created_at",
		s.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []core.Item
	for rows.Next() {
		var it core.Item
		var category sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &category, &it.CreatedAt.Time); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Category = category.String
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *UserStore) CreateItem(ctx context.Context, it core.Item) (core.Item, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = core.Now()
	}
	var category sql.NullString
	if it.Category != "" {
		category = sql.NullString{String: it.Category, Valid: true}
	}
	_, err := s.g.db.ExecContext(ctx,
		"INSERT INTO items (id, user_id, name, category_id, created_at) VALUES (?, ?, ?, ?, ?)",
		it.ID, s.userID, it.Name, category, it.CreatedAt.Time,
	)
	if err != nil {
		return core.Item{}, wrapConstraint(err, "insert item")
	}
	return it, nil
}

func (s *UserStore) RenameItem(ctx context.Context, id, name string) error {
	res, err := s.g.db.ExecContext(ctx,
		"UPDATE items SET name = ? WHERE id = ? AND user_id = ?",
		name, id, s.userID,
	)
	if err != nil {
		return wrapConstraint(err, "rename item")
	}
	return requireRow(res)
}

func (s *UserStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.g.db.ExecContext(ctx,
		"DELETE FROM items WHERE id = ? AND user_id = ?", id, s.userID,
	)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return requireRow(res)
}

// Markets

func (s *UserStore) ListMarkets(ctx context.Context) ([]core.Market, error) {
	rows, err := s.g.db.QueryContext(ctx,
		"SELECT id, name, location, created_at FROM markets WHERE user_id = ? ORDER BY created_at",
		s.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	defer rows.Close()

	var out []core.Market
	for rows.Next() {
		var m core.Market
		var location sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &location, &m.CreatedAt.Time); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		m.Location = location.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *UserStore) CreateMarket(ctx context.Context, m core.Market) (core.Market, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = core.Now()
	}
	var location sql.NullString
	if m.Location != "" {
		location = sql.NullString{String: m.Location, Valid: true}
	}
	_, err := s.g.db.ExecContext(ctx,
		"INSERT INTO markets (id, user_id, name, location, created_at) VALUES (?, ?, ?, ?, ?)",
		m.ID, s.userID, m.Name, location, m.CreatedAt.Time,
	)
	if err != nil {
		return core.Market{}, wrapConstraint(err, "insert market")
	}
	return m, nil
}

func (s *UserStore) RenameMarket(ctx context.Context, id, name string) error {
	res, err := s.g.db.ExecContext(ctx,
		"UPDATE markets SET name = ? WHERE id = ? AND user_id = ?",
		name, id, s.userID,
	)
	if err != nil {
		return wrapConstraint(err, "rename market")
	}
	return requireRow(res)
}

func (s *UserStore) DeleteMarket(ctx context.Context, id string) error {
	res, err := s.g.db.ExecContext(ctx,
		"DELETE FROM markets WHERE id = ? AND user_id = ?", id, s.userID,
	)
	if err != nil {
		return fmt.Errorf("delete market: %w", err)
	}
	return requireRow(res)
}

// Purchases

func (s *UserStore) ListPurchases(ctx context.Context) ([]core.Purchase, error) {
	rows, err := s.g.db.QueryContext(ctx,
		`SELECT id, market_id, market_name, date, total_amount, created_at
		 FROM purchases WHERE user_id = ? ORDER BY date`,
		s.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []core.Purchase
	index := make(map[string]int)
	for rows.Next() {
		var p core.Purchase
		var marketID, marketName sql.NullString
		if err := rows.Scan(&p.ID, &marketID, &marketName, &p.Date.Time, &p.TotalAmount, &p.CreatedAt.Time); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.MarketID = marketID.String
		p.MarketName = marketName.String
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	lineRows, err := s.g.db.QueryContext(ctx,
		`SELECT pi.purchase_id, pi.item_id, pi.item_name, pi.quantity, pi.unit_price, pi.total_price
		 FROM purchase_items pi
		 JOIN purchases p ON p.id = pi.purchase_id
		 WHERE p.user_id = ?
		 ORDER BY pi.rowid`,
		s.userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchase items: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var purchaseID string
		var itemID sql.NullString
		var li core.LineItem
		if err := lineRows.Scan(&purchaseID, &itemID, &li.ItemName, &li.Quantity, &li.UnitPrice, &li.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		li.ItemID = itemID.String
		if i, ok := index[purchaseID]; ok {
			out[i].Items = append(out[i].Items, li)
		}
	}
	return out, lineRows.Err()
}

// CreatePurchase inserts the purchase header and all its line items in
// one transaction: a purchase is never visible half-written.
func (s *UserStore) CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = core.Now()
	}

	tx, err := s.g.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var marketID, marketName sql.NullString
	if p.MarketID != "" {
		marketID = sql.NullString{String: p.MarketID, Valid: true}
	}
	if p.MarketName != "" {
		marketName = sql.NullString{String: p.MarketName, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchases (id, user_id, market_id, market_name, date, total_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, s.userID, marketID, marketName, p.Date.Time, p.TotalAmount, p.CreatedAt.Time,
	)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}

	for _, li := range p.Items {
		if err := insertLineItem(ctx, tx, p.ID, li); err != nil {
			return core.Purchase{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Purchase{}, fmt.Errorf("commit purchase: %w", err)
	}

	slog.InfoContext(ctx, "Purchase saved",
		"id", p.ID,
		"lines", len(p.Items),
		"total", p.TotalAmount)
	return p, nil
}

func insertLineItem(ctx context.Context, tx *sql.Tx, purchaseID string, li core.LineItem) error {
	var itemID sql.NullString
	if li.ItemID != "" {
		itemID = sql.NullString{String: li.ItemID, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO purchase_items (id, purchase_id, item_id, item_name, quantity, unit_price, total_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), purchaseID, itemID, li.ItemName, li.Quantity, li.UnitPrice, li.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("insert purchase item: %w", err)
	}
	return nil
}

// InsertPurchaseHeader writes a purchase row without line items; the
// migration routine attaches lines one by one as their item references
// resolve.
func (s *UserStore) InsertPurchaseHeader(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = core.Now()
	}
	var marketID, marketName sql.NullString
	if p.MarketID != "" {
		marketID = sql.NullString{String: p.MarketID, Valid: true}
	}
	if p.MarketName != "" {
		marketName = sql.NullString{String: p.MarketName, Valid: true}
	}
	_, err := s.g.db.ExecContext(ctx,
		`INSERT INTO purchases (id, user_id, market_id, market_name, date, total_amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, s.userID, marketID, marketName, p.Date.Time, p.TotalAmount, p.CreatedAt.Time,
	)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}
	return p, nil
}

// InsertPurchaseItem attaches one line item to an existing purchase.
func (s *UserStore) InsertPurchaseItem(ctx context.Context, purchaseID string, li core.LineItem) error {
	var itemID sql.NullString
	if li.ItemID != "" {
		itemID = sql.NullString{String: li.ItemID, Valid: true}
	}
	_, err := s.g.db.ExecContext(ctx,
		`INSERT INTO purchase_items (id, purchase_id, item_id, item_name, quantity, unit_price, total_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), purchaseID, itemID, li.ItemName, li.Quantity, li.UnitPrice, li.TotalPrice,
	)
	if err != nil {
		return fmt.Errorf("insert purchase item: %w", err)
	}
	return nil
}

func (s *UserStore) DeletePurchase(ctx context.Context, id string) error {
	// purchase_items rows go with the header via ON DELETE CASCADE.
	res, err := s.g.db.ExecContext(ctx,
		"DELETE FROM purchases WHERE id = ? AND user_id = ?", id, s.userID,
	)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
