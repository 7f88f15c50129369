// Package localstore persists the entity collections as string-keyed JSON
// blobs on disk, one file per collection, mirroring the browser-storage
// era of the tracker. Every mutation rewrites the whole collection;
// last writer wins. A single mutex serializes access, which is enough for
// the single-user deployments this backend targets.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"einkauf/internal/core"
)

// Collection keys. The camelCase names are canonical; the hyphenated
// variants were written by older releases and are still read as a
// fallback.
const (
	keyCategories = "groceryCategories"
	keyItems      = "groceryItems"
	keyMarkets    = "groceryMarkets"
	keyPurchases  = "groceryPurchases"
	keyMigrated   = "migrationCompleted"
)

var legacyKeys = map[string]string{
	keyCategories: "grocery-categories",
	keyItems:      "grocery-items",
	keyMarkets:    "grocery-markets",
	keyPurchases:  "grocery-purchases",
}

type Store struct {
	mu  sync.Mutex
	dir string
}

// Open prepares a store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// readKey returns the raw blob for key, falling back to the legacy
// hyphenated file name. The second result reports whether the blob came
// from the legacy file and should be rewritten under the canonical key.
func (s *Store) readKey(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err == nil {
		return data, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	legacy, ok := legacyKeys[key]
	if !ok {
		return nil, false, nil
	}
	data, err = os.ReadFile(s.path(legacy))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", legacy, err)
	}
	return data, true, nil
}

func (s *Store) writeKey(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func loadCollection[T any](s *Store, key string) ([]T, error) {
	data, fromLegacy, err := s.readKey(key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if fromLegacy {
		// Self-healing rename onto the canonical key.
		if err := s.writeKey(key, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Categories

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadCollection[core.Category](s, keyCategories)
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats, err := loadCollection[core.Category](s, keyCategories)
	if err != nil {
		return core.Category{}, err
	}
	for _, existing := range cats {
		if strings.EqualFold(existing.Name, c.Name) {
			return core.Category{}, core.ErrDuplicateName
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = core.Now()
	}
	cats = append(cats, c)
	if err := s.writeKey(keyCategories, cats); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *Store) RenameCategory(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats, err := loadCollection[core.Category](s, keyCategories)
	if err != nil {
		return err
	}
	for _, existing := range cats {
		if existing.ID != id && strings.EqualFold(existing.Name, name) {
			return core.ErrDuplicateName
		}
	}
	for i := range cats {
		if cats[i].ID == id {
			cats[i].Name = name
			return s.writeKey(keyCategories, cats)
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cats, err := loadCollection[core.Category](s, keyCategories)
	if err != nil {
		return err
	}
	for i := range cats {
		if cats[i].ID == id {
			cats = append(cats[:i], cats[i+1:]...)
			return s.writeKey(keyCategories, cats)
		}
	}
	return core.ErrNotFound
}

// Items

func (s *Store) ListItems(_ context.Context) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadCollection[core.Item](s, keyItems)
}

func (s *Store) CreateItem(_ context.Context, it core.Item) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := loadCollection[core.Item](s, keyItems)
	if err != nil {
		return core.Item{}, err
	}
	for _, existing := range items {
		if strings.EqualFold(existing.Name, it.Name) {
			return core.Item{}, core.ErrDuplicateName
		}
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = core.Now()
	}
	items = append(items, it)
	if err := s.writeKey(keyItems, items); err != nil {
		return core.Item{}, err
	}
	return it, nil
}

func (s *Store) RenameItem(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := loadCollection[core.Item](s, keyItems)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == id {
			items[i].Name = name
			return s.writeKey(keyItems, items)
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := loadCollection[core.Item](s, keyItems)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == id {
			items = append(items[:i], items[i+1:]...)
			return s.writeKey(keyItems, items)
		}
	}
	return core.ErrNotFound
}

// Markets

func (s *Store) ListMarkets(_ context.Context) ([]core.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadCollection[core.Market](s, keyMarkets)
}

func (s *Store) CreateMarket(_ context.Context, m core.Market) (core.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	markets, err := loadCollection[core.Market](s, keyMarkets)
	if err != nil {
		return core.Market{}, err
	}
	for _, existing := range markets {
		if strings.EqualFold(existing.Name, m.Name) {
			return core.Market{}, core.ErrDuplicateName
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = core.Now()
	}
	markets = append(markets, m)
	if err := s.writeKey(keyMarkets, markets); err != nil {
		return core.Market{}, err
	}
	return m, nil
}

func (s *Store) RenameMarket(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	markets, err := loadCollection[core.Market](s, keyMarkets)
	if err != nil {
		return err
	}
	for i := range markets {
		if markets[i].ID == id {
			markets[i].Name = name
			return s.writeKey(keyMarkets, markets)
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteMarket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	markets, err := loadCollection[core.Market](s, keyMarkets)
	if err != nil {
		return err
	}
	for i := range markets {
		if markets[i].ID == id {
			markets = append(markets[:i], markets[i+1:]...)
			return s.writeKey(keyMarkets, markets)
		}
	}
	return core.ErrNotFound
}

// Purchases

// ListPurchases loads the purchase collection, upgrading the legacy
// single-item-per-record shape in place when detected.
func (s *Store) ListPurchases(_ context.Context) ([]core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPurchasesLocked()
}

func (s *Store) loadPurchasesLocked() ([]core.Purchase, error) {
	data, fromLegacy, err := s.readKey(keyPurchases)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	purchases, upgraded, err := NormalizePurchases(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", keyPurchases, err)
	}
	if upgraded || fromLegacy {
		if err := s.writeKey(keyPurchases, purchases); err != nil {
			return nil, err
		}
	}
	return purchases, nil
}

func (s *Store) CreatePurchase(_ context.Context, p core.Purchase) (core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purchases, err := s.loadPurchasesLocked()
	if err != nil {
		return core.Purchase{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = core.Now()
	}
	purchases = append(purchases, p)
	if err := s.writeKey(keyPurchases, purchases); err != nil {
		return core.Purchase{}, err
	}
	return p, nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	purchases, err := s.loadPurchasesLocked()
	if err != nil {
		return err
	}
	for i := range purchases {
		if purchases[i].ID == id {
			purchases = append(purchases[:i], purchases[i+1:]...)
			return s.writeKey(keyPurchases, purchases)
		}
	}
	return core.ErrNotFound
}

// Migration marker

type migrationMarker struct {
	CompletedAt core.Timestamp `json:"completedAt"`
}

// MigrationCompleted reports whether a migration run has been recorded.
func (s *Store) MigrationCompleted(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _, err := s.readKey(keyMigrated)
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}

// MarkMigrationCompleted records that the local collections have been
// drained into the remote gateway.
func (s *Store) MarkMigrationCompleted(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeKey(keyMigrated, migrationMarker{CompletedAt: core.Now()})
}
