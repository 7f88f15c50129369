package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"einkauf/internal/core"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	categories []core.Category
	items      []core.Item
	markets    []core.Market
	purchases  []core.Purchase
	nextID     int
	failCreate error
}

func (m *memStore) mint() string {
	m.nextID++
	return fmt.Sprintf("id%d", m.nextID)
}

func (m *memStore) ListCategories(context.Context) ([]core.Category, error) {
	return m.categories, nil
}

func (m *memStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if m.failCreate != nil {
		return core.Category{}, m.failCreate
	}
	for _, existing := range m.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return core.Category{}, core.ErrDuplicateName
		}
	}
	c.ID = m.mint()
	m.categories = append(m.categories, c)
	return c, nil
}

func (m *memStore) RenameCategory(_ context.Context, id, name string) error {
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories[i].Name = name
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteCategory(_ context.Context, id string) error {
	for i := range m.categories {
		if m.categories[i].ID == id {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ListItems(context.Context) ([]core.Item, error) { return m.items, nil }

func (m *memStore) CreateItem(_ context.Context, it core.Item) (core.Item, error) {
	it.ID = m.mint()
	m.items = append(m.items, it)
	return it, nil
}

func (m *memStore) RenameItem(_ context.Context, id, name string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Name = name
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteItem(_ context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ListMarkets(context.Context) ([]core.Market, error) { return m.markets, nil }

func (m *memStore) CreateMarket(_ context.Context, mk core.Market) (core.Market, error) {
	mk.ID = m.mint()
	m.markets = append(m.markets, mk)
	return mk, nil
}

func (m *memStore) RenameMarket(_ context.Context, id, name string) error {
	for i := range m.markets {
		if m.markets[i].ID == id {
			m.markets[i].Name = name
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteMarket(_ context.Context, id string) error {
	for i := range m.markets {
		if m.markets[i].ID == id {
			m.markets = append(m.markets[:i], m.markets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) ListPurchases(context.Context) ([]core.Purchase, error) {
	return m.purchases, nil
}

func (m *memStore) CreatePurchase(_ context.Context, p core.Purchase) (core.Purchase, error) {
	p.ID = m.mint()
	m.purchases = append(m.purchases, p)
	return p, nil
}

func (m *memStore) DeletePurchase(_ context.Context, id string) error {
	for i := range m.purchases {
		if m.purchases[i].ID == id {
			m.purchases = append(m.purchases[:i], m.purchases[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func TestCategoriesEnsuresPfand(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	svc := NewCatalogService(st)

	cats, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != core.PfandName {
		t.Fatalf("cats = %+v, want just Pfand", cats)
	}

	// A second list does not create a second Pfand.
	cats, err = svc.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Errorf("Pfand duplicated: %+v", cats)
	}
}

func TestCreateCategoryGuards(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(&memStore{})

	if _, err := svc.CreateCategory(ctx, core.Category{Name: "  "}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name: got %v", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{Name: "pfand"}); !errors.Is(err, core.ErrReservedCategory) {
		t.Errorf("reserved name: got %v", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{Name: " Pfand "}); !errors.Is(err, core.ErrReservedCategory) {
		t.Errorf("padded reserved name: got %v", err)
	}
	if _, err := svc.CreateCategory(ctx, core.Category{Name: "Fruits"}); err != nil {
		t.Errorf("valid name: got %v", err)
	}
}

func TestPfandRenameAndDeleteRejected(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	svc := NewCatalogService(st)

	if err := svc.EnsurePfand(ctx); err != nil {
		t.Fatal(err)
	}
	pfandID := st.categories[0].ID

	fruits, err := svc.CreateCategory(ctx, core.Category{Name: "Fruits"})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.RenameCategory(ctx, pfandID, "Deposits"); !errors.Is(err, core.ErrReservedCategory) {
		t.Errorf("rename Pfand: got %v", err)
	}
	if err := svc.DeleteCategory(ctx, pfandID); !errors.Is(err, core.ErrReservedCategory) {
		t.Errorf("delete Pfand: got %v", err)
	}
	if err := svc.RenameCategory(ctx, fruits.ID, "Pfand"); !errors.Is(err, core.ErrReservedCategory) {
		t.Errorf("rename onto Pfand: got %v", err)
	}

	if err := svc.RenameCategory(ctx, fruits.ID, "Obst"); err != nil {
		t.Errorf("plain rename: got %v", err)
	}
	if err := svc.DeleteCategory(ctx, fruits.ID); err != nil {
		t.Errorf("plain delete: got %v", err)
	}
}

func TestCatalogItemAndMarketValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(&memStore{})

	if _, err := svc.CreateItem(ctx, core.Item{Name: ""}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty item name: got %v", err)
	}
	if _, err := svc.CreateMarket(ctx, core.Market{Name: "\t"}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty market name: got %v", err)
	}
	if err := svc.RenameItem(ctx, "x", ""); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("rename item to empty: got %v", err)
	}

	it, err := svc.CreateItem(ctx, core.Item{Name: "Milk", Category: "c1"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if it.ID == "" {
		t.Error("item id not assigned")
	}
}
