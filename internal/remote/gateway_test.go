package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"einkauf/internal/core"
)

func openGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := Open(filepath.Join(t.TempDir(), "einkauf.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestCategoryScoping(t *testing.T) {
	ctx := context.Background()
	g := openGateway(t)
	alice := g.ForUser("alice")
	bob := g.ForUser("bob")

	if _, err := alice.CreateCategory(ctx, core.Category{Name: "Fruits"}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	// Same name under another user is fine; under the same user it is not,
	// regardless of case.
	if _, err := bob.CreateCategory(ctx, core.Category{Name: "Fruits"}); err != nil {
		t.Fatalf("cross-user create: %v", err)
	}
	if _, err := alice.CreateCategory(ctx, core.Category{Name: "fruits"}); !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("duplicate create: got %v", err)
	}

	cats, err := alice.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Errorf("alice sees %d categories, want 1", len(cats))
	}

	n, err := bob.CategoryCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("bob count = %d, want 1", n)
	}
}

func TestRenameAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	g := openGateway(t)
	s := g.ForUser("u1")

	if err := s.RenameCategory(ctx, "missing", "X"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("rename missing: got %v", err)
	}
	if err := s.DeleteMarket(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete missing: got %v", err)
	}

	// A row owned by another user is invisible, so touching it reports
	// not-found rather than leaking.
	other, err := g.ForUser("u2").CreateCategory(ctx, core.Category{Name: "Snacks"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCategory(ctx, other.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user delete: got %v", err)
	}
}

func TestPurchaseRoundtrip(t *testing.T) {
	ctx := context.Background()
	g := openGateway(t)
	s := g.ForUser("u1")

	market, err := s.CreateMarket(ctx, core.Market{Name: "Rewe", Location: "Mitte"})
	if err != nil {
		t.Fatal(err)
	}
	item, err := s.CreateItem(ctx, core.Item{Name: "Milk"})
	if err != nil {
		t.Fatal(err)
	}

	p := core.Purchase{
		Date:       core.Now(),
		MarketID:   market.ID,
		MarketName: market.Name,
		Items: []core.LineItem{
			{ItemID: item.ID, ItemName: "Milk", Quantity: 2, UnitPrice: 1.25, TotalPrice: 2.50},
			{ItemName: "Loose carrots", Quantity: 1, UnitPrice: 0.80, TotalPrice: 0.80},
		},
		TotalAmount: 3.30,
	}
	created, err := s.CreatePurchase(ctx, p)
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	purchases, err := s.ListPurchases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(purchases) != 1 {
		t.Fatalf("purchases = %d, want 1", len(purchases))
	}
	got := purchases[0]
	if got.ID != created.ID || got.MarketName != "Rewe" {
		t.Errorf("purchase = %+v", got)
	}
	if len(got.Items) != 2 {
		t.Fatalf("lines = %d, want 2", len(got.Items))
	}
	if got.Items[0].ItemID != item.ID || got.Items[1].ItemID != "" {
		t.Errorf("line item ids = %q, %q", got.Items[0].ItemID, got.Items[1].ItemID)
	}

	if err := s.DeletePurchase(ctx, created.ID); err != nil {
		t.Fatalf("DeletePurchase: %v", err)
	}
	purchases, err = s.ListPurchases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(purchases) != 0 {
		t.Errorf("lines survived delete: %+v", purchases)
	}
}

func TestPurchaseHeaderAndLines(t *testing.T) {
	ctx := context.Background()
	g := openGateway(t)
	s := g.ForUser("u1")

	header, err := s.InsertPurchaseHeader(ctx, core.Purchase{Date: core.Now(), TotalAmount: 1.20})
	if err != nil {
		t.Fatalf("InsertPurchaseHeader: %v", err)
	}
	if err := s.InsertPurchaseItem(ctx, header.ID, core.LineItem{
		ItemName: "Bread", Quantity: 1, UnitPrice: 1.20, TotalPrice: 1.20,
	}); err != nil {
		t.Fatalf("InsertPurchaseItem: %v", err)
	}

	purchases, err := s.ListPurchases(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(purchases) != 1 || len(purchases[0].Items) != 1 {
		t.Fatalf("purchases = %+v", purchases)
	}
}

func TestRoles(t *testing.T) {
	ctx := context.Background()
	g := openGateway(t)

	role, err := g.RoleOf(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if role != "user" {
		t.Errorf("default role = %q, want user", role)
	}

	if err := g.SetRole(ctx, "alice", "admin"); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	role, err = g.RoleOf(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if role != "admin" {
		t.Errorf("role = %q, want admin", role)
	}

	// Upsert replaces.
	if err := g.SetRole(ctx, "alice", "user"); err != nil {
		t.Fatal(err)
	}
	role, _ = g.RoleOf(ctx, "alice")
	if role != "user" {
		t.Errorf("role after downgrade = %q", role)
	}
}
