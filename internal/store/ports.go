// Package store defines the persistence ports shared by the local record
// store and the remote gateway. Services depend on these interfaces
// only; backend selection happens in internal/backend.
package store

import (
	"context"

	"einkauf/internal/core"
)

type (
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		RenameCategory(ctx context.Context, id, name string) error
		DeleteCategory(ctx context.Context, id string) error
	}

	ItemStore interface {
		ListItems(ctx context.Context) ([]core.Item, error)
		CreateItem(ctx context.Context, it core.Item) (core.Item, error)
		RenameItem(ctx context.Context, id, name string) error
		DeleteItem(ctx context.Context, id string) error
	}

	MarketStore interface {
		ListMarkets(ctx context.Context) ([]core.Market, error)
		CreateMarket(ctx context.Context, m core.Market) (core.Market, error)
		RenameMarket(ctx context.Context, id, name string) error
		DeleteMarket(ctx context.Context, id string) error
	}

	// PurchaseStore persists whole purchases. Purchases are created
	// atomically with all their line items and deleted wholesale; there
	// is no partial edit of a persisted purchase.
	PurchaseStore interface {
		ListPurchases(ctx context.Context) ([]core.Purchase, error)
		CreatePurchase(ctx context.Context, p core.Purchase) (core.Purchase, error)
		DeletePurchase(ctx context.Context, id string) error
	}
)

// Store is the composed persistence surface a backend must provide.
type Store interface {
	CategoryStore
	ItemStore
	MarketStore
	PurchaseStore
}
