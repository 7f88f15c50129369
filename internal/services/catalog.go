// Package services orchestrates the domain operations over the storage
// ports: catalog upkeep, purchase recording, and the local-to-remote
// migration routine.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"einkauf/internal/core"
	"einkauf/internal/store"
)

// CatalogService guards the category, item, and market collections.
// The Pfand category is managed here: it is recreated when missing and
// shielded from rename and delete on every backend.
type CatalogService struct {
	store store.Store
}

func NewCatalogService(st store.Store) *CatalogService {
	return &CatalogService{store: st}
}

// Categories lists the categories, ensuring the reserved Pfand entry
// exists first.
func (s *CatalogService) Categories(ctx context.Context) ([]core.Category, error) {
	if err := s.EnsurePfand(ctx); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx)
}

// EnsurePfand recreates the reserved category when it is missing. Losing
// the race to a concurrent creator is fine.
func (s *CatalogService) EnsurePfand(ctx context.Context) error {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if core.IsPfand(c.Name) {
			return nil
		}
	}

	_, err = s.store.CreateCategory(ctx, core.Category{Name: core.PfandName})
	if err != nil && !errors.Is(err, core.ErrDuplicateName) {
		return fmt.Errorf("recreate reserved category: %w", err)
	}
	if err == nil {
		slog.InfoContext(ctx, "Recreated reserved category", "name", core.PfandName)
	}
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if core.IsPfand(c.Name) {
		return core.Category{}, core.ErrReservedCategory
	}
	return s.store.CreateCategory(ctx, c)
}

func (s *CatalogService) RenameCategory(ctx context.Context, id, name string) error {
	if err := (core.Category{Name: name}).Validate(); err != nil {
		return err
	}
	if core.IsPfand(name) {
		return core.ErrReservedCategory
	}
	current, err := s.findCategory(ctx, id)
	if err != nil {
		return err
	}
	if core.IsPfand(current.Name) {
		return core.ErrReservedCategory
	}
	return s.store.RenameCategory(ctx, id, name)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	current, err := s.findCategory(ctx, id)
	if err != nil {
		return err
	}
	if core.IsPfand(current.Name) {
		return core.ErrReservedCategory
	}
	return s.store.DeleteCategory(ctx, id)
}

func (s *CatalogService) findCategory(ctx context.Context, id string) (core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

// Items

func (s *CatalogService) Items(ctx context.Context) ([]core.Item, error) {
	return s.store.ListItems(ctx)
}

func (s *CatalogService) CreateItem(ctx context.Context, it core.Item) (core.Item, error) {
	if err := it.Validate(); err != nil {
		return core.Item{}, err
	}
	return s.store.CreateItem(ctx, it)
}

func (s *CatalogService) RenameItem(ctx context.Context, id, name string) error {
	if err := (core.Item{Name: name}).Validate(); err != nil {
		return err
	}
	return s.store.RenameItem(ctx, id, name)
}

func (s *CatalogService) DeleteItem(ctx context.Context, id string) error {
	return s.store.DeleteItem(ctx, id)
}

// Markets

func (s *CatalogService) Markets(ctx context.Context) ([]core.Market, error) {
	return s.store.ListMarkets(ctx)
}

func (s *CatalogService) CreateMarket(ctx context.Context, m core.Market) (core.Market, error) {
	if err := m.Validate(); err != nil {
		return core.Market{}, err
	}
	return s.store.CreateMarket(ctx, m)
}

func (s *CatalogService) RenameMarket(ctx context.Context, id, name string) error {
	if err := (core.Market{Name: name}).Validate(); err != nil {
		return err
	}
	return s.store.RenameMarket(ctx, id, name)
}

func (s *CatalogService) DeleteMarket(ctx context.Context, id string) error {
	return s.store.DeleteMarket(ctx, id)
}
