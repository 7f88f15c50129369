package services

import (
	"context"
	"fmt"
	"log/slog"

	"einkauf/internal/amqp"
	"einkauf/internal/core"
	applog "einkauf/internal/log"
	"einkauf/internal/store"
)

// PurchaseService records purchases and announces them on the event
// bus. The bus is optional; recording never fails because publishing
// did.
type PurchaseService struct {
	store      store.Store
	amqpClient *amqp.Client
}

func NewPurchaseService(st store.Store, amqpClient *amqp.Client) *PurchaseService {
	return &PurchaseService{
		store:      st,
		amqpClient: amqpClient,
	}
}

func (s *PurchaseService) Purchases(ctx context.Context) ([]core.Purchase, error) {
	return s.store.ListPurchases(ctx)
}

// Record validates the purchase, rederives all totals from quantity and
// unit price, and saves it.
func (s *PurchaseService) Record(ctx context.Context, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	p.Recalculate()

	created, err := s.store.CreatePurchase(ctx, p)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("save purchase: %w", err)
	}

	fields := applog.NewFields().
		WithComponent(applog.ComponentPurchase).
		WithOperation(applog.OpCreate).
		WithPurchase(created.ID, created.TotalAmount, len(created.Items))
	applog.FromContext(ctx).InfoContext(ctx, "Purchase recorded", fields.ToSlice()...)

	if s.amqpClient != nil {
		if err := s.amqpClient.PublishPurchaseRecorded(ctx, created.ID, created.TotalAmount); err != nil {
			// The purchase is saved; the event is best effort.
			slog.ErrorContext(ctx, "Failed to publish purchase event",
				"purchaseId", created.ID, "error", err)
		}
	}

	return created, nil
}

func (s *PurchaseService) Delete(ctx context.Context, id string) error {
	return s.store.DeletePurchase(ctx, id)
}
