// Package worker consumes the service's AMQP events and journals them
// for auditing.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"einkauf/internal/amqp"
)

// EventWorker appends every consumed event to a JSON-lines journal and
// keeps per-kind counters for the periodic status line.
type EventWorker struct {
	journalPath string

	mu     sync.Mutex
	counts map[string]int
}

func NewEventWorker(journalPath string) (*EventWorker, error) {
	if err := os.MkdirAll(filepath.Dir(journalPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &EventWorker{
		journalPath: journalPath,
		counts:      make(map[string]int),
	}, nil
}

// HandleEvent journals one event. A write failure is returned so the
// broker redelivers the message.
func (w *EventWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	line, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.journalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	w.counts[event.Kind]++

	switch event.Kind {
	case amqp.KindPurchaseRecorded:
		slog.InfoContext(ctx, "Journaled purchase event",
			"purchaseId", event.PurchaseID,
			"totalAmount", event.TotalAmount)
	case amqp.KindMigrationCompleted:
		slog.InfoContext(ctx, "Journaled migration event",
			"userId", event.UserID,
			"purchases", event.Purchases)
	default:
		slog.WarnContext(ctx, "Journaled event of unknown kind", "kind", event.Kind)
	}
	return nil
}

// Counts returns a copy of the per-kind event counters.
func (w *EventWorker) Counts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}
