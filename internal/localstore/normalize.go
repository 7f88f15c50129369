package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"einkauf/internal/core"
)

// purchaseRecord is the envelope both persisted purchase shapes decode
// into. The current shape carries an items collection; the legacy shape
// carried one itemId/amount pair per record. Exactly one of the two
// branches is populated, and the branch taken is decided once for the
// whole collection.
type purchaseRecord struct {
	ID        string         `json:"id"`
	Date      core.Timestamp `json:"date"`
	CreatedAt core.Timestamp `json:"createdAt"`

	// Current shape.
	MarketID    string          `json:"marketId,omitempty"`
	MarketName  string          `json:"marketName,omitempty"`
	Items       []core.LineItem `json:"items,omitempty"`
	TotalAmount float64         `json:"totalAmount,omitempty"`

	// Legacy shape.
	ItemID   string  `json:"itemId,omitempty"`
	ItemName string  `json:"itemName,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// NormalizePurchases decodes a raw purchase collection and upgrades it
// from the legacy shape when necessary. The second result reports whether
// an upgrade happened, so callers can persist the healed collection.
// Normalizing a current-format collection is a no-op.
func NormalizePurchases(raw []byte) ([]core.Purchase, bool, error) {
	var records []purchaseRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("decode purchases: %w", err)
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	// A non-empty collection whose first record carries a direct itemId
	// is in the legacy one-item-per-record shape throughout.
	if records[0].ItemID != "" {
		return convertLegacy(records), true, nil
	}

	purchases := make([]core.Purchase, 0, len(records))
	for _, r := range records {
		purchases = append(purchases, core.Purchase{
			ID:          r.ID,
			Date:        r.Date,
			MarketID:    r.MarketID,
			MarketName:  r.MarketName,
			Items:       r.Items,
			TotalAmount: r.TotalAmount,
			CreatedAt:   r.CreatedAt,
		})
	}
	return purchases, false, nil
}

// convertLegacy groups legacy records by calendar day into one purchase
// per day: one line item per record, quantity fixed at 1, unit and total
// price equal to the legacy amount. Group order follows first encounter;
// createdAt is copied from the first record of each group.
func convertLegacy(records []purchaseRecord) []core.Purchase {
	grouped := make(map[string]*core.Purchase)
	var order []string

	for _, r := range records {
		key := r.Date.DayKey()
		p, ok := grouped[key]
		if !ok {
			p = &core.Purchase{
				ID:        fmt.Sprintf("converted-%s-%s", key, uuid.NewString()[:8]),
				Date:      r.Date,
				CreatedAt: r.CreatedAt,
			}
			grouped[key] = p
			order = append(order, key)
		}
		p.Items = append(p.Items, core.LineItem{
			ItemID:     r.ItemID,
			ItemName:   r.ItemName,
			Quantity:   1,
			UnitPrice:  r.Amount,
			TotalPrice: r.Amount,
		})
		p.TotalAmount += r.Amount
	}

	out := make([]core.Purchase, 0, len(order))
	for _, key := range order {
		out = append(out, *grouped[key])
	}
	return out
}
