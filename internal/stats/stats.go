// Package stats derives dashboard metrics from the purchase collection.
// Every function is a pure computation over its inputs; nothing here is
// cached or persisted, callers recompute on each relevant state change.
package stats

import (
	"sort"
	"time"

	"einkauf/internal/core"
)

const (
	// DailyWindow is the number of most recent days-with-data kept in the
	// daily series. It is a sparse window, not a calendar window.
	DailyWindow = 30

	// TopItemsLimit bounds the top-spending-items list; pie views take a
	// further TopItemsPieSlice of it.
	TopItemsLimit    = 10
	TopItemsPieSlice = 5

	// Uncategorized is the category label used when a line item's owning
	// item cannot be resolved or has no category.
	Uncategorized = "Uncategorized"
)

type (
	// DayTotal is one day's spending, Day formatted as 2006-01-02.
	DayTotal struct {
		Day    string  `json:"day"`
		Amount float64 `json:"amount"`
	}

	// MonthTotal is one month's spending, Month formatted as 2006-01.
	MonthTotal struct {
		Month  string  `json:"month"`
		Amount float64 `json:"amount"`
	}

	// ItemTotal is the accumulated spending for one denormalized item name.
	ItemTotal struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}

	// PricePoint is one observation in an item's price progression. Seq is
	// the 1-based index of the purchase among those containing the item.
	PricePoint struct {
		Seq       int     `json:"seq"`
		Date      string  `json:"date"`
		UnitPrice float64 `json:"unitPrice"`
	}

	// CategoryTotal is the accumulated spending for one category name.
	CategoryTotal struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}

	// Summary holds the dashboard's scalar figures.
	Summary struct {
		TotalSpent         float64 `json:"totalSpent"`
		AveragePerPurchase float64 `json:"averagePerPurchase"`
		CurrentMonth       float64 `json:"currentMonth"`
		PurchaseCount      int     `json:"purchaseCount"`
	}
)

// Daily groups purchases by calendar day, ascending, keeping only the most
// recent DailyWindow days that actually have data.
func Daily(purchases []core.Purchase) []DayTotal {
	totals := make(map[string]float64)
	for _, p := range purchases {
		totals[p.Date.DayKey()] += p.TotalAmount
	}
	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Strings(days)
	if len(days) > DailyWindow {
		days = days[len(days)-DailyWindow:]
	}
	out := make([]DayTotal, 0, len(days))
	for _, day := range days {
		out = append(out, DayTotal{Day: day, Amount: core.Round2(totals[day])})
	}
	return out
}

// MonthlyTrend groups all purchases by calendar month, ascending.
func MonthlyTrend(purchases []core.Purchase) []MonthTotal {
	totals := make(map[string]float64)
	for _, p := range purchases {
		totals[p.Date.MonthKey()] += p.TotalAmount
	}
	months := make([]string, 0, len(totals))
	for month := range totals {
		months = append(months, month)
	}
	sort.Strings(months)
	out := make([]MonthTotal, 0, len(months))
	for _, month := range months {
		out = append(out, MonthTotal{Month: month, Amount: core.Round2(totals[month])})
	}
	return out
}

// DaysOfMonth restricts purchases to the cursor month and groups them by
// day of month, ascending by day number.
func DaysOfMonth(purchases []core.Purchase, cursor MonthCursor) []DayTotal {
	totals := make(map[int]float64)
	for _, p := range purchases {
		if p.Date.Year() == cursor.Year() && p.Date.Month() == cursor.Month() {
			totals[p.Date.Day()] += p.TotalAmount
		}
	}
	days := make([]int, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Ints(days)
	out := make([]DayTotal, 0, len(days))
	for _, day := range days {
		key := time.Date(cursor.Year(), cursor.Month(), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		out = append(out, DayTotal{Day: key, Amount: core.Round2(totals[day])})
	}
	return out
}

// TopItems sums line totals by denormalized item name and returns up to
// limit entries, descending by amount, ties broken by name.
func TopItems(purchases []core.Purchase, limit int) []ItemTotal {
	totals := make(map[string]float64)
	for _, p := range purchases {
		for _, li := range p.Items {
			totals[li.ItemName] += li.TotalPrice
		}
	}
	out := make([]ItemTotal, 0, len(totals))
	for name, amount := range totals {
		out = append(out, ItemTotal{Name: name, Amount: core.Round2(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PriceProgression returns one price observation per purchase containing
// the item, ascending by date. When the same item appears on several lines
// of one purchase, the first line in slice order wins.
func PriceProgression(purchases []core.Purchase, itemID string) []PricePoint {
	if itemID == "" {
		return nil
	}
	sorted := make([]core.Purchase, len(purchases))
	copy(sorted, purchases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	var out []PricePoint
	for _, p := range sorted {
		for _, li := range p.Items {
			if li.ItemID == itemID {
				out = append(out, PricePoint{
					Seq:       len(out) + 1,
					Date:      p.Date.DayKey(),
					UnitPrice: li.UnitPrice,
				})
				break
			}
		}
	}
	return out
}

// CategoryBreakdown accumulates line totals per resolved category name,
// descending. Lines whose item cannot be resolved, or whose item has no
// category, count toward Uncategorized.
func CategoryBreakdown(purchases []core.Purchase, items []core.Item, categories []core.Category) []CategoryTotal {
	byItemID := make(map[string]core.Item, len(items))
	for _, it := range items {
		byItemID[it.ID] = it
	}
	catNames := make(map[string]string, len(categories))
	for _, c := range categories {
		catNames[c.ID] = c.Name
	}

	totals := make(map[string]float64)
	for _, p := range purchases {
		for _, li := range p.Items {
			name := Uncategorized
			if it, ok := byItemID[li.ItemID]; ok && it.Category != "" {
				// The item's category field holds an id or a name
				// depending on when the record was written.
				if n, ok := catNames[it.Category]; ok {
					name = n
				} else {
					name = it.Category
				}
			}
			totals[name] += li.TotalPrice
		}
	}

	out := make([]CategoryTotal, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryTotal{Name: name, Amount: core.Round2(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Summarize computes the scalar dashboard figures. now anchors the
// current-month bounds: a purchase counts when it falls on or after the
// month's first instant and strictly before the next month's first instant.
func Summarize(purchases []core.Purchase, now time.Time) Summary {
	var total float64
	for _, p := range purchases {
		total += p.TotalAmount
	}

	avg := 0.0
	if len(purchases) > 0 {
		avg = total / float64(len(purchases))
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonth := monthStart.AddDate(0, 1, 0)
	var month float64
	for _, p := range purchases {
		d := p.Date.Time
		if !d.Before(monthStart) && d.Before(nextMonth) {
			month += p.TotalAmount
		}
	}

	return Summary{
		TotalSpent:         core.Round2(total),
		AveragePerPurchase: core.Round2(avg),
		CurrentMonth:       core.Round2(month),
		PurchaseCount:      len(purchases),
	}
}
