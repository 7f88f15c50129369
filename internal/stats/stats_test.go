package stats

import (
	"fmt"
	"math"
	"testing"
	"time"

	"einkauf/internal/core"
)

func ts(s string) core.Timestamp {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return core.Timestamp{Time: t}
}

func purchase(date string, total float64, items ...core.LineItem) core.Purchase {
	return core.Purchase{
		ID:          "p-" + date,
		Date:        ts(date),
		Items:       items,
		TotalAmount: total,
	}
}

func TestDailyGroupsAndWindows(t *testing.T) {
	var purchases []core.Purchase
	// 35 distinct days, two purchases on the first day.
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		d := base.AddDate(0, 0, i)
		purchases = append(purchases, core.Purchase{
			Date:        core.Timestamp{Time: d},
			TotalAmount: 1,
		})
	}
	purchases = append(purchases, core.Purchase{
		Date:        core.Timestamp{Time: base.Add(3 * time.Hour)},
		TotalAmount: 2,
	})

	got := Daily(purchases)
	if len(got) != DailyWindow {
		t.Fatalf("len = %d, want %d", len(got), DailyWindow)
	}
	// The first day (amount 3) fell out of the 30-day window.
	if got[0].Day != "2024-01-06" {
		t.Errorf("first windowed day = %s, want 2024-01-06", got[0].Day)
	}
	if got[len(got)-1].Day != "2024-02-04" {
		t.Errorf("last day = %s, want 2024-02-04", got[len(got)-1].Day)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Day <= got[i-1].Day {
			t.Fatalf("days not ascending at %d: %s <= %s", i, got[i].Day, got[i-1].Day)
		}
	}
}

func TestDailySumsSameDay(t *testing.T) {
	purchases := []core.Purchase{
		purchase("2024-01-05T10:00", 2.50),
		purchase("2024-01-05T18:30", 1.20),
	}
	got := Daily(purchases)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if math.Abs(got[0].Amount-3.70) > 0.005 {
		t.Errorf("amount = %v, want 3.70", got[0].Amount)
	}
}

func TestMonthlyTrend(t *testing.T) {
	purchases := []core.Purchase{
		purchase("2024-02-10T09:00", 5),
		purchase("2024-01-05T10:00", 2),
		purchase("2024-01-20T10:00", 3),
	}
	got := MonthlyTrend(purchases)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Month != "2024-01" || math.Abs(got[0].Amount-5) > 0.005 {
		t.Errorf("got[0] = %+v, want 2024-01 / 5", got[0])
	}
	if got[1].Month != "2024-02" || math.Abs(got[1].Amount-5) > 0.005 {
		t.Errorf("got[1] = %+v, want 2024-02 / 5", got[1])
	}
}

func TestTopItems(t *testing.T) {
	purchases := []core.Purchase{
		{Items: []core.LineItem{{ItemName: "Milk", TotalPrice: 2}}},
		{Items: []core.LineItem{{ItemName: "Milk", TotalPrice: 3}}},
		{Items: []core.LineItem{{ItemName: "Bread", TotalPrice: 1}}},
	}
	got := TopItems(purchases, TopItemsLimit)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Milk" || math.Abs(got[0].Amount-5) > 0.005 {
		t.Errorf("got[0] = %+v, want Milk / 5", got[0])
	}
	if got[1].Name != "Bread" || math.Abs(got[1].Amount-1) > 0.005 {
		t.Errorf("got[1] = %+v, want Bread / 1", got[1])
	}
}

func TestTopItemsLimit(t *testing.T) {
	var purchases []core.Purchase
	for i := 0; i < 15; i++ {
		purchases = append(purchases, core.Purchase{
			Items: []core.LineItem{{ItemName: fmt.Sprintf("item-%02d", i), TotalPrice: float64(i + 1)}},
		})
	}
	got := TopItems(purchases, TopItemsLimit)
	if len(got) != TopItemsLimit {
		t.Fatalf("len = %d, want %d", len(got), TopItemsLimit)
	}
	if got[0].Name != "item-14" {
		t.Errorf("top item = %s, want item-14", got[0].Name)
	}
}

func TestPriceProgression(t *testing.T) {
	purchases := []core.Purchase{
		purchase("2024-02-01T10:00", 0, core.LineItem{ItemID: "milk", UnitPrice: 1.30}),
		purchase("2024-01-01T10:00", 0, core.LineItem{ItemID: "milk", UnitPrice: 1.10}),
		purchase("2024-01-15T10:00", 0, core.LineItem{ItemID: "bread", UnitPrice: 2.00}),
		purchase("2024-01-20T10:00", 0,
			core.LineItem{ItemID: "milk", UnitPrice: 1.20},
			core.LineItem{ItemID: "milk", UnitPrice: 9.99},
		),
	}
	got := PriceProgression(purchases, "milk")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantPrices := []float64{1.10, 1.20, 1.30}
	for i, want := range wantPrices {
		if got[i].Seq != i+1 {
			t.Errorf("seq[%d] = %d, want %d", i, got[i].Seq, i+1)
		}
		if math.Abs(got[i].UnitPrice-want) > 0.005 {
			t.Errorf("price[%d] = %v, want %v", i, got[i].UnitPrice, want)
		}
	}
	// The duplicate line inside one purchase contributes exactly one point,
	// taken from the first line in slice order.
	if got[1].UnitPrice == 9.99 {
		t.Error("duplicate line should not win over the first in slice order")
	}
}

func TestPriceProgressionEmptySelection(t *testing.T) {
	if got := PriceProgression([]core.Purchase{purchase("2024-01-01T10:00", 1)}, ""); got != nil {
		t.Errorf("expected nil for empty selection, got %v", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	categories := []core.Category{
		{ID: "c1", Name: "Dairy"},
	}
	items := []core.Item{
		{ID: "milk", Name: "Milk", Category: "c1"},       // by id
		{ID: "beer", Name: "Beer", Category: "Drinks"},   // by name (older record)
		{ID: "misc", Name: "Misc"},                       // no category
	}
	purchases := []core.Purchase{
		{Items: []core.LineItem{
			{ItemID: "milk", TotalPrice: 4},
			{ItemID: "beer", TotalPrice: 3},
			{ItemID: "misc", TotalPrice: 2},
			{ItemID: "ghost", TotalPrice: 1}, // deleted item
		}},
	}
	got := CategoryBreakdown(purchases, items, categories)
	want := map[string]float64{"Dairy": 4, "Drinks": 3, Uncategorized: 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for _, ct := range got {
		if math.Abs(ct.Amount-want[ct.Name]) > 0.005 {
			t.Errorf("%s = %v, want %v", ct.Name, ct.Amount, want[ct.Name])
		}
	}
	if got[0].Name != "Dairy" {
		t.Errorf("breakdown not descending: %+v", got)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil, time.Now())
	if got.AveragePerPurchase != 0 {
		t.Errorf("average on empty = %v, want 0", got.AveragePerPurchase)
	}
	if got.TotalSpent != 0 || got.CurrentMonth != 0 || got.PurchaseCount != 0 {
		t.Errorf("empty summary = %+v", got)
	}
}

func TestSummarizeCurrentMonthBounds(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	purchases := []core.Purchase{
		// Last day of previous month at 23:59: excluded.
		{Date: core.Timestamp{Time: time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)}, TotalAmount: 100},
		// First instant of current month: included.
		{Date: core.Timestamp{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, TotalAmount: 10},
		// Mid-month: included.
		{Date: core.Timestamp{Time: time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)}, TotalAmount: 5},
		// First instant of next month: excluded.
		{Date: core.Timestamp{Time: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}, TotalAmount: 50},
	}
	got := Summarize(purchases, now)
	if math.Abs(got.CurrentMonth-15) > 0.005 {
		t.Errorf("current month = %v, want 15", got.CurrentMonth)
	}
	if math.Abs(got.TotalSpent-165) > 0.005 {
		t.Errorf("total = %v, want 165", got.TotalSpent)
	}
	if math.Abs(got.AveragePerPurchase-41.25) > 0.005 {
		t.Errorf("average = %v, want 41.25", got.AveragePerPurchase)
	}
}
