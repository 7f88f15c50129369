package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestTimestampUnmarshalLayouts(t *testing.T) {
	cases := []struct {
		in   string
		day  string
		fail bool
	}{
		{in: `"2024-01-05T10:00:00Z"`, day: "2024-01-05"},
		{in: `"2024-01-05T10:00"`, day: "2024-01-05"},
		{in: `"2024-01-05T10:00:30"`, day: "2024-01-05"},
		{in: `"2024-01-05"`, day: "2024-01-05"},
		{in: `"not a date"`, fail: true},
	}
	for _, tc := range cases {
		var ts Timestamp
		err := json.Unmarshal([]byte(tc.in), &ts)
		if tc.fail {
			if err == nil {
				t.Errorf("Unmarshal(%s): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unmarshal(%s): %v", tc.in, err)
			continue
		}
		if got := ts.DayKey(); got != tc.day {
			t.Errorf("Unmarshal(%s): day key %q, want %q", tc.in, got, tc.day)
		}
	}
}

func TestPurchaseRecalculate(t *testing.T) {
	p := Purchase{
		Items: []LineItem{
			{ItemName: "Milk", Quantity: 2, UnitPrice: 1.25, TotalPrice: 99},
			{ItemName: "Bread", Quantity: 1, UnitPrice: 2.10, TotalPrice: -5},
		},
	}
	p.Recalculate()

	if math.Abs(p.Items[0].TotalPrice-2.50) > 0.005 {
		t.Errorf("line 0 total = %v, want 2.50", p.Items[0].TotalPrice)
	}
	if math.Abs(p.Items[1].TotalPrice-2.10) > 0.005 {
		t.Errorf("line 1 total = %v, want 2.10", p.Items[1].TotalPrice)
	}
	if math.Abs(p.TotalAmount-4.60) > 0.005 {
		t.Errorf("total = %v, want 4.60", p.TotalAmount)
	}
}

func TestPurchaseValidate(t *testing.T) {
	valid := Purchase{
		Date:  Now(),
		Items: []LineItem{{ItemID: "a", ItemName: "Milk", Quantity: 1, UnitPrice: 1}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid purchase rejected: %v", err)
	}

	empty := Purchase{Date: Now()}
	if err := empty.Validate(); err != ErrNoLineItems {
		t.Errorf("expected ErrNoLineItems, got %v", err)
	}

	badQty := valid
	badQty.Items = []LineItem{{ItemID: "a", Quantity: 0, UnitPrice: 1}}
	if err := badQty.Validate(); err != ErrInvalidQuantity {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}

	badPrice := valid
	badPrice.Items = []LineItem{{ItemID: "a", Quantity: 1, UnitPrice: -0.5}}
	if err := badPrice.Validate(); err != ErrInvalidPrice {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestIsPfand(t *testing.T) {
	for _, name := range []string{"Pfand", "pfand", "PFAND", " pfand "} {
		if !IsPfand(name) {
			t.Errorf("IsPfand(%q) = false, want true", name)
		}
	}
	if IsPfand("Pfandflaschen") {
		t.Error("IsPfand should not match longer names")
	}
}
