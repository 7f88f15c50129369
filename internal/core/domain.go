package core

import (
	"errors"
	"strings"
	"time"
)

// PfandName is the reserved deposit-return category. It always exists and
// can never be deleted or renamed.
const PfandName = "Pfand"

type (
	// Timestamp wraps time.Time to accept the timestamp layouts found in
	// persisted collections (RFC3339 plus the truncated browser variants).
	Timestamp struct {
		time.Time
	}

	Category struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt Timestamp `json:"createdAt"`
	}

	// Item is a purchasable grocery item. Category holds either a category
	// id or a category name depending on the era the record was written in;
	// resolution handles both.
	Item struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Category  string    `json:"category,omitempty"`
		CreatedAt Timestamp `json:"createdAt"`
	}

	Market struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Location  string    `json:"location,omitempty"`
		CreatedAt Timestamp `json:"createdAt"`
	}

	// LineItem is one item/quantity/price entry inside a purchase. ItemName
	// is a snapshot taken at purchase time: it survives renames and deletes
	// of the referenced item.
	LineItem struct {
		ItemID     string  `json:"itemId"`
		ItemName   string  `json:"itemName"`
		Quantity   int     `json:"quantity"`
		UnitPrice  float64 `json:"unitPrice"`
		TotalPrice float64 `json:"totalPrice"`
	}

	Purchase struct {
		ID          string     `json:"id"`
		Date        Timestamp  `json:"date"`
		MarketID    string     `json:"marketId,omitempty"`
		MarketName  string     `json:"marketName,omitempty"`
		Items       []LineItem `json:"items"`
		TotalAmount float64    `json:"totalAmount"`
		CreatedAt   Timestamp  `json:"createdAt"`
	}

	// User is an account on the hosted backend. PasswordHash never leaves
	// the server.
	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		DisplayName  string    `json:"displayName,omitempty"`
		PasswordHash string    `json:"-"`
		CreatedAt    Timestamp `json:"createdAt"`
	}
)

var (
	ErrEmptyName        = errors.New("empty name")
	ErrDuplicateName    = errors.New("name already exists")
	ErrReservedCategory = errors.New("the Pfand category is reserved")
	ErrNotFound         = errors.New("not found")
	ErrNoLineItems      = errors.New("purchase has no line items")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidPrice     = errors.New("unit price must not be negative")
	ErrInvalidDate      = errors.New("invalid date")
)

// timestampLayouts lists accepted persisted formats, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return ErrInvalidDate
}

// DayKey returns the calendar-day grouping key (date portion only).
func (t Timestamp) DayKey() string {
	return t.Format("2006-01-02")
}

// MonthKey returns the calendar-month grouping key.
func (t Timestamp) MonthKey() string {
	return t.Format("2006-01")
}

// Now returns the current instant as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

// IsPfand reports whether name collides with the reserved category,
// ignoring case.
func IsPfand(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), PfandName)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (m Market) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (li LineItem) Validate() error {
	if li.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if li.UnitPrice < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (p Purchase) Validate() error {
	if p.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(p.Items) == 0 {
		return ErrNoLineItems
	}
	for _, li := range p.Items {
		if err := li.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Recalculate rederives every line total and the purchase total from
// quantity and unit price. Persisted totals are never trusted from input.
func (p *Purchase) Recalculate() {
	var total float64
	for i := range p.Items {
		p.Items[i].TotalPrice = float64(p.Items[i].Quantity) * p.Items[i].UnitPrice
		total += p.Items[i].TotalPrice
	}
	p.TotalAmount = total
}
