package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds.
const (
	KindPurchaseRecorded   = "purchase.recorded"
	KindMigrationCompleted = "migration.completed"
)

// Event is the envelope published for every domain event. Consumers
// dispatch on Kind; only the fields relevant to that kind are set.
type Event struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	PurchaseID  string  `json:"purchaseId,omitempty"`
	TotalAmount float64 `json:"totalAmount,omitempty"`

	UserID    string `json:"userId,omitempty"`
	Purchases int    `json:"purchases,omitempty"`
}

func NewPurchaseRecordedMessage(purchaseID string, totalAmount float64) *Event {
	return &Event{
		Kind:        KindPurchaseRecorded,
		Timestamp:   time.Now(),
		PurchaseID:  purchaseID,
		TotalAmount: totalAmount,
	}
}

func NewMigrationCompletedMessage(userID string, purchases int) *Event {
	return &Event{
		Kind:      KindMigrationCompleted,
		Timestamp: time.Now(),
		UserID:    userID,
		Purchases: purchases,
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
