package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a ledger change published on the exchange.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionDeleted EventType = "transaction.deleted"
	RecurringGenerated EventType = "recurring.generated"
)

// LedgerEvent is a lightweight notice of a ledger change. Consumers that
// need the full row fetch it from the store by TransactionID.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	TxType        string    `json:"tx_type,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Description   string    `json:"description,omitempty"`
	Count         int       `json:"count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(t EventType, userID int64) *LedgerEvent {
	return &LedgerEvent{
		Type:      t,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TransactionCreated, TransactionDeleted, RecurringGenerated:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
