package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"pagos/internal/audit"
)

// LedgerEvent mirrors one audit entry for consumers outside the process.
type LedgerEvent struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Month      string    `json:"month,omitempty"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLedgerEvent builds an event with a fresh id from an audit entry.
func NewLedgerEvent(e audit.Entry) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Action:     string(e.Action),
		Month:      e.Month,
		Detail:     e.Detail,
		OccurredAt: e.Time,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
