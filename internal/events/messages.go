package events

import (
	"encoding/json"
	"time"
)

// LedgerEvent is the message published for every committed ledger
// mutation. It carries only identifiers; consumers fetch the current state
// from the database so stale messages cannot overwrite newer data.
type LedgerEvent struct {
	Event          string    `json:"event"`
	OrganizationID string    `json:"organization_id"`
	TransactionID  string    `json:"transaction_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(event, orgID, transactionID string) *LedgerEvent {
	return &LedgerEvent{
		Event:          event,
		OrganizationID: orgID,
		TransactionID:  transactionID,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
