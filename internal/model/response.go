package model

import "time"

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Stock event types.
const (
	EventCreated     = "created"
	EventDeleted     = "deleted"
	EventIncremented = "incremented"
)

// StockEvent is published after every successful catalog mutation.
type StockEvent struct {
	Type      string     `json:"type"`
	Cigarro   CigarroDTO `json:"cigarro"`
	Amount    int        `json:"amount,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewStockEvent builds an event stamped with the current UTC time.
func NewStockEvent(eventType string, c Cigarro, amount int) StockEvent {
	return StockEvent{
		Type:      eventType,
		Cigarro:   ToDTO(c),
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}
}
