// Package events publishes recorded transactions for downstream
// consumers (reconciliation, reporting). Publishing is best-effort and
// never affects the request that produced the record.
package events

import (
	"time"
)

// TransactionRecorded is emitted once per newly stored transaction.
// Duplicates do not re-emit.
type TransactionRecorded struct {
	RecordID      string    `json:"record_id"`
	Action        string    `json:"action"`
	PlayerID      string    `json:"player_id"`
	Amount        *float64  `json:"amount,omitempty"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Balance       float64   `json:"balance"`
	RecordedAt    time.Time `json:"recorded_at"`
}
