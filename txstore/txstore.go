// Package txstore is the durable, append-only record of every wallet
// action the bridge handles. It owns transaction records exclusively and
// supplies the last-known balance per player.
package txstore

import (
	"errors"
	"time"
)

const (
	ActionBalance = "balance"
	ActionBet     = "bet"
	ActionWin     = "win"
	ActionRefund  = "refund"
)

// ErrUnavailable wraps storage I/O failures. The request carrying it is
// aborted with no partial write.
var ErrUnavailable = errors.New("transaction store unavailable")

// Transaction is one recorded wallet action attempt.
type Transaction struct {
	ID            string    `json:"id"`
	Action        string    `json:"action"`
	PlayerID      string    `json:"player_id"`
	Amount        *float64  `json:"amount"`
	Currency      string    `json:"currency"`
	GameUUID      string    `json:"game_uuid,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	SessionID     string    `json:"session_id"`
	Type          string    `json:"type,omitempty"`
	FreespinID    string    `json:"freespin_id,omitempty"`
	Quantity      *int      `json:"quantity,omitempty"`
	RoundID       string    `json:"round_id,omitempty"`
	Finished      *bool     `json:"finished,omitempty"`
	Balance       float64   `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecordResult reports what Record did. Duplicate means a record with the
// same (transaction_id, action) already existed; Balance is then the
// balance computed when that record was first written. RecordID is the
// stored row's id (the existing row's id for duplicates).
type RecordResult struct {
	Duplicate bool
	Balance   float64
	RecordID  string
}

// nextBalance applies the action's financial effect to the last balance.
// balance actions read without mutating.
func nextBalance(last float64, action string, amount float64) float64 {
	switch action {
	case ActionBet:
		return last - amount
	case ActionWin, ActionRefund:
		return last + amount
	default:
		return last
	}
}

// dedupes returns whether a (transaction_id, action) pair participates in
// duplicate detection. balance is an audit-only read and repeats freely.
func dedupes(action, transactionID string) bool {
	return action != ActionBalance && transactionID != ""
}

func amountOf(tx *Transaction) float64 {
	if tx.Amount == nil {
		return 0
	}
	return *tx.Amount
}
