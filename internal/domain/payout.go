/**
 * @description
 * Domain models for payout processing.
 */
package domain

import (
	"encoding/json"
	"time"
)

// PayoutRequest is the inbound payload for a payout submission.
//
// Amount is a json.Number so that clients sending the amount as either a JSON
// number (8) or a numeric string ("8") are both accepted; anything else fails
// at decode time.
type PayoutRequest struct {
	Email    string      `json:"email"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	UserID   string      `json:"userId"`
}

// PayoutResult is the outcome of a successfully dispatched payout.
type PayoutResult struct {
	BatchID    string `json:"payout_batch_id"`
	NewBalance int64  `json:"new_balance"`
	CoinAmount int64  `json:"coin_amount"`
}

// PayoutEvent is published to the event broker for each terminal payout
// outcome, for downstream reconciliation.
type PayoutEvent struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	CoinAmount int64     `json:"coin_amount"`
	BatchID    string    `json:"batch_id,omitempty"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Payout event statuses.
const (
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"
)
