/**
 * @description
 * The in-memory balance ledger. It is the sole source of truth for spend
 * authorization: balances live only in process memory and reset on restart.
 *
 * All mutations go through a single mutex so the check-then-debit sequence is
 * one critical section; two concurrent payouts can never both pass the
 * sufficiency check against the same balance.
 */
package store

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientBalance is returned when a debit would overdraw a balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger maps user IDs to non-negative coin balances.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewLedger creates a ledger seeded with the given balances.
func NewLedger(seed map[string]int64) *Ledger {
	balances := make(map[string]int64, len(seed))
	for userID, balance := range seed {
		if balance < 0 {
			continue
		}
		balances[userID] = balance
	}
	return &Ledger{balances: balances}
}

// Balance returns the stored balance for a user, or 0 for an unknown user.
// Unknown users are not created by reading.
func (l *Ledger) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

// Debit atomically checks sufficiency and subtracts coins from the user's
// balance, returning the new balance. On ErrInsufficientBalance the ledger is
// left untouched.
func (l *Ledger) Debit(userID string, coins int64) (int64, error) {
	if coins <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", coins)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.balances[userID]
	if coins > current {
		return 0, ErrInsufficientBalance
	}

	l.balances[userID] = current - coins
	return l.balances[userID], nil
}

// Credit adds coins to the user's balance and returns the new balance. It is
// the compensation path for a debit whose dispatch failed.
func (l *Ledger) Credit(userID string, coins int64) int64 {
	if coins <= 0 {
		return l.Balance(userID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[userID] += coins
	return l.balances[userID]
}
