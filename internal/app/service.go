/**
 * @description
 * Core business logic for payout authorization and dispatch.
 *
 * The payout flow per request:
 *   validate input -> convert amount to coins -> debit ledger (atomic) ->
 *   dispatch to provider -> publish event.
 * The ledger debit completes before dispatch begins; a dispatch failure
 * credits the coins back so the ledger never reflects money that was not
 * paid out.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/watchads/payout-service/internal/domain"
)

// Validation errors. They are raised before any ledger access.
var (
	ErrMissingRecipient = errors.New("recipient email is required")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
)

// Exchange and routing keys for payout lifecycle events.
const (
	PayoutEventsExchange = "payout.events"
	RoutingKeyCompleted  = "payout.completed"
	RoutingKeyFailed     = "payout.failed"
)

// Ledger defines the balance operations the service needs.
type Ledger interface {
	Balance(userID string) int64
	Debit(userID string, coins int64) (int64, error)
	Credit(userID string, coins int64) int64
}

// Dispatcher hands an authorized payout to the payment provider.
type Dispatcher interface {
	SendPayout(ctx context.Context, recipient, amount, currency, senderBatchID string) (string, error)
}

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Service provides the business logic for payout processing.
type Service struct {
	ledger          Ledger
	dispatcher      Dispatcher
	publisher       EventPublisher
	coinsPerUnit    int64
	defaultCurrency string
	defaultUserID   string
}

// NewService creates a new payout service. coinsPerUnit is the conversion
// rate from one unit of the payout currency to internal coins.
func NewService(ledger Ledger, dispatcher Dispatcher, publisher EventPublisher, coinsPerUnit int64, defaultCurrency, defaultUserID string) *Service {
	if coinsPerUnit <= 0 {
		log.Printf("level=warn component=app msg=\"non-positive conversion rate %d, defaulting to 1250\"", coinsPerUnit)
		coinsPerUnit = 1250
	}
	return &Service{
		ledger:          ledger,
		dispatcher:      dispatcher,
		publisher:       publisher,
		coinsPerUnit:    coinsPerUnit,
		defaultCurrency: defaultCurrency,
		defaultUserID:   defaultUserID,
	}
}

// BalanceOf returns the current coin balance for a user (0 for unknown users).
func (s *Service) BalanceOf(userID string) int64 {
	return s.ledger.Balance(userID)
}

// CoinsPerUnit exposes the configured conversion rate.
func (s *Service) CoinsPerUnit() int64 {
	return s.coinsPerUnit
}

// Payout validates the request, debits the user's coin balance and dispatches
// the payout to the provider. On dispatch failure the debit is credited back
// before the error is returned.
func (s *Service) Payout(ctx context.Context, req domain.PayoutRequest) (*domain.PayoutResult, error) {
	recipient := strings.TrimSpace(req.Email)
	if recipient == "" {
		return nil, ErrMissingRecipient
	}

	amount, err := parseAmount(string(req.Amount))
	if err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = s.defaultUserID
	}

	// The rate is currency-blind: this service pays out in a single
	// configured currency and the rate is scoped to it.
	coins := int64(math.Round(amount * float64(s.coinsPerUnit)))
	if coins <= 0 {
		return nil, ErrInvalidAmount
	}

	newBalance, err := s.ledger.Debit(userID, coins)
	if err != nil {
		return nil, err
	}

	senderBatchID := uuid.New().String()
	amountValue := strconv.FormatFloat(amount, 'f', 2, 64)

	batchID, err := s.dispatcher.SendPayout(ctx, recipient, amountValue, currency, senderBatchID)
	if err != nil {
		restored := s.ledger.Credit(userID, coins)
		log.Printf("level=error component=app op=payout outcome=dispatch_failed user_id=%s coins=%d restored_balance=%d err=%v", userID, coins, restored, err)
		s.publishEvent(ctx, RoutingKeyFailed, domain.PayoutEvent{
			EventID:    uuid.New().String(),
			UserID:     userID,
			Recipient:  recipient,
			Amount:     amountValue,
			Currency:   currency,
			CoinAmount: coins,
			Status:     domain.PayoutStatusFailed,
			Reason:     err.Error(),
			OccurredAt: time.Now().UTC(),
		})
		return nil, err
	}

	log.Printf("level=info component=app op=payout outcome=completed user_id=%s recipient=%s coins=%d batch_id=%s new_balance=%d", userID, recipient, coins, batchID, newBalance)
	s.publishEvent(ctx, RoutingKeyCompleted, domain.PayoutEvent{
		EventID:    uuid.New().String(),
		UserID:     userID,
		Recipient:  recipient,
		Amount:     amountValue,
		Currency:   currency,
		CoinAmount: coins,
		BatchID:    batchID,
		Status:     domain.PayoutStatusCompleted,
		OccurredAt: time.Now().UTC(),
	})

	return &domain.PayoutResult{
		BatchID:    batchID,
		NewBalance: newBalance,
		CoinAmount: coins,
	}, nil
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, event domain.PayoutEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, PayoutEventsExchange, routingKey, event); err != nil {
		// Event delivery is best-effort; the payout outcome stands.
		log.Printf("level=warn component=app msg=\"failed to publish payout event\" routing_key=%s err=%v", routingKey, err)
	}
}

func parseAmount(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
