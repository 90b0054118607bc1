// Package credits authorizes and deducts metered usage against an owner's
// credit balance and keeps the append-only transaction log.
package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// Ledger wraps a CreditRepository with per-owner serialization of charges.
type Ledger struct {
	repo   domain.CreditRepository
	locks  *keyedMutex
	logger zerolog.Logger
	now    func() time.Time
}

func NewLedger(repo domain.CreditRepository, logger zerolog.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		locks:  newKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}
}

// GetBalance returns the current balance. Owners without an account have zero.
func (l *Ledger) GetBalance(ctx context.Context, ownerID string) (int64, error) {
	balance, err := l.repo.Balance(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("credits: balance: %w", err)
	}
	return balance, nil
}

// Charge deducts cost when the balance covers it and reports whether it did.
// A false result leaves the balance and the transaction log untouched.
func (l *Ledger) Charge(ctx context.Context, ownerID string, cost int64, description string) (bool, error) {
	if cost <= 0 {
		return false, domain.ErrInvalidAmount
	}

	unlock := l.locks.Lock(ownerID)
	defer unlock()

	balance, ok, err := l.repo.Deduct(ctx, ownerID, cost)
	if err != nil {
		return false, fmt.Errorf("credits: charge: %w", err)
	}
	if !ok {
		l.logger.Info().Str("owner_id", ownerID).Int64("cost", cost).Int64("balance", balance).Msg("credits: charge rejected")
		return false, nil
	}

	l.appendTransaction(ctx, ownerID, -cost, description)
	l.logger.Info().Str("owner_id", ownerID).Int64("cost", cost).Int64("balance", balance).Msg("credits: charged")
	return true, nil
}

// TopUp credits amount to the owner, creating the account on first use.
func (l *Ledger) TopUp(ctx context.Context, ownerID string, amount int64, description string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	unlock := l.locks.Lock(ownerID)
	defer unlock()

	balance, err := l.repo.Add(ctx, ownerID, amount)
	if err != nil {
		return 0, fmt.Errorf("credits: top up: %w", err)
	}
	l.appendTransaction(ctx, ownerID, amount, description)
	l.logger.Info().Str("owner_id", ownerID).Int64("amount", amount).Int64("balance", balance).Msg("credits: topped up")
	return balance, nil
}

// Transactions returns the newest transactions first.
func (l *Ledger) Transactions(ctx context.Context, ownerID string, limit int) ([]domain.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txs, err := l.repo.ListTransactions(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("credits: transactions: %w", err)
	}
	return txs, nil
}

// appendTransaction runs after the balance write has landed. A failure here
// is logged and the balance change stands.
func (l *Ledger) appendTransaction(ctx context.Context, ownerID string, amount int64, description string) {
	tx := &domain.CreditTransaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      amount,
		Description: description,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.repo.AppendTransaction(ctx, tx); err != nil {
		l.logger.Error().Err(err).Str("owner_id", ownerID).Int64("amount", amount).Msg("credits: transaction not recorded")
	}
}
