package domain

import "time"

// CreditAccount holds the spendable credit balance of an owner.
type CreditAccount struct {
	OwnerID   string
	Balance   int64
	UpdatedAt time.Time
}

// CreditTransaction is an immutable ledger line. Negative amounts are
// charges, positive amounts are top-ups.
type CreditTransaction struct {
	ID          string
	OwnerID     string
	Amount      int64
	Description string
	CreatedAt   time.Time
}
