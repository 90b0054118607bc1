package repo

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// CreditRepositoryPG implements domain.CreditRepository.
type CreditRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCreditRepository creates a credit repository backed by PostgreSQL.
func NewCreditRepository(sql infra.SQLExecutor) *CreditRepositoryPG {
	return &CreditRepositoryPG{sql: sql}
}

// Balance returns the owner's balance; owners without an account have zero.
func (r *CreditRepositoryPG) Balance(ctx context.Context, ownerID string) (int64, error) {
	var balance int64
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, ownerID).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

// Deduct subtracts amount when the balance covers it. The guard lives in the
// UPDATE's WHERE clause so concurrent callers cannot both pass it.
func (r *CreditRepositoryPG) Deduct(ctx context.Context, ownerID string, amount int64) (int64, bool, error) {
	var balance int64
	if err := r.sql.QueryRow(ctx, sqlinline.QDeductCredits, ownerID, amount).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("deduct credits: %w", err)
	}
	return balance, true, nil
}

// Add upserts the account and increments its balance.
func (r *CreditRepositoryPG) Add(ctx context.Context, ownerID string, amount int64) (int64, error) {
	var balance int64
	if err := r.sql.QueryRow(ctx, sqlinline.QAddCredits, ownerID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}
	return balance, nil
}

// AppendTransaction inserts an immutable ledger line.
func (r *CreditRepositoryPG) AppendTransaction(ctx context.Context, tx *domain.CreditTransaction) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertCreditTransaction, tx.ID, tx.OwnerID, tx.Amount, tx.Description, tx.CreatedAt); err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the newest transactions first.
func (r *CreditRepositoryPG) ListTransactions(ctx context.Context, ownerID string, limit int) ([]domain.CreditTransaction, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCreditTransactions, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.CreditTransaction
	for rows.Next() {
		var tx domain.CreditTransaction
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &tx.Amount, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

var _ domain.CreditRepository = (*CreditRepositoryPG)(nil)
