package repo

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// UsageRepositoryPG implements domain.UsageRepository.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUsageRepository creates a usage repository backed by PostgreSQL.
func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

func (r *UsageRepositoryPG) Append(ctx context.Context, rec *domain.UsageRecord) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertUsageRecord,
		rec.ID,
		rec.OwnerID,
		rec.JobID,
		string(rec.Kind),
		rec.Provider,
		rec.Model,
		rec.CostMicros,
		rec.Counters.InputUnits,
		rec.Counters.OutputUnits,
		rec.Counters.Items,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

func (r *UsageRepositoryPG) AddSpend(ctx context.Context, ownerID string, micros int64) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QAddOwnerSpend, ownerID, micros); err != nil {
		return fmt.Errorf("add owner spend: %w", err)
	}
	return nil
}

func (r *UsageRepositoryPG) TotalSpend(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectOwnerSpend, ownerID).Scan(&total); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("select owner spend: %w", err)
	}
	return total, nil
}

func (r *UsageRepositoryPG) ListRecent(ctx context.Context, ownerID string, limit int) ([]domain.UsageRecord, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListUsageRecords, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	defer rows.Close()

	var out []domain.UsageRecord
	for rows.Next() {
		var (
			rec  domain.UsageRecord
			kind string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.OwnerID,
			&rec.JobID,
			&kind,
			&rec.Provider,
			&rec.Model,
			&rec.CostMicros,
			&rec.Counters.InputUnits,
			&rec.Counters.OutputUnits,
			&rec.Counters.Items,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		rec.Kind = domain.GenerationKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ domain.UsageRepository = (*UsageRepositoryPG)(nil)
