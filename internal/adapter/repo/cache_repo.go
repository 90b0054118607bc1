package repo

import (
	"context"
	"fmt"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// CacheRepositoryPG implements domain.CacheRepository.
type CacheRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCacheRepository creates a cache repository backed by PostgreSQL.
func NewCacheRepository(sql infra.SQLExecutor) *CacheRepositoryPG {
	return &CacheRepositoryPG{sql: sql}
}

func (r *CacheRepositoryPG) Lookup(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	var (
		entry domain.CacheEntry
		kind  string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectCacheEntry, fingerprint).Scan(
		&entry.Fingerprint,
		&kind,
		&entry.ArtifactURL,
		&entry.Model,
		&entry.HitCount,
		&entry.LastUsedAt,
		&entry.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select cache entry: %w", err)
	}
	entry.Kind = domain.GenerationKind(kind)
	return &entry, nil
}

func (r *CacheRepositoryPG) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QUpsertCacheEntry, entry.Fingerprint, string(entry.Kind), entry.ArtifactURL, entry.Model); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (r *CacheRepositoryPG) Touch(ctx context.Context, fingerprint string, at time.Time) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QTouchCacheEntry, fingerprint, at); err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

var _ domain.CacheRepository = (*CacheRepositoryPG)(nil)
