// Package usage turns provider calls into priced, append-only usage records
// and keeps a running spend total per owner.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// Accountant prices provider calls against an injected pricing table.
type Accountant struct {
	pricing *PricingTable
	repo    domain.UsageRepository
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAccountant(pricing *PricingTable, repo domain.UsageRepository, logger zerolog.Logger) *Accountant {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Accountant{pricing: pricing, repo: repo, logger: logger, now: time.Now}
}

// ComputeCost is deterministic in (provider, model, counters) for a given
// table. Token rates are rounded up to the next micro.
func (a *Accountant) ComputeCost(provider, model string, counters domain.UsageCounters) Micros {
	rate, known := a.pricing.Lookup(provider, model)
	if !known {
		a.logger.Debug().Str("provider", provider).Str("model", model).Msg("usage: no rate, using default")
	}
	cost := per1K(counters.InputUnits, rate.InputPer1K) +
		per1K(counters.OutputUnits, rate.OutputPer1K) +
		counters.Items*rate.PerItem
	return cost
}

func per1K(units int64, rate Micros) Micros {
	if units <= 0 || rate <= 0 {
		return 0
	}
	return (units*rate + 999) / 1000
}

// Log appends a usage record and folds its cost into the owner's spend.
// Each write logs and swallows its own failure; the two are not atomic.
func (a *Accountant) Log(ctx context.Context, rec domain.UsageRecord) domain.UsageRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = a.now().UTC()
	}
	if rec.CostMicros == 0 {
		rec.CostMicros = a.ComputeCost(rec.Provider, rec.Model, rec.Counters)
	}

	log := a.logger.With().
		Str("owner_id", rec.OwnerID).
		Str("job_id", rec.JobID).
		Str("provider", rec.Provider).
		Str("model", rec.Model).
		Int64("cost_micros", rec.CostMicros).
		Logger()

	if err := a.repo.Append(ctx, &rec); err != nil {
		log.Error().Err(err).Msg("usage: record not written")
	}
	if rec.CostMicros > 0 {
		if err := a.repo.AddSpend(ctx, rec.OwnerID, rec.CostMicros); err != nil {
			log.Error().Err(err).Msg("usage: spend not updated")
		}
	}
	log.Debug().Msg("usage: logged")
	return rec
}

// TotalSpend returns the running spend for the owner.
func (a *Accountant) TotalSpend(ctx context.Context, ownerID string) (Micros, error) {
	return a.repo.TotalSpend(ctx, ownerID)
}

// Recent returns the newest usage records first.
func (a *Accountant) Recent(ctx context.Context, ownerID string, limit int) ([]domain.UsageRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return a.repo.ListRecent(ctx, ownerID, limit)
}

// Pricing exposes the table the accountant was built with.
func (a *Accountant) Pricing() *PricingTable {
	return a.pricing
}
