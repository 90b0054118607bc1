package domain

import "time"

// UsageCounters carries the raw metering numbers reported for a provider call.
// Token-priced providers fill the unit counters, per-item providers fill Items.
type UsageCounters struct {
	InputUnits  int64 `json:"input_units"`
	OutputUnits int64 `json:"output_units"`
	Items       int64 `json:"items"`
}

// UsageRecord is the append-only accounting line for one provider call.
// CostMicros is expressed in millionths of the billing currency.
type UsageRecord struct {
	ID         string
	OwnerID    string
	JobID      string
	Kind       GenerationKind
	Provider   string
	Model      string
	CostMicros int64
	Counters   UsageCounters
	CreatedAt  time.Time
}
