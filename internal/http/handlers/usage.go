package handlers

import (
	"net/http"
	"time"
)

type usageRecordDTO struct {
	JobID       string    `json:"job_id,omitempty"`
	Kind        string    `json:"kind"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	CostMicros  int64     `json:"cost_micros"`
	InputUnits  int64     `json:"input_units"`
	OutputUnits int64     `json:"output_units"`
	Items       int64     `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *App) UsageSummary(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	total, err := a.Usage.TotalSpend(r.Context(), ownerID)
	if err != nil {
		a.fail(w, r, err, "read spend")
		return
	}
	recs, err := a.Usage.Recent(r.Context(), ownerID, limitParam(r, 20, 200))
	if err != nil {
		a.fail(w, r, err, "list usage")
		return
	}
	items := make([]usageRecordDTO, 0, len(recs))
	for _, rec := range recs {
		items = append(items, usageRecordDTO{
			JobID:       rec.JobID,
			Kind:        string(rec.Kind),
			Provider:    rec.Provider,
			Model:       rec.Model,
			CostMicros:  rec.CostMicros,
			InputUnits:  rec.Counters.InputUnits,
			OutputUnits: rec.Counters.OutputUnits,
			Items:       rec.Counters.Items,
			CreatedAt:   rec.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"total_spend_micros": total,
		"records":            items,
	})
}
