package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type jobDTO struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStatus returns the job to its owner. Jobs of other owners read as 404.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	job, err := a.Jobs.GetForOwner(r.Context(), chi.URLParam(r, "job_id"), ownerID)
	if err != nil {
		a.fail(w, r, err, "read job")
		return
	}
	a.json(w, http.StatusOK, jobDTO{
		ID:        job.ID,
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Message:   job.Message,
		Error:     job.Error,
		UpdatedAt: job.UpdatedAt,
	})
}
