package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/pipeline"
)

type scriptRequest struct {
	Topic  string `json:"topic" validate:"required,min=3,max=500"`
	Scenes int    `json:"scenes" validate:"omitempty,min=1,max=12"`
	Locale string `json:"locale" validate:"omitempty,bcp47_language_tag"`
}

type imagesRequest struct {
	Model string `json:"model" validate:"omitempty,max=64"`
}

type audioRequest struct {
	Voice string `json:"voice" validate:"omitempty,max=64"`
}

type jobAccepted struct {
	JobID          string `json:"job_id"`
	PollIntervalMS int64  `json:"poll_interval_ms"`
}

type sceneDTO struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"sequence"`
	Title        string    `json:"title"`
	Narration    string    `json:"narration"`
	VisualPrompt string    `json:"visual_prompt"`
	ImageURL     string    `json:"image_url,omitempty"`
	AudioURL     string    `json:"audio_url,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *App) StartScript(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	var req scriptRequest
	if !a.decode(w, r, &req) {
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}
	jobID, err := a.Pipeline.StartScript(r.Context(), pipeline.ScriptRequest{
		OwnerID:   ownerID,
		ProjectID: chi.URLParam(r, "project_id"),
		Topic:     req.Topic,
		Scenes:    req.Scenes,
		Locale:    locale,
	})
	if err != nil {
		a.fail(w, r, err, "start script")
		return
	}
	a.accepted(w, jobID)
}

func (a *App) StartImages(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	var req imagesRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.startBatch(w, r, pipeline.BatchRequest{
		OwnerID:   ownerID,
		ProjectID: chi.URLParam(r, "project_id"),
		Kind:      domain.KindImage,
		Model:     strings.TrimSpace(req.Model),
		Locale:    middleware.LocaleFromContext(r.Context()),
	})
}

func (a *App) StartAudio(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	var req audioRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.startBatch(w, r, pipeline.BatchRequest{
		OwnerID:   ownerID,
		ProjectID: chi.URLParam(r, "project_id"),
		Kind:      domain.KindAudio,
		Voice:     strings.TrimSpace(req.Voice),
		Locale:    middleware.LocaleFromContext(r.Context()),
	})
}

func (a *App) startBatch(w http.ResponseWriter, r *http.Request, req pipeline.BatchRequest) {
	jobID, err := a.Pipeline.StartAssetBatch(r.Context(), req)
	if err != nil {
		a.fail(w, r, err, "start "+string(req.Kind)+" batch")
		return
	}
	a.accepted(w, jobID)
}

func (a *App) accepted(w http.ResponseWriter, jobID string) {
	a.json(w, http.StatusAccepted, jobAccepted{
		JobID:          jobID,
		PollIntervalMS: a.PollInterval.Milliseconds(),
	})
}

func (a *App) ListScenes(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := a.owner(w, r)
	if !ok {
		return
	}
	scenes, err := a.Scenes.ListByProject(r.Context(), chi.URLParam(r, "project_id"), ownerID)
	if err != nil {
		a.fail(w, r, err, "list scenes")
		return
	}
	items := make([]sceneDTO, 0, len(scenes))
	for _, s := range scenes {
		items = append(items, sceneDTO{
			ID:           s.ID,
			Sequence:     s.Sequence,
			Title:        s.Title,
			Narration:    s.Narration,
			VisualPrompt: s.VisualPrompt,
			ImageURL:     s.ImageURL,
			AudioURL:     s.AudioURL,
			UpdatedAt:    s.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
