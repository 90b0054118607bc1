// Package handlers implements the HTTP API on top of the credit, job,
// pipeline and usage services.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/pipeline"
)

// CreditService is the credit ledger surface used by the API.
type CreditService interface {
	GetBalance(ctx context.Context, ownerID string) (int64, error)
	TopUp(ctx context.Context, ownerID string, amount int64, description string) (int64, error)
	Transactions(ctx context.Context, ownerID string, limit int) ([]domain.CreditTransaction, error)
}

// JobReader reads jobs on behalf of their owner.
type JobReader interface {
	GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error)
}

// BatchStarter starts charged background jobs.
type BatchStarter interface {
	StartAssetBatch(ctx context.Context, req pipeline.BatchRequest) (string, error)
	StartScript(ctx context.Context, req pipeline.ScriptRequest) (string, error)
}

// SceneLister lists the scenes of a project.
type SceneLister interface {
	ListByProject(ctx context.Context, projectID, ownerID string) ([]domain.Scene, error)
}

// SpendReporter reads usage accounting.
type SpendReporter interface {
	TotalSpend(ctx context.Context, ownerID string) (int64, error)
	Recent(ctx context.Context, ownerID string, limit int) ([]domain.UsageRecord, error)
}

type App struct {
	Credits      CreditService
	Jobs         JobReader
	Pipeline     BatchStarter
	Scenes       SceneLister
	Usage        SpendReporter
	PollInterval time.Duration
	Logger       zerolog.Logger
	// Ready, when set, backs the health check; nil means always ready.
	Ready func(context.Context) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

const maxBodyBytes = 1 << 20

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

// decode reads a JSON body into dst and validates it. An empty body decodes
// as the zero value.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		a.error(w, http.StatusBadRequest, "validation_failed", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid payload"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			msgs = append(msgs, field+" must satisfy "+fe.Tag()+"="+fe.Param())
		} else {
			msgs = append(msgs, field+" is "+fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

// owner returns the authenticated owner id or writes 401.
func (a *App) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := middleware.OwnerIDFromContext(r.Context())
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return "", false
	}
	return ownerID, true
}

// fail maps service errors onto the API error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this request")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrEmptyBatch):
		a.error(w, http.StatusUnprocessableEntity, "empty_batch", "nothing to generate")
	case errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
	case errors.Is(err, domain.ErrUnsupportedKind):
		a.error(w, http.StatusBadRequest, "unsupported_kind", "unsupported generation kind")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
	default:
		a.Logger.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("owner_id", middleware.OwnerIDFromContext(r.Context())).
			Msgf("handlers: %s failed", action)
		a.error(w, http.StatusInternalServerError, "internal", action+" failed")
	}
}

func limitParam(r *http.Request, fallback, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil || n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}
