// Package pipeline starts credit-gated batch jobs and runs them in the
// background, one scene at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"studio/internal/domain"
	"studio/internal/generation"
)

// Generator produces one artifact or text for a request.
type Generator interface {
	Generate(ctx context.Context, kind domain.GenerationKind, req generation.Request) (generation.Result, error)
}

// Charger authorizes and deducts credits.
type Charger interface {
	Charge(ctx context.Context, ownerID string, cost int64, description string) (bool, error)
}

// JobTracker is the write side of the job ledger.
type JobTracker interface {
	Create(ctx context.Context, ownerID string, kind domain.JobKind) (string, error)
	UpdateProgress(ctx context.Context, jobID string, percent int, message string) error
	Fail(ctx context.Context, jobID string, message string) error
}

// AssetCache short-circuits generation for inputs already produced.
type AssetCache interface {
	Get(ctx context.Context, prompt string, kind domain.GenerationKind, model string) (string, bool)
	Set(ctx context.Context, prompt string, kind domain.GenerationKind, model, url string)
}

// KeySource returns provider credentials keyed by provider name.
type KeySource interface {
	Keys(ctx context.Context) map[string]string
}

// Prices are the credit costs per unit of work.
type Prices struct {
	Image  int64
	Audio  int64
	Script int64
}

// Options wires a Service.
type Options struct {
	Scenes    domain.SceneRepository
	Credits   Charger
	Jobs      JobTracker
	Cache     AssetCache
	Generator Generator
	Keys      KeySource
	Prices    Prices
	Logger    zerolog.Logger
}

// Service validates and charges batch requests, then hands the work to a
// detached goroutine that reports through the job ledger.
type Service struct {
	scenes    domain.SceneRepository
	credits   Charger
	jobs      JobTracker
	cache     AssetCache
	generator Generator
	keys      KeySource
	prices    Prices
	logger    zerolog.Logger

	flight singleflight.Group
	wg     sync.WaitGroup
}

func NewService(opts Options) *Service {
	return &Service{
		scenes:    opts.Scenes,
		credits:   opts.Credits,
		jobs:      opts.Jobs,
		cache:     opts.Cache,
		generator: opts.Generator,
		keys:      opts.Keys,
		prices:    opts.Prices,
		logger:    opts.Logger,
	}
}

// BatchRequest asks for one artifact of Kind per scene of a project.
type BatchRequest struct {
	OwnerID   string
	ProjectID string
	Kind      domain.GenerationKind
	Model     string
	Voice     string
	Locale    string
}

// ScriptRequest asks for a scene list about Topic.
type ScriptRequest struct {
	OwnerID   string
	ProjectID string
	Topic     string
	Scenes    int
	Locale    string
}

const (
	defaultScriptScenes = 3
	maxScriptScenes     = 12
)

// StartAssetBatch charges for every scene of the project and starts the
// batch. Nothing is created when the charge is rejected.
func (s *Service) StartAssetBatch(ctx context.Context, req BatchRequest) (string, error) {
	var (
		price   int64
		jobKind domain.JobKind
	)
	switch req.Kind {
	case domain.KindImage:
		price, jobKind = s.prices.Image, domain.JobKindAssetBatch
	case domain.KindAudio:
		price, jobKind = s.prices.Audio, domain.JobKindAudioBatch
	default:
		return "", domain.ErrUnsupportedKind
	}

	scenes, err := s.scenes.ListByProject(ctx, req.ProjectID, req.OwnerID)
	if err != nil {
		return "", fmt.Errorf("load scenes: %w", err)
	}
	if len(scenes) == 0 {
		return "", domain.ErrEmptyBatch
	}

	cost := price * int64(len(scenes))
	desc := fmt.Sprintf("%s batch for project %s (%d scenes)", req.Kind, req.ProjectID, len(scenes))
	if err := s.charge(ctx, req.OwnerID, cost, desc); err != nil {
		return "", err
	}

	jobID, err := s.jobs.Create(ctx, req.OwnerID, jobKind)
	if err != nil {
		return "", err
	}
	s.launch(ctx, jobID, req.OwnerID, func(bg context.Context) error {
		return s.runBatch(bg, jobID, req, scenes)
	})
	return jobID, nil
}

// StartScript charges the script price and starts drafting the scene list.
func (s *Service) StartScript(ctx context.Context, req ScriptRequest) (string, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return "", domain.ErrEmptyBatch
	}
	if req.Scenes <= 0 {
		req.Scenes = defaultScriptScenes
	}
	if req.Scenes > maxScriptScenes {
		req.Scenes = maxScriptScenes
	}

	desc := fmt.Sprintf("script for project %s", req.ProjectID)
	if err := s.charge(ctx, req.OwnerID, s.prices.Script, desc); err != nil {
		return "", err
	}

	jobID, err := s.jobs.Create(ctx, req.OwnerID, domain.JobKindScript)
	if err != nil {
		return "", err
	}
	s.launch(ctx, jobID, req.OwnerID, func(bg context.Context) error {
		return s.runScript(bg, jobID, req)
	})
	return jobID, nil
}

// Wait blocks until every launched job has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) charge(ctx context.Context, ownerID string, cost int64, desc string) error {
	ok, err := s.credits.Charge(ctx, ownerID, cost, desc)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInsufficientCredits
	}
	return nil
}

// launch runs fn on a context detached from the request. Errors and panics
// end in a single Fail.
func (s *Service) launch(ctx context.Context, jobID, ownerID string, fn func(context.Context) error) {
	bg := context.WithoutCancel(ctx)
	log := s.logger.With().Str("job_id", jobID).Str("owner_id", ownerID).Logger()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("pipeline: job panicked")
				// singleflight re-panics with the stack appended; keep the first line.
				msg := strings.SplitN(fmt.Sprint(r), "\n", 2)[0]
				s.fail(bg, log, jobID, fmt.Errorf("internal error: %s", msg))
			}
		}()
		if err := fn(bg); err != nil {
			s.fail(bg, log, jobID, err)
			return
		}
		log.Info().Msg("pipeline: job completed")
	}()
}

func (s *Service) fail(ctx context.Context, log zerolog.Logger, jobID string, cause error) {
	log.Warn().Err(cause).Msg("pipeline: job failed")
	if err := s.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		log.Error().Err(err).Msg("pipeline: could not record failure")
	}
}

// progress writes a job update. A finished job is reported as errJobClosed so
// the runner stops without a second Fail.
func (s *Service) progress(ctx context.Context, jobID string, percent int, message string) error {
	err := s.jobs.UpdateProgress(ctx, jobID, percent, message)
	if errors.Is(err, domain.ErrJobFinished) {
		return errJobClosed
	}
	return err
}

var errJobClosed = errors.New("job closed")
