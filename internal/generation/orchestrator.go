package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/providers/prompt"
)

// PlaceholderFunc builds the deterministic text returned when every text
// provider fails.
type PlaceholderFunc func(req Request) string

// Options wires an Orchestrator.
type Options struct {
	Providers   []Provider
	Store       ArtifactStore
	Usage       UsageLogger
	Enhancer    prompt.Enhancer
	Placeholder PlaceholderFunc
	Logger      zerolog.Logger
}

// Orchestrator is the single entry point for generation calls.
type Orchestrator struct {
	chains      map[domain.GenerationKind][]Provider
	store       ArtifactStore
	usage       UsageLogger
	enhancer    prompt.Enhancer
	placeholder PlaceholderFunc
	logger      zerolog.Logger
	now         func() time.Time
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		chains:      make(map[domain.GenerationKind][]Provider),
		store:       opts.Store,
		usage:       opts.Usage,
		enhancer:    opts.Enhancer,
		placeholder: opts.Placeholder,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if o.placeholder == nil {
		o.placeholder = DefaultPlaceholder
	}
	for _, p := range opts.Providers {
		o.Register(p)
	}
	return o
}

// Register appends p to the chain of its kind. Registration order is
// priority order.
func (o *Orchestrator) Register(p Provider) {
	if p == nil {
		return
	}
	o.chains[p.Kind()] = append(o.chains[p.Kind()], p)
}

// Chain lists the provider names for kind in priority order.
func (o *Orchestrator) Chain(kind domain.GenerationKind) []string {
	names := make([]string, 0, len(o.chains[kind]))
	for _, p := range o.chains[kind] {
		names = append(names, p.Name())
	}
	return names
}

// Generate tries the providers for kind in order and returns the first
// success. Text never fails: an exhausted chain yields a placeholder. Image
// and audio return ErrNoProviders when nothing is configured and
// ErrGenerationFailed when every configured provider failed.
func (o *Orchestrator) Generate(ctx context.Context, kind domain.GenerationKind, req Request) (Result, error) {
	if _, err := domain.ParseGenerationKind(string(kind)); err != nil {
		return Result{}, err
	}
	log := o.logger.With().
		Str("kind", string(kind)).
		Str("owner_id", req.OwnerID).
		Str("job_id", req.JobID).
		Logger()

	req = o.enhance(ctx, kind, req, log)

	var (
		lastErr   error
		attempted int
	)
	for _, p := range o.chains[kind] {
		if !p.Configured(req) {
			log.Debug().Str("provider", p.Name()).Msg("orchestrator: provider not configured, skipping")
			continue
		}
		attempted++
		res, err := o.attempt(ctx, kind, p, req)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("provider", p.Name()).Msg("orchestrator: provider failed")
			continue
		}
		o.record(ctx, kind, req, res)
		log.Info().Str("provider", res.Provider).Str("model", res.Model).Msg("orchestrator: generated")
		return res, nil
	}

	if kind == domain.KindText {
		log.Error().Err(lastErr).Int("attempted", attempted).Msg("orchestrator: text chain exhausted, returning placeholder")
		return Result{
			Text:     o.placeholder(req),
			Provider: PlaceholderProvider,
			Model:    PlaceholderProvider,
		}, nil
	}
	if attempted == 0 {
		return Result{}, fmt.Errorf("%s: %w", kind, domain.ErrNoProviders)
	}
	return Result{}, fmt.Errorf("%s: %w: %w", kind, domain.ErrGenerationFailed, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, kind domain.GenerationKind, p Provider, req Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	resp, err := p.Generate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if resp == nil {
		return Result{}, errEmptyPayload
	}
	res, err = resp.normalize(ctx, normalizer{
		store:    o.store,
		kind:     kind,
		provider: p.Name(),
		key:      o.artifactKey(kind, p.Name()),
	})
	if err != nil {
		return Result{}, err
	}
	if res.Model == "" {
		res.Model = p.Model()
	}
	return res, nil
}

func (o *Orchestrator) record(ctx context.Context, kind domain.GenerationKind, req Request, res Result) {
	if o.usage == nil {
		return
	}
	o.usage.Log(ctx, domain.UsageRecord{
		OwnerID:  req.OwnerID,
		JobID:    req.JobID,
		Kind:     kind,
		Provider: res.Provider,
		Model:    res.Model,
		Counters: res.Counters,
	})
}

// enhance rewrites the prompt for text and image requests. Audio narration
// is spoken verbatim. Any enhancer failure keeps the original prompt.
func (o *Orchestrator) enhance(ctx context.Context, kind domain.GenerationKind, req Request, log zerolog.Logger) Request {
	if o.enhancer == nil || kind == domain.KindAudio || strings.TrimSpace(req.Prompt) == "" {
		return req
	}
	res, err := o.enhancer.Enhance(ctx, prompt.EnhanceRequest{
		Prompt: req.Prompt,
		Kind:   string(kind),
		Locale: req.Locale,
	})
	if err != nil || res == nil || strings.TrimSpace(res.Prompt) == "" {
		if err == nil {
			err = errors.New("empty enhancement")
		}
		log.Warn().Err(err).Msg("orchestrator: enhancement failed, using original prompt")
		return req
	}
	if reason := res.Metadata["fallback_reason"]; reason != "" {
		log.Debug().Str("enhancer", res.Provider).Str("fallback_reason", reason).Msg("orchestrator: enhancer fell back")
	}
	req.Prompt = res.Prompt
	return req
}

func (o *Orchestrator) artifactKey(kind domain.GenerationKind, provider string) string {
	return fmt.Sprintf("%s/%s/%s-%s", kind, o.now().UTC().Format("2006/01/02"), provider, uuid.NewString())
}

// DefaultPlaceholder returns a short deterministic text derived from the
// prompt.
func DefaultPlaceholder(req Request) string {
	p := strings.TrimSpace(req.Prompt)
	if p == "" {
		return "Content is being prepared."
	}
	return fmt.Sprintf("Draft: %s", p)
}
