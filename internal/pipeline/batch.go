package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio/internal/assetcache"
	"studio/internal/domain"
	"studio/internal/generation"
)

func (s *Service) runBatch(ctx context.Context, jobID string, req BatchRequest, scenes []domain.Scene) error {
	total := len(scenes)
	if err := s.progress(ctx, jobID, 0, "starting"); err != nil {
		return closedIsDone(err)
	}
	keys := s.credentials(ctx)

	for i, scene := range scenes {
		input := sceneInput(scene, req.Kind)
		if input == "" {
			return fmt.Errorf("scene %d has no %s input", scene.Sequence, req.Kind)
		}
		res, err := s.produce(ctx, req.Kind, generation.Request{
			OwnerID:     req.OwnerID,
			JobID:       jobID,
			Prompt:      input,
			Model:       req.Model,
			Voice:       req.Voice,
			Locale:      req.Locale,
			Credentials: keys,
		})
		if err != nil {
			return fmt.Errorf("scene %d: %w", scene.Sequence, err)
		}
		if err := s.scenes.SetArtifact(ctx, scene.ID, req.Kind, res.ArtifactURL); err != nil {
			return fmt.Errorf("scene %d: save artifact: %w", scene.Sequence, err)
		}

		done := i + 1
		msg := fmt.Sprintf("%d/%d scenes", done, total)
		if err := s.progress(ctx, jobID, done*100/total, msg); err != nil {
			return closedIsDone(err)
		}
		s.logger.Debug().
			Str("job_id", jobID).
			Str("provider", res.Provider).
			Int("scene", scene.Sequence).
			Msg("pipeline: scene done")
	}
	return nil
}

// produce serves the artifact from the cache or generates it. Concurrent
// misses for the same fingerprint within this process share one call.
func (s *Service) produce(ctx context.Context, kind domain.GenerationKind, req generation.Request) (generation.Result, error) {
	model := cacheDiscriminator(kind, req)
	if url, ok := s.cacheGet(ctx, req.Prompt, kind, model); ok {
		return generation.Result{ArtifactURL: url, Provider: generation.CacheProvider}, nil
	}

	fp := assetcache.Fingerprint(req.Prompt, kind, model)
	v, err, _ := s.flight.Do(fp, func() (any, error) {
		if url, ok := s.cacheGet(ctx, req.Prompt, kind, model); ok {
			return generation.Result{ArtifactURL: url, Provider: generation.CacheProvider}, nil
		}
		res, err := s.generator.Generate(ctx, kind, req)
		if err != nil {
			return nil, err
		}
		if res.ArtifactURL == "" {
			return nil, fmt.Errorf("%s: %w: no artifact returned", kind, domain.ErrGenerationFailed)
		}
		if s.cache != nil {
			s.cache.Set(ctx, req.Prompt, kind, model, res.ArtifactURL)
		}
		return res, nil
	})
	if err != nil {
		return generation.Result{}, err
	}
	return v.(generation.Result), nil
}

func (s *Service) cacheGet(ctx context.Context, prompt string, kind domain.GenerationKind, model string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	return s.cache.Get(ctx, prompt, kind, model)
}

func (s *Service) credentials(ctx context.Context) map[string]string {
	if s.keys == nil {
		return nil
	}
	return s.keys.Keys(ctx)
}

// sceneInput picks what a scene contributes to a kind: the visual prompt for
// images and the narration for audio, falling back to the other fields.
func sceneInput(scene domain.Scene, kind domain.GenerationKind) string {
	var candidates []string
	if kind == domain.KindAudio {
		candidates = []string{scene.Narration, scene.Title}
	} else {
		candidates = []string{scene.VisualPrompt, scene.Narration, scene.Title}
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// cacheDiscriminator is the model part of the fingerprint. Narration is keyed
// by voice since the voice changes the artifact.
func cacheDiscriminator(kind domain.GenerationKind, req generation.Request) string {
	if kind == domain.KindAudio {
		return "voice:" + strings.TrimSpace(req.Voice)
	}
	return strings.TrimSpace(req.Model)
}

func closedIsDone(err error) error {
	if errors.Is(err, errJobClosed) {
		return nil
	}
	return err
}
