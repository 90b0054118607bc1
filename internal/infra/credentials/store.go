// Package credentials resolves the vendor API keys handed to generation
// providers. Keys stored in the database override the environment.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderQwen       = "qwen"
	ProviderElevenLabs = "elevenlabs"
)

// KnownProviders lists every provider a key can be stored for.
var KnownProviders = []string{ProviderGemini, ProviderOpenAI, ProviderQwen, ProviderElevenLabs}

var ErrUnknownProvider = errors.New("credentials: unknown provider")

// Source returns the keys it holds by provider name.
type Source interface {
	Keys(ctx context.Context) (map[string]string, error)
}

// Store keeps keys in the provider_keys table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) Keys(ctx context.Context) (map[string]string, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListProviderKeys)
	if err != nil {
		return nil, fmt.Errorf("list provider keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var provider, key string
		if err := rows.Scan(&provider, &key); err != nil {
			return nil, fmt.Errorf("scan provider key: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			out[provider] = key
		}
	}
	return out, rows.Err()
}

// Set stores key for a known provider, replacing any previous one.
func (s *Store) Set(ctx context.Context, provider, key string) error {
	provider, err := normalize(provider)
	if err != nil {
		return err
	}
	if key = strings.TrimSpace(key); key == "" {
		return fmt.Errorf("credentials: empty key for %s", provider)
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertProviderKey, provider, key)
	return err
}

// Delete removes the stored key so the environment applies again. It
// reports whether a key was stored.
func (s *Store) Delete(ctx context.Context, provider string) (bool, error) {
	provider, err := normalize(provider)
	if err != nil {
		return false, err
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteProviderKey, provider)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func normalize(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !slices.Contains(KnownProviders, provider) {
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}
	return provider, nil
}

// Static serves a fixed map, usually filled from the environment.
type Static map[string]string

func (s Static) Keys(context.Context) (map[string]string, error) {
	return s, nil
}

// Resolver merges a primary source over a static fallback.
type Resolver struct {
	primary  Source
	fallback Static
	logger   zerolog.Logger
}

// NewResolver accepts a nil primary, in which case only fallback is used.
func NewResolver(primary Source, fallback Static, logger zerolog.Logger) *Resolver {
	return &Resolver{primary: primary, fallback: fallback, logger: logger}
}

// Keys returns the non-empty key of every known provider. A failing
// primary is logged and the fallback used for all providers.
func (r *Resolver) Keys(ctx context.Context) map[string]string {
	var stored map[string]string
	if r.primary != nil {
		var err error
		if stored, err = r.primary.Keys(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("credentials: stored keys unavailable, using environment")
		}
	}

	out := make(map[string]string, len(KnownProviders))
	for _, provider := range KnownProviders {
		key := strings.TrimSpace(stored[provider])
		if key == "" {
			key = strings.TrimSpace(r.fallback[provider])
		}
		if key != "" {
			out[provider] = key
		}
	}
	return out
}

// Mask shortens key for display, keeping the last four characters.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
