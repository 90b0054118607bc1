// Package assetcache maps normalized generation inputs to artifacts that were
// already produced, so identical work is not paid for twice.
package assetcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

const touchTimeout = 5 * time.Second

// Fingerprint is a pure function of its inputs. Prompt, kind and model are
// trimmed and lower-cased before hashing.
func Fingerprint(prompt string, kind domain.GenerationKind, model string) string {
	parts := []string{
		normalize(prompt),
		normalize(string(kind)),
		normalize(model),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// Cache reads and writes cache entries. The fingerprint space is global and
// not scoped per owner.
type Cache struct {
	repo   domain.CacheRepository
	logger zerolog.Logger
	now    func() time.Time
	// touched receives the fingerprint after each async metadata update.
	touched func(string)
}

func New(repo domain.CacheRepository, logger zerolog.Logger) *Cache {
	return &Cache{repo: repo, logger: logger, now: time.Now}
}

// Get returns the cached artifact URL. Lookup failures are logged and treated
// as a miss. A hit bumps hit count and last-used in the background.
func (c *Cache) Get(ctx context.Context, prompt string, kind domain.GenerationKind, model string) (string, bool) {
	fp := Fingerprint(prompt, kind, model)
	entry, err := c.repo.Lookup(ctx, fp)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn().Err(err).Str("fingerprint", fp).Msg("assetcache: lookup failed")
		}
		return "", false
	}
	if entry.ArtifactURL == "" {
		return "", false
	}

	go c.touch(context.WithoutCancel(ctx), fp)
	return entry.ArtifactURL, true
}

// Set records the artifact for the inputs. Concurrent first writers for one
// fingerprint race; the last write wins.
func (c *Cache) Set(ctx context.Context, prompt string, kind domain.GenerationKind, model, artifactURL string) {
	if strings.TrimSpace(artifactURL) == "" {
		return
	}
	entry := &domain.CacheEntry{
		Fingerprint: Fingerprint(prompt, kind, model),
		Kind:        kind,
		ArtifactURL: artifactURL,
		Model:       model,
	}
	if err := c.repo.Upsert(ctx, entry); err != nil {
		c.logger.Warn().Err(err).Str("fingerprint", entry.Fingerprint).Msg("assetcache: write failed")
	}
}

func (c *Cache) touch(ctx context.Context, fp string) {
	ctx, cancel := context.WithTimeout(ctx, touchTimeout)
	defer cancel()
	if err := c.repo.Touch(ctx, fp, c.now().UTC()); err != nil {
		c.logger.Debug().Err(err).Str("fingerprint", fp).Msg("assetcache: touch failed")
	}
	if c.touched != nil {
		c.touched(fp)
	}
}
