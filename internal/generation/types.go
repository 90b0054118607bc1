// Package generation routes every generation call through an ordered chain
// of interchangeable providers and normalizes what they return.
package generation

import (
	"context"
	"strings"

	"studio/internal/domain"
)

// Request is the provider-agnostic input of one generation call.
type Request struct {
	OwnerID string
	JobID   string
	Prompt  string
	// Model is a preference; providers without that model use their own.
	Model  string
	Voice  string
	Locale string
	// Credentials maps provider name to API key.
	Credentials map[string]string
}

// Credential returns the trimmed key for the provider, if any.
func (r Request) Credential(provider string) string {
	if r.Credentials == nil {
		return ""
	}
	return strings.TrimSpace(r.Credentials[provider])
}

// Result is the single shape every provider response is normalized into.
// Exactly one of ArtifactURL and Text is set.
type Result struct {
	ArtifactURL string
	Text        string
	Provider    string
	Model       string
	Counters    domain.UsageCounters
}

// Placeholder reports whether the result is the masked text fallback.
func (r Result) Placeholder() bool {
	return r.Provider == PlaceholderProvider
}

const (
	// CacheProvider marks results served from the asset cache.
	CacheProvider = "cache"
	// PlaceholderProvider marks the deterministic text fallback.
	PlaceholderProvider = "placeholder"
)

// Provider is one vendor integration for one kind.
type Provider interface {
	Name() string
	Model() string
	Kind() domain.GenerationKind
	// Configured reports whether the request carries what the provider
	// needs, usually a credential.
	Configured(req Request) bool
	Generate(ctx context.Context, req Request) (Response, error)
}

// ArtifactStore persists inline payloads and returns their public URL.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// UsageLogger records the realized cost of a successful provider call.
type UsageLogger interface {
	Log(ctx context.Context, rec domain.UsageRecord) domain.UsageRecord
}
