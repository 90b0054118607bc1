// Package prompt rewrites generation prompts before they reach a provider.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EnhanceRequest carries the prompt to rewrite. Kind is the generation kind
// the prompt is destined for ("text" or "image").
type EnhanceRequest struct {
	Prompt string
	Kind   string
	Locale string
}

// EnhanceResponse is the rewritten prompt. Metadata carries
// "fallback_reason" when a remote enhancer fell back.
type EnhanceResponse struct {
	Prompt   string            `json:"prompt"`
	Keywords []string          `json:"keywords"`
	Metadata map[string]string `json:"metadata"`
	Provider string            `json:"-"`
}

type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
}

// StaticEnhancer appends a fixed style brief. It never calls out.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	base := strings.TrimSpace(req.Prompt)
	if base == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	tag := language.Make(locale)
	var brief string
	switch req.Kind {
	case "image":
		brief = "cinematic lighting, consistent color palette, 16:9 frame, no text overlay"
	default:
		brief = "clear structure, short sentences, engaging narration"
	}
	out := fmt.Sprintf("%s. Style: %s.", strings.TrimRight(base, ". "), brief)
	return &EnhanceResponse{
		Prompt:   out,
		Keywords: keywordsFrom(base, tag),
		Metadata: withLocale(nil, req.Locale),
		Provider: staticProviderName,
	}, nil
}

// keywordsFrom picks the longer words of the prompt, title-cased for the
// locale.
func keywordsFrom(prompt string, tag language.Tag) []string {
	c := cases.Title(tag)
	var words []string
	for _, w := range strings.Fields(prompt) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len([]rune(w)) < 5 {
			continue
		}
		words = append(words, c.String(w))
	}
	return dedupeKeywords(words)
}

var _ Enhancer = (*StaticEnhancer)(nil)
