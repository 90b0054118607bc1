// Package text holds the text-kind (script) generation providers.
package text

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studio/internal/domain"
	"studio/internal/generation"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// generateFunc performs one completion and returns the text plus token
// counts.
type generateFunc func(ctx context.Context, apiKey, model, prompt string) (string, domain.UsageCounters, error)

// GeminiWriter writes scripts with a Gemini text model through the
// generative-ai-go SDK.
type GeminiWriter struct {
	model    string
	generate generateFunc
}

func NewGeminiWriter(model string) *GeminiWriter {
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiWriter{model: model, generate: generateWithSDK}
}

func (g *GeminiWriter) Name() string { return ProviderGemini }

func (g *GeminiWriter) Model() string { return g.model }

func (g *GeminiWriter) Kind() domain.GenerationKind { return domain.KindText }

func (g *GeminiWriter) Configured(req generation.Request) bool {
	return req.Credential(ProviderGemini) != ""
}

func (g *GeminiWriter) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	model := preferredModel(req.Model, "gemini", g.model)
	out, counters, err := g.generate(ctx, req.Credential(ProviderGemini), model, req.Prompt)
	if err != nil {
		return nil, err
	}
	return generation.TextResponse{
		Meta: generation.Meta{Model: model, Counters: counters},
		Text: out,
	}, nil
}

func generateWithSDK(ctx context.Context, apiKey, modelName, prompt string) (string, domain.UsageCounters, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", domain.UsageCounters{}, fmt.Errorf("gemini: create client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", domain.UsageCounters{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	out, err := extractText(resp)
	if err != nil {
		return "", domain.UsageCounters{}, err
	}
	var counters domain.UsageCounters
	if resp.UsageMetadata != nil {
		counters.InputUnits = int64(resp.UsageMetadata.PromptTokenCount)
		counters.OutputUnits = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, counters, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("gemini: no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	if len(parts) == 0 {
		return "", errors.New("gemini: no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// preferredModel honors the requested model only when it belongs to this
// vendor's family.
func preferredModel(requested, family, fallback string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" && strings.HasPrefix(strings.ToLower(requested), family) {
		return requested
	}
	return fallback
}

var _ generation.Provider = (*GeminiWriter)(nil)
