package prompt

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Fallback   Enhancer
	OnFallback func(reason string, err error)
}

// GeminiEnhancer rewrites prompts with a Gemini model through the REST
// generateContent endpoint, asking for a JSON response.
type GeminiEnhancer struct {
	remote
	endpoint string
	header   http.Header
	client   *http.Client
}

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	header := http.Header{}
	header.Set("x-goog-api-key", key)

	e := &GeminiEnhancer{
		endpoint: base + "/models/" + url.PathEscape(model) + ":generateContent",
		header:   header,
		client:   client,
	}
	e.remote = remote{name: geminiProviderName, complete: e.complete, fallback: opts.Fallback, onFallback: opts.OnFallback}
	return e, nil
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		CandidateCount   int     `json:"candidateCount"`
		ResponseMimeType string  `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiEnhancer) complete(ctx context.Context, instruction string) (string, error) {
	var payload geminiRequest
	payload.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: instruction}}}}
	payload.GenerationConfig.Temperature = 0.5
	payload.GenerationConfig.CandidateCount = 1
	payload.GenerationConfig.ResponseMimeType = "application/json"

	var out geminiResponse
	if err := postJSON(ctx, g.client, g.endpoint, g.header, payload, &out); err != nil {
		return "", err
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", nil
}

var _ Enhancer = (*GeminiEnhancer)(nil)
