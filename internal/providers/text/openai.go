package text

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/generation"
)

// OpenAIOptions configures the chat completions writer.
type OpenAIOptions struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIWriter writes scripts through the chat completions endpoint.
type OpenAIWriter struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const scriptSystemPrompt = "You write short narrated video scripts. Follow the requested output format exactly."

func NewOpenAIWriter(opts OpenAIOptions) *OpenAIWriter {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIWriter{baseURL: baseURL, model: model, httpClient: client}
}

func (o *OpenAIWriter) Name() string { return ProviderOpenAI }

func (o *OpenAIWriter) Model() string { return o.model }

func (o *OpenAIWriter) Kind() domain.GenerationKind { return domain.KindText }

func (o *OpenAIWriter) Configured(req generation.Request) bool {
	return req.Credential(ProviderOpenAI) != ""
}

func (o *OpenAIWriter) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	model := preferredModel(req.Model, "gpt", o.model)
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: scriptSystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: 0.7,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential(ProviderOpenAI))

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("openai: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}
	if parsed.Model != "" {
		model = parsed.Model
	}
	return generation.TextResponse{
		Meta: generation.Meta{
			Model: model,
			Counters: domain.UsageCounters{
				InputUnits:  parsed.Usage.PromptTokens,
				OutputUnits: parsed.Usage.CompletionTokens,
			},
		},
		Text: parsed.Choices[0].Message.Content,
	}, nil
}

var _ generation.Provider = (*OpenAIWriter)(nil)
