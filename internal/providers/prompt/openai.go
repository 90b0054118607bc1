package prompt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Fallback     Enhancer
	OnFallback   func(reason string, err error)
	// OnWarning reports a model name that was replaced by the default.
	OnWarning func(reason, detail string)
}

// OpenAIEnhancer rewrites prompts with a chat completions model in JSON mode.
type OpenAIEnhancer struct {
	remote
	model    string
	endpoint string
	header   http.Header
	client   *http.Client
}

func NewOpenAIEnhancer(opts OpenAIOptions) (*OpenAIEnhancer, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("openai api key is required")
	}
	model, replaced := resolveOpenAIModel(opts.Model)
	if replaced && opts.OnWarning != nil {
		opts.OnWarning("model_defaulted", "requested="+strings.TrimSpace(opts.Model)+" resolved="+model)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+key)
	if org := strings.TrimSpace(opts.Organization); org != "" {
		header.Set("OpenAI-Organization", org)
	}

	e := &OpenAIEnhancer{
		model:    model,
		endpoint: base + "/chat/completions",
		header:   header,
		client:   client,
	}
	e.remote = remote{name: openAIProviderName, complete: e.complete, fallback: opts.Fallback, onFallback: opts.OnFallback}
	return e, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAIEnhancer) complete(ctx context.Context, instruction string) (string, error) {
	payload := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You rewrite prompts and reply with valid JSON only."},
			{Role: "user", Content: instruction},
		},
		Temperature:    0.6,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	var out chatResponse
	if err := postJSON(ctx, o.client, o.endpoint, o.header, payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", &stageError{stage: "empty_choices", err: errors.New("no choices returned")}
	}
	return out.Choices[0].Message.Content, nil
}

// resolveOpenAIModel normalizes spelling and keeps any chat model family
// name; anything else becomes the default. replaced reports the latter.
func resolveOpenAIModel(name string) (model string, replaced bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("_", "-", " ", "-").Replace(n)
	switch {
	case n == "":
		return defaultOpenAIModel, false
	case strings.HasPrefix(n, "gpt-"), strings.HasPrefix(n, "o1"), strings.HasPrefix(n, "o3"), strings.HasPrefix(n, "o4"):
		return n, false
	default:
		return defaultOpenAIModel, true
	}
}

var _ Enhancer = (*OpenAIEnhancer)(nil)
