// Package qwen talks to the DashScope multimodal generation endpoint that
// serves the Qwen image models.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	defaultModel   = "qwen-image-plus"
	defaultSize    = "1664*928"
	generationPath = "/services/aigc/multimodal-generation/generation"
)

var (
	// ErrMissingAPIKey indicates that the call was made without credentials.
	ErrMissingAPIKey = errors.New("qwen: api key is required")
	ErrEmptyPrompt   = errors.New("qwen: prompt is required")
	ErrNoImage       = errors.New("qwen: response carried no image url")
)

// maxImageBytes bounds a downloaded result.
const maxImageBytes = 32 << 20

// APIError is a failure reported by DashScope, either as a non-2xx status or
// as an error code inside a 200 body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("qwen: status %d: %s (%s)", e.StatusCode, msg, e.Code)
	}
	return fmt.Sprintf("qwen: status %d: %s", e.StatusCode, msg)
}

// transientCodes are DashScope error codes worth one more attempt.
var transientCodes = map[string]bool{
	"InternalError":              true,
	"InternalError.Algo":         true,
	"InternalError.Timeout":      true,
	"ServiceUnavailable":         true,
	"Throttling":                 true,
	"Throttling.RateQuota":       true,
	"Throttling.AllocationQuota": true,
}

// IsTransient reports whether err is a temporary DashScope failure: a 5xx,
// a throttling or internal error code, or a network timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError ||
			apiErr.StatusCode == http.StatusTooManyRequests ||
			transientCodes[apiErr.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Options configures the client. Zero values fall back to the public
// endpoint and the qwen-image-plus model.
type Options struct {
	BaseURL        string
	Model          string
	DefaultSize    string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs image generation calls. The API key is supplied per call
// so one client serves every owner.
type Client struct {
	endpoint     string
	model        string
	size         string
	promptExtend bool
	watermark    bool
	httpClient   *http.Client
	logger       zerolog.Logger
}

// ImageRequest captures the inputs of one generation.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
}

// ImageAsset is a generated image. URL is the signed DashScope link, which
// expires; Data holds the downloaded bytes.
type ImageAsset struct {
	URL       string
	Data      []byte
	MIMEType  string
	Width     int
	Height    int
	RequestID string
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:     orDefault(strings.TrimRight(opts.BaseURL, "/"), defaultBaseURL) + generationPath,
		model:        orDefault(opts.Model, defaultModel),
		size:         orDefault(opts.DefaultSize, defaultSize),
		promptExtend: opts.PromptExtend,
		watermark:    opts.Watermark,
		httpClient:   httpClient,
		logger:       opts.Logger,
	}
}

func (c *Client) Model() string {
	return c.model
}

// GenerateImage makes a single call and downloads the first image it
// references.
func (c *Client) GenerateImage(ctx context.Context, apiKey string, req ImageRequest) (*ImageAsset, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	out, err := c.post(ctx, apiKey, c.payload(prompt, req))
	if err != nil {
		return nil, err
	}
	asset := &ImageAsset{
		URL:       out.imageURL(),
		Width:     out.Usage.Width,
		Height:    out.Usage.Height,
		RequestID: out.RequestID,
	}
	if asset.URL == "" {
		return nil, ErrNoImage
	}
	asset.Data, asset.MIMEType, err = c.download(ctx, asset.URL)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", asset.RequestID).
		Msg("qwen: image generated")
	return asset, nil
}

func (c *Client) payload(prompt string, req ImageRequest) wireRequest {
	params := wireParams{
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Size:           orDefault(req.Size, c.size),
		Watermark:      c.watermark,
	}
	if c.promptExtend {
		extend := true
		params.PromptExtend = &extend
	}
	if req.Seed > 0 {
		seed := req.Seed
		params.Seed = &seed
	}
	return wireRequest{
		Model: c.model,
		Input: wireInput{Messages: []wireMessage{{
			Role:    "user",
			Content: []wireContent{{Text: prompt}},
		}}},
		Parameters: params,
	}
}

func (c *Client) post(ctx context.Context, apiKey string, payload wireRequest) (*wireResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qwen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("qwen: read response: %w", err)
	}

	var out wireResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: out.Code, Message: out.Message, RequestID: out.RequestID}
		if decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", decodeErr)
	}
	if out.Code != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: out.Code, Message: out.Message, RequestID: out.RequestID}
	}
	return &out, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", fmt.Errorf("qwen: invalid image url %q", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: "image download failed"}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("qwen: read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("qwen: downloaded image is empty")
	}
	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

type wireRequest struct {
	Model      string     `json:"model"`
	Input      wireInput  `json:"input"`
	Parameters wireParams `json:"parameters"`
}

type wireInput struct {
	Messages []wireMessage `json:"messages"`
}

type wireMessage struct {
	Role    string        `json:"role"`
	Content []wireContent `json:"content"`
}

type wireContent struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type wireParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	PromptExtend   *bool  `json:"prompt_extend,omitempty"`
	Watermark      bool   `json:"watermark"`
	Seed           *int   `json:"seed,omitempty"`
}

type wireResponse struct {
	Output struct {
		Choices []struct {
			Message wireMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (r *wireResponse) imageURL() string {
	for _, choice := range r.Output.Choices {
		for _, content := range choice.Message.Content {
			if link := strings.TrimSpace(content.Image); link != "" {
				return link
			}
		}
	}
	return ""
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
