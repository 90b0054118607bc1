// Package gemini calls the generateContent REST endpoint of image-capable
// Gemini models. Text generation goes through the official SDK instead.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image"

	maxResponseBytes = 32 << 20
)

var (
	ErrMissingAPIKey = errors.New("gemini: api key is required")
	ErrNoImage       = errors.New("gemini: response has no image part")
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: %d: %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err is worth retrying: overload, rate limit
// or a server-side failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return errors.Is(err, context.DeadlineExceeded)
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
}

type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is safe for concurrent use. Keys are passed per call so one client
// serves every owner.
type Client struct {
	base   string
	model  string
	http   *http.Client
	logger zerolog.Logger
}

func NewClient(opts Options) *Client {
	c := &Client{
		base:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		model:  strings.TrimSpace(opts.Model),
		http:   opts.HTTPClient,
		logger: opts.Logger,
	}
	if c.base == "" {
		c.base = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: time.Minute}
	}
	return c
}

func (c *Client) Model() string { return c.model }

// ImageRequest describes one storyboard frame.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	Locale      string
}

// Image is the first image the model returned. Exactly one of Base64 and
// Data is set: inline parts stay encoded, file references are downloaded.
type Image struct {
	Base64       string
	Data         []byte
	MIMEType     string
	PromptTokens int64
	OutputTokens int64
}

func (c *Client) GenerateImage(ctx context.Context, apiKey string, req ImageRequest) (*Image, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: imagePrompt(req)}}}},
		Config:   &genConfig{CandidateCount: 1, ResponseModalities: []string{"IMAGE"}},
	}
	endpoint := c.base + "/models/" + url.PathEscape(c.model) + ":generateContent"

	var out generateResponse
	if err := c.call(ctx, apiKey, endpoint, body, &out); err != nil {
		return nil, err
	}

	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			img, err := c.imageFrom(ctx, apiKey, p)
			if err != nil {
				c.logger.Debug().Err(err).Str("model", c.model).Msg("gemini: unreadable image part")
				continue
			}
			if img != nil {
				img.PromptTokens = out.Usage.PromptTokens
				img.OutputTokens = out.Usage.CandidateTokens
				return img, nil
			}
		}
	}
	if len(out.Candidates) > 0 && out.Candidates[0].FinishReason != "" {
		return nil, fmt.Errorf("%w (finish reason %s)", ErrNoImage, out.Candidates[0].FinishReason)
	}
	return nil, ErrNoImage
}

// imageFrom returns nil for parts that carry no image, such as text.
func (c *Client) imageFrom(ctx context.Context, apiKey string, p part) (*Image, error) {
	switch {
	case p.InlineData != nil && p.InlineData.Data != "":
		if _, err := base64.StdEncoding.DecodeString(p.InlineData.Data); err != nil {
			return nil, fmt.Errorf("inline data: %w", err)
		}
		return &Image{Base64: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}, nil
	case p.FileData != nil && p.FileData.URI != "":
		data, mime, err := c.fetch(ctx, apiKey, p.FileData.URI)
		if err != nil {
			return nil, err
		}
		if p.FileData.MIMEType != "" {
			mime = p.FileData.MIMEType
		}
		return &Image{Data: data, MIMEType: mime}, nil
	}
	return nil, nil
}

func (c *Client) call(ctx context.Context, apiKey, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gemini: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("gemini: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, _, err := c.do(req, apiKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("gemini: decode: %w", err)
	}
	return nil
}

// fetch downloads a file reference. Relative URIs resolve against the API
// base.
func (c *Client) fetch(ctx context.Context, apiKey, uri string) ([]byte, string, error) {
	if u, err := url.Parse(uri); err != nil || !u.IsAbs() {
		uri = c.base + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("gemini: request: %w", err)
	}
	return c.do(req, apiKey)
}

func (c *Client) do(req *http.Request, apiKey string) ([]byte, string, error) {
	req.Header.Set("x-goog-api-key", apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("gemini: %s: %w", req.Method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, "", decodeError(resp.StatusCode, raw)
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

func decodeError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func imagePrompt(req ImageRequest) string {
	var lines []string
	if p := strings.TrimSpace(req.Prompt); p != "" {
		lines = append(lines, p)
	}
	if a := strings.TrimSpace(req.AspectRatio); a != "" {
		lines = append(lines, "Aspect ratio: "+a)
	}
	if l := strings.TrimSpace(req.Locale); l != "" {
		lines = append(lines, "Locale: "+l)
	}
	if len(lines) == 0 {
		return "Create a storyboard illustration"
	}
	return strings.Join(lines, "\n")
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   *genConfig `json:"generationConfig,omitempty"`
}

type genConfig struct {
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string   `json:"text,omitempty"`
	InlineData *blob    `json:"inlineData,omitempty"`
	FileData   *fileRef `json:"fileData,omitempty"`
}

type blob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type fileRef struct {
	MIMEType string `json:"mimeType,omitempty"`
	URI      string `json:"fileUri,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Usage struct {
		PromptTokens    int64 `json:"promptTokenCount"`
		CandidateTokens int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}
