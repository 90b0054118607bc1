package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/generation"
)

// ProviderFree is the provider name of the keyless best-effort vendor.
const ProviderFree = "pollinations"

// FreeOptions configures the keyless image vendor.
type FreeOptions struct {
	BaseURL    string
	Model      string
	Width      int
	Height     int
	HTTPClient *http.Client
}

// FreeImage asks a keyless vendor for an image by URL. The vendor answers
// with a redirect (or the image itself); either way the resolved location
// is the artifact reference and the bytes are never downloaded.
type FreeImage struct {
	baseURL    string
	model      string
	width      int
	height     int
	httpClient *http.Client
}

func NewFreeImage(opts FreeOptions) *FreeImage {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai/prompt"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "flux"
	}
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	return &FreeImage{
		baseURL:    baseURL,
		model:      model,
		width:      width,
		height:     height,
		httpClient: &noFollow,
	}
}

func (f *FreeImage) Name() string { return ProviderFree }

func (f *FreeImage) Model() string { return f.model }

func (f *FreeImage) Kind() domain.GenerationKind { return domain.KindImage }

// Configured is always true; the vendor needs no credential.
func (f *FreeImage) Configured(generation.Request) bool { return true }

func (f *FreeImage) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("pollinations: empty prompt")
	}
	target := f.requestURL(prompt, deterministicSeed(req.JobID, prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("pollinations: create request: %w", err)
	}
	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pollinations: request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	meta := generation.Meta{Model: f.model, Counters: domain.UsageCounters{Items: 1}}
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc, err := resp.Location()
		if err != nil {
			return nil, fmt.Errorf("pollinations: redirect without location: %w", err)
		}
		return generation.RedirectResponse{Meta: meta, Location: loc.String()}, nil
	case resp.StatusCode == http.StatusOK:
		if !strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "image/") {
			return nil, fmt.Errorf("pollinations: unexpected content type %q", resp.Header.Get("Content-Type"))
		}
		return generation.RedirectResponse{Meta: meta, Location: target}, nil
	default:
		return nil, fmt.Errorf("pollinations: status %d", resp.StatusCode)
	}
}

func (f *FreeImage) requestURL(prompt string, seed int) string {
	q := url.Values{}
	q.Set("seed", strconv.Itoa(seed))
	q.Set("width", strconv.Itoa(f.width))
	q.Set("height", strconv.Itoa(f.height))
	q.Set("model", f.model)
	q.Set("nologo", "true")
	return f.baseURL + "/" + url.PathEscape(prompt) + "?" + q.Encode()
}

var _ generation.Provider = (*FreeImage)(nil)
