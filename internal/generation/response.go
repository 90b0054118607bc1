package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"studio/internal/domain"
)

// Response is what a provider returns. The set of variants is closed:
// TextResponse, InlineResponse, HostedResponse and RedirectResponse.
type Response interface {
	normalize(ctx context.Context, n normalizer) (Result, error)
}

// Meta carries the model actually used and the metering counters.
type Meta struct {
	Model    string
	Counters domain.UsageCounters
}

type normalizer struct {
	store    ArtifactStore
	kind     domain.GenerationKind
	provider string
	key      string
}

// TextResponse is generated text.
type TextResponse struct {
	Meta
	Text string
}

// InlineResponse is an artifact delivered in the response body, either as
// raw bytes or base64 encoded.
type InlineResponse struct {
	Meta
	Data     []byte
	Base64   string
	MIMEType string
}

// HostedResponse is an artifact the vendor already hosts.
type HostedResponse struct {
	Meta
	URL string
}

// RedirectResponse is a vendor redirect location that is itself the artifact
// reference.
type RedirectResponse struct {
	Meta
	Location string
}

var (
	errEmptyPayload = errors.New("empty payload")
	errWrongShape   = errors.New("response shape does not match kind")
)

func (r TextResponse) normalize(_ context.Context, n normalizer) (Result, error) {
	if n.kind != domain.KindText {
		return Result{}, errWrongShape
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return Result{}, errEmptyPayload
	}
	return Result{Text: text, Provider: n.provider, Model: r.Model, Counters: r.Counters}, nil
}

func (r InlineResponse) normalize(ctx context.Context, n normalizer) (Result, error) {
	if n.kind == domain.KindText {
		return Result{}, errWrongShape
	}
	data := r.Data
	if len(data) == 0 && r.Base64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.Base64))
		if err != nil {
			return Result{}, fmt.Errorf("decode inline payload: %w", err)
		}
		data = decoded
	}
	if len(data) == 0 {
		return Result{}, errEmptyPayload
	}
	if n.store == nil {
		return Result{}, errors.New("no artifact store for inline payload")
	}
	mime := strings.TrimSpace(r.MIMEType)
	if mime == "" {
		mime = defaultMIME(n.kind)
	}
	key := n.key + extensionFor(mime)
	publicURL, err := n.store.Save(ctx, key, data, mime)
	if err != nil {
		return Result{}, fmt.Errorf("persist inline payload: %w", err)
	}
	return Result{ArtifactURL: publicURL, Provider: n.provider, Model: r.Model, Counters: r.Counters}, nil
}

func (r HostedResponse) normalize(_ context.Context, n normalizer) (Result, error) {
	if n.kind == domain.KindText {
		return Result{}, errWrongShape
	}
	u, err := absoluteHTTPURL(r.URL)
	if err != nil {
		return Result{}, err
	}
	return Result{ArtifactURL: u, Provider: n.provider, Model: r.Model, Counters: r.Counters}, nil
}

func (r RedirectResponse) normalize(_ context.Context, n normalizer) (Result, error) {
	if n.kind == domain.KindText {
		return Result{}, errWrongShape
	}
	u, err := absoluteHTTPURL(r.Location)
	if err != nil {
		return Result{}, err
	}
	return Result{ArtifactURL: u, Provider: n.provider, Model: r.Model, Counters: r.Counters}, nil
}

func absoluteHTTPURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyPayload
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid artifact url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("artifact url must be absolute http(s): %q", raw)
	}
	return u.String(), nil
}

func defaultMIME(kind domain.GenerationKind) string {
	if kind == domain.KindAudio {
		return "audio/mpeg"
	}
	return "image/png"
}

func extensionFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
