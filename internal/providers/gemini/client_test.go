package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func reply(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func clientFor(fn roundTripFunc, opts Options) *Client {
	opts.HTTPClient = &http.Client{Transport: fn}
	return NewClient(opts)
}

func TestGenerateImageInline(t *testing.T) {
	var sent generateRequest
	var key, path string
	c := clientFor(func(r *http.Request) (*http.Response, error) {
		key = r.Header.Get("x-goog-api-key")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return reply(http.StatusOK, "application/json", `{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"iVBORw0KGgo="}}]}}],"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":1290}}`), nil
	}, Options{})

	img, err := c.GenerateImage(context.Background(), " g-key ", ImageRequest{Prompt: "harbor", AspectRatio: "16:9", Locale: "id"})
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if img.Base64 != "iVBORw0KGgo=" || img.MIMEType != "image/png" || img.Data != nil {
		t.Fatalf("img = %+v", img)
	}
	if img.PromptTokens != 12 || img.OutputTokens != 1290 {
		t.Fatalf("tokens = %d/%d, want 12/1290", img.PromptTokens, img.OutputTokens)
	}
	if key != "g-key" {
		t.Fatalf("api key = %q, want %q", key, "g-key")
	}
	if want := "/v1beta/models/gemini-2.5-flash-image:generateContent"; path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got, want := sent.Contents[0].Parts[0].Text, "harbor\nAspect ratio: 16:9\nLocale: id"; got != want {
		t.Fatalf("prompt = %q, want %q", got, want)
	}
	if got := sent.Config.ResponseModalities; len(got) != 1 || got[0] != "IMAGE" {
		t.Fatalf("modalities = %v", got)
	}
}

func TestGenerateImageDownloadsFileReference(t *testing.T) {
	c := clientFor(func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet {
			if got := r.URL.String(); got != "https://gemini.test/v1beta/files/abc" {
				t.Fatalf("download url = %q", got)
			}
			if r.Header.Get("x-goog-api-key") != "k" {
				t.Fatalf("download without api key")
			}
			return reply(http.StatusOK, "image/jpeg", "jpegbytes"), nil
		}
		return reply(http.StatusOK, "application/json", `{"candidates":[{"content":{"parts":[{"fileData":{"fileUri":"files/abc"}}]}}]}`), nil
	}, Options{BaseURL: "https://gemini.test/v1beta/"})

	img, err := c.GenerateImage(context.Background(), "k", ImageRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if string(img.Data) != "jpegbytes" || img.MIMEType != "image/jpeg" {
		t.Fatalf("img = %+v", img)
	}
}

func TestGenerateImageNoImage(t *testing.T) {
	c := clientFor(func(r *http.Request) (*http.Response, error) {
		return reply(http.StatusOK, "application/json", `{"candidates":[{"content":{"parts":[{"text":"sorry"}]},"finishReason":"SAFETY"}]}`), nil
	}, Options{})

	_, err := c.GenerateImage(context.Background(), "k", ImageRequest{Prompt: "x"})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
	if !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("err = %v, want finish reason", err)
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		message   string
		transient bool
	}{
		{"denied", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`, "API key not valid", false},
		{"overloaded", http.StatusServiceUnavailable, `{"error":{"code":503,"message":"The model is overloaded","status":"UNAVAILABLE"}}`, "The model is overloaded", true},
		{"throttled plain", http.StatusTooManyRequests, "slow down", "slow down", true},
		{"empty body", http.StatusBadGateway, "", "Bad Gateway", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := clientFor(func(r *http.Request) (*http.Response, error) {
				return reply(tc.status, "application/json", tc.body), nil
			}, Options{})

			_, err := c.GenerateImage(context.Background(), "k", ImageRequest{Prompt: "x"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Message != tc.message {
				t.Fatalf("api error = %+v", apiErr)
			}
			if got := IsTransient(err); got != tc.transient {
				t.Fatalf("IsTransient = %v, want %v", got, tc.transient)
			}
		})
	}
}

func TestGenerateImageRequiresKey(t *testing.T) {
	c := NewClient(Options{})
	if _, err := c.GenerateImage(context.Background(), "  ", ImageRequest{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
