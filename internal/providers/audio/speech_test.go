package audio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"studio/internal/generation"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func audioResponse(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestOpenAISpeechGenerate(t *testing.T) {
	var captured speechRequest
	p := NewOpenAISpeech(OpenAIOptions{HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk" {
			t.Fatalf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return audioResponse(http.StatusOK, "audio/mpeg", "ID3mp3"), nil
	})}})

	req := generation.Request{Prompt: "héllo", Voice: "Nova", Credentials: map[string]string{ProviderOpenAI: "sk"}}
	if !p.Configured(req) {
		t.Fatalf("Configured = false")
	}
	resp, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	inline := resp.(generation.InlineResponse)
	if string(inline.Data) != "ID3mp3" || inline.MIMEType != "audio/mpeg" {
		t.Fatalf("inline = %+v", inline)
	}
	if inline.Counters.InputUnits != 5 {
		t.Fatalf("input units = %d, want 5", inline.Counters.InputUnits)
	}
	if captured.Voice != "nova" || captured.Model != "tts-1" || captured.Input != "héllo" {
		t.Fatalf("request = %+v", captured)
	}
}

func TestOpenAISpeechUnknownVoiceFallsBack(t *testing.T) {
	var captured speechRequest
	p := NewOpenAISpeech(OpenAIOptions{Voice: "echo", HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return audioResponse(http.StatusOK, "audio/mpeg", "x"), nil
	})}})
	if _, err := p.Generate(context.Background(), generation.Request{Prompt: "a", Voice: "Rachel"}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if captured.Voice != "echo" {
		t.Fatalf("voice = %q, want %q", captured.Voice, "echo")
	}
}

func TestElevenLabsGenerate(t *testing.T) {
	var path, key string
	p := NewElevenLabs(ElevenLabsOptions{VoiceID: "voice-1", HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		path = r.URL.Path
		key = r.Header.Get("xi-api-key")
		return audioResponse(http.StatusOK, "audio/mpeg", "mp3"), nil
	})}})

	resp, err := p.Generate(context.Background(), generation.Request{Prompt: "hi", Voice: "alloy", Credentials: map[string]string{ProviderElevenLabs: "xi"}})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if path != "/v1/text-to-speech/voice-1" {
		t.Fatalf("path = %q", path)
	}
	if key != "xi" {
		t.Fatalf("xi-api-key = %q", key)
	}
	if inline := resp.(generation.InlineResponse); string(inline.Data) != "mp3" || inline.Model != "eleven_multilingual_v2" {
		t.Fatalf("inline = %+v", inline)
	}
}

func TestFetchAudioErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        string
	}{
		{"vendor error", http.StatusTooManyRequests, "application/json", `{"detail":"quota"}`, "status 429"},
		{"not audio", http.StatusOK, "application/json", `{}`, "unexpected content type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewElevenLabs(ElevenLabsOptions{HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return audioResponse(tt.status, tt.contentType, tt.body), nil
			})}})
			_, err := p.Generate(context.Background(), generation.Request{Prompt: "x"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
