// Package audio holds the narration (text-to-speech) providers.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"studio/internal/domain"
	"studio/internal/generation"
)

const (
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"

	mimeMPEG = "audio/mpeg"
	// maxAudioBytes bounds how much of a vendor payload is read.
	maxAudioBytes = 25 << 20
)

// OpenAIOptions configures the speech endpoint client.
type OpenAIOptions struct {
	BaseURL    string
	Model      string
	Voice      string
	HTTPClient *http.Client
}

// OpenAISpeech narrates scene text through /audio/speech.
type OpenAISpeech struct {
	baseURL    string
	model      string
	voice      string
	httpClient *http.Client
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

var openAIVoices = map[string]bool{
	"alloy": true, "ash": true, "coral": true, "echo": true, "fable": true,
	"nova": true, "onyx": true, "sage": true, "shimmer": true,
}

func NewOpenAISpeech(opts OpenAIOptions) *OpenAISpeech {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "tts-1"
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAISpeech{
		baseURL:    trimBase(opts.BaseURL, "https://api.openai.com/v1"),
		model:      model,
		voice:      voice,
		httpClient: defaultClient(opts.HTTPClient),
	}
}

func (o *OpenAISpeech) Name() string { return ProviderOpenAI }

func (o *OpenAISpeech) Model() string { return o.model }

func (o *OpenAISpeech) Kind() domain.GenerationKind { return domain.KindAudio }

func (o *OpenAISpeech) Configured(req generation.Request) bool {
	return req.Credential(ProviderOpenAI) != ""
}

func (o *OpenAISpeech) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	voice := strings.ToLower(strings.TrimSpace(req.Voice))
	if !openAIVoices[voice] {
		voice = o.voice
	}
	body, err := json.Marshal(speechRequest{
		Model:          o.model,
		Input:          req.Prompt,
		Voice:          voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai speech: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential(ProviderOpenAI))

	data, mime, err := fetchAudio(o.httpClient, httpReq, "openai speech")
	if err != nil {
		return nil, err
	}
	return generation.InlineResponse{
		Meta: generation.Meta{
			Model:    o.model,
			Counters: domain.UsageCounters{InputUnits: int64(utf8.RuneCountInString(req.Prompt))},
		},
		Data:     data,
		MIMEType: mime,
	}, nil
}

// ElevenLabsOptions configures the ElevenLabs client.
type ElevenLabsOptions struct {
	BaseURL    string
	Model      string
	VoiceID    string
	HTTPClient *http.Client
}

// ElevenLabs narrates through the text-to-speech endpoint of ElevenLabs.
type ElevenLabs struct {
	baseURL    string
	model      string
	voiceID    string
	httpClient *http.Client
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func NewElevenLabs(opts ElevenLabsOptions) *ElevenLabs {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	voice := strings.TrimSpace(opts.VoiceID)
	if voice == "" {
		voice = "21m00Tcm4TlvDq8ikWAM"
	}
	return &ElevenLabs{
		baseURL:    trimBase(opts.BaseURL, "https://api.elevenlabs.io"),
		model:      model,
		voiceID:    voice,
		httpClient: defaultClient(opts.HTTPClient),
	}
}

func (e *ElevenLabs) Name() string { return ProviderElevenLabs }

func (e *ElevenLabs) Model() string { return e.model }

func (e *ElevenLabs) Kind() domain.GenerationKind { return domain.KindAudio }

func (e *ElevenLabs) Configured(req generation.Request) bool {
	return req.Credential(ProviderElevenLabs) != ""
}

func (e *ElevenLabs) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	voice := e.voiceID
	// OpenAI voice names are not ElevenLabs voice ids.
	if v := strings.TrimSpace(req.Voice); v != "" && !openAIVoices[strings.ToLower(v)] {
		voice = v
	}
	body, err := json.Marshal(elevenLabsRequest{Text: req.Prompt, ModelID: e.model})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}
	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", mimeMPEG)
	httpReq.Header.Set("xi-api-key", req.Credential(ProviderElevenLabs))

	data, mime, err := fetchAudio(e.httpClient, httpReq, "elevenlabs")
	if err != nil {
		return nil, err
	}
	return generation.InlineResponse{
		Meta: generation.Meta{
			Model:    e.model,
			Counters: domain.UsageCounters{InputUnits: int64(utf8.RuneCountInString(req.Prompt))},
		},
		Data:     data,
		MIMEType: mime,
	}, nil
}

func fetchAudio(client *http.Client, req *http.Request, vendor string) ([]byte, string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: request: %w", vendor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("%s: status %d: %s", vendor, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	mime := strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0])
	if mime == "" {
		mime = mimeMPEG
	}
	if !strings.HasPrefix(mime, "audio/") {
		return nil, "", fmt.Errorf("%s: unexpected content type %q", vendor, mime)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%s: read audio: %w", vendor, err)
	}
	return data, mime, nil
}

func trimBase(raw, fallback string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return fallback
	}
	return raw
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 90 * time.Second}
}

var (
	_ generation.Provider = (*OpenAISpeech)(nil)
	_ generation.Provider = (*ElevenLabs)(nil)
)
