package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"

	defaultLocale = "en"
)

const replySchema = `{"prompt":string,"keywords":string[],"metadata":{"locale":string}}`

// instructionFor asks a chat model to rewrite req.Prompt and answer with
// JSON matching replySchema.
func instructionFor(req EnhanceRequest) string {
	audience := "an image generation model"
	if req.Kind == "text" {
		audience = "a video script writer"
	}
	locale := req.Locale
	if strings.TrimSpace(locale) == "" {
		locale = defaultLocale
	}
	return fmt.Sprintf(
		"Rewrite the prompt below for %s without changing its subject or intent. "+
			"Write in locale %q. Answer only with JSON shaped like %s.\n\nPrompt: %q",
		audience, locale, replySchema, strings.TrimSpace(req.Prompt))
}

type enhanceReply struct {
	Prompt   string            `json:"prompt"`
	Keywords []string          `json:"keywords"`
	Metadata map[string]string `json:"metadata"`
}

// decodeReply turns a raw model reply into a response attributed to
// provider. The error carries the fallback reason.
func decodeReply(raw, provider, locale string) (*EnhanceResponse, error) {
	fragment := ExtractJSONFragment(raw)
	if fragment == "" {
		return nil, &stageError{stage: "empty_response", err: errors.New("model returned no content")}
	}
	var reply enhanceReply
	if err := json.Unmarshal([]byte(fragment), &reply); err != nil {
		return nil, &stageError{stage: "parse_payload", err: err}
	}
	text := strings.TrimSpace(reply.Prompt)
	if text == "" {
		return nil, &stageError{stage: "empty_prompt", err: errors.New("model returned an empty prompt")}
	}
	return &EnhanceResponse{
		Prompt:   text,
		Keywords: dedupeKeywords(reply.Keywords),
		Metadata: withLocale(reply.Metadata, locale),
		Provider: provider,
	}, nil
}

// ExtractJSONFragment strips code fences and surrounding prose from a model
// reply, leaving the outermost JSON object or array.
func ExtractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = text[3:]
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], "{[") {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}

// withLocale records the request locale in meta, keeping the model's own
// value only when the request had none.
func withLocale(meta map[string]string, locale string) map[string]string {
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	switch {
	case strings.TrimSpace(locale) != "":
		meta["locale"] = strings.TrimSpace(locale)
	case meta["locale"] == "":
		meta["locale"] = defaultLocale
	}
	return meta
}

// dedupeKeywords trims keywords and drops case-insensitive repeats, keeping
// the first spelling.
func dedupeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
