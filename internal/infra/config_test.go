package infra

import (
	"slices"
	"testing"
	"time"
)

// withEnv sets a minimal valid environment plus overrides for one test.
func withEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	base := map[string]string{
		"JWT_SECRET":           "test-secret",
		"DATABASE_URL":         "",
		"STORE":                "",
		"PORT":                 "",
		"STORAGE_BASE_URL":     "",
		"PROMPT_ENHANCER":      "",
		"CORS_ALLOWED_ORIGINS": "",
		"CREDITS_PER_IMAGE":    "",
		"CREDITS_PER_AUDIO":    "",
		"CREDITS_PER_SCRIPT":   "",
		"DB_MAX_CONNS":         "",
	}
	for k, v := range overrides {
		base[k] = v
	}
	for k, v := range base {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	withEnv(t, nil)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Store != StoreMemory {
		t.Fatalf("Store = %q, want %q", cfg.Store, StoreMemory)
	}
	if want := "http://localhost:8080/static"; cfg.StorageBaseURL != want {
		t.Fatalf("StorageBaseURL = %q, want %q", cfg.StorageBaseURL, want)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Fatalf("PollInterval = %s, want 1.5s", cfg.PollInterval)
	}
	if cfg.CreditsPerImage != 2 || cfg.CreditsPerAudio != 1 || cfg.CreditsPerScript != 5 {
		t.Fatalf("credit prices = %d/%d/%d, want 2/1/5", cfg.CreditsPerImage, cfg.CreditsPerAudio, cfg.CreditsPerScript)
	}
	if cfg.PromptEnhancer != EnhancerNone || cfg.DBMaxConns != 20 || cfg.ShutdownGrace != 20*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigDerivedValues(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":         "postgres://example",
		"PORT":                 "1919",
		"PROMPT_ENHANCER":      "Gemini",
		"CORS_ALLOWED_ORIGINS": " https://a.example , ,https://b.example",
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Store != StorePostgres {
		t.Fatalf("Store = %q, want %q", cfg.Store, StorePostgres)
	}
	if want := "http://localhost:1919/static"; cfg.StorageBaseURL != want {
		t.Fatalf("StorageBaseURL = %q, want %q", cfg.StorageBaseURL, want)
	}
	if cfg.PromptEnhancer != EnhancerGemini {
		t.Fatalf("PromptEnhancer = %q, want %q", cfg.PromptEnhancer, EnhancerGemini)
	}
	if want := []string{"https://a.example", "https://b.example"}; !slices.Equal(cfg.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins = %q, want %q", cfg.AllowedOrigins, want)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE": "postgres"}},
		{"unknown store", map[string]string{"STORE": "redis"}},
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"zero credit price", map[string]string{"CREDITS_PER_AUDIO": "0"}},
		{"unknown enhancer", map[string]string{"PROMPT_ENHANCER": "mystery"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withEnv(t, tc.env)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("LoadConfig error = nil, want error")
			}
		})
	}
}
