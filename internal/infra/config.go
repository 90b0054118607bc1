package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	Store           string
	DatabaseURL     string
	JWTSecret       string
	StoragePath     string
	StorageBaseURL  string
	GeoIPDBPath     string
	DefaultLocale   string
	PricingFile     string
	PromptEnhancer  string
	PollInterval    time.Duration
	RateLimitPerMin int
	AllowedOrigins  []string

	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string
	GeminiBaseURL    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAITTSModel   string
	OpenAIBaseURL    string
	QwenAPIKey       string
	QwenModel        string
	QwenBaseURL      string
	ElevenLabsAPIKey string
	ElevenLabsVoice  string
	FreeImageBaseURL string

	CreditsPerImage  int64
	CreditsPerAudio  int64
	CreditsPerScript int64

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownGrace    time.Duration
	DBMaxConns       int32
}

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Prompt enhancer selections.
const (
	EnhancerNone   = "none"
	EnhancerStatic = "static"
	EnhancerOpenAI = "openai"
	EnhancerGemini = "gemini"
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            port,
		Store:           strings.ToLower(getEnv("STORE", "")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		StoragePath:     getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "en"),
		PricingFile:     os.Getenv("PRICING_FILE"),
		PromptEnhancer:  strings.ToLower(getEnv("PROMPT_ENHANCER", EnhancerNone)),
		PollInterval:    time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 1500)),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITTSModel:   getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		QwenAPIKey:       os.Getenv("QWEN_API_KEY"),
		QwenModel:        getEnv("QWEN_MODEL", "qwen-image-plus"),
		QwenBaseURL:      getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoice:  getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		FreeImageBaseURL: getEnv("FREE_IMAGE_BASE_URL", "https://image.pollinations.ai/prompt"),

		CreditsPerImage:  int64(getEnvInt("CREDITS_PER_IMAGE", 2)),
		CreditsPerAudio:  int64(getEnvInt("CREDITS_PER_AUDIO", 1)),
		CreditsPerScript: int64(getEnvInt("CREDITS_PER_SCRIPT", 5)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ShutdownGrace:    time.Second * time.Duration(getEnvInt("SHUTDOWN_GRACE_SECONDS", 20)),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 20)),
	}

	if cfg.Store == "" {
		cfg.Store = StoreMemory
		if cfg.DatabaseURL != "" {
			cfg.Store = StorePostgres
		}
	}
	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE %q", cfg.Store)
	}

	switch cfg.PromptEnhancer {
	case EnhancerNone, EnhancerStatic, EnhancerOpenAI, EnhancerGemini:
	default:
		return nil, fmt.Errorf("unsupported PROMPT_ENHANCER %q", cfg.PromptEnhancer)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.CreditsPerImage <= 0 || cfg.CreditsPerAudio <= 0 || cfg.CreditsPerScript <= 0 {
		return nil, fmt.Errorf("credit prices must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
