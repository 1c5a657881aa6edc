// Package config turns the process environment into one immutable Config
// value. It is loaded once at startup and handed to constructors; nothing in
// the gateway reads flags from globals after that.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/env"
)

const (
	DefaultModelOpenAI     = "gpt-4o-mini"
	DefaultModelGemini     = "gemini-1.5-flash"
	DefaultProviderTimeout = 60 * time.Second
	DefaultStoreRetries    = 3
	DefaultStoreRetryDelay = 200 * time.Millisecond
	DefaultRunRateLimit    = 60
)

type Config struct {
	AppEnv   string
	Host     string
	Port     string
	LogLevel string

	// AgentFallbackEnabled gates the legacy SKU table in the resolver.
	AgentFallbackEnabled bool
	SkuCatalogPath       string

	OpenAIAPIKey       string
	GeminiAPIKey       string
	ModelDefaultOpenAI string
	ModelDefaultGemini string
	OpenAIBaseURL      string
	GeminiBaseURL      string
	ProviderTimeout    time.Duration

	ThriveCartSecret string
	GatewayAPIKey    string

	WebhookStoreRetries    int
	WebhookStoreRetryDelay time.Duration
	RunRateLimit           int

	// MetricsUsername and MetricsPassword put basic auth in front of
	// /metrics and /monitor when both are set.
	MetricsUsername string
	MetricsPassword string

	Database Database
	Cache    Cache
	SMTP     SMTP
}

type Database struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Cache struct {
	Host     string
	Port     int
	Password string
}

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

// Enabled reports whether purchase mails can be sent.
func (s SMTP) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

// Load reads the configuration from env.GetEnv. Malformed values fail loudly
// instead of silently falling back, a wrong flag here changes entitlements.
func Load() (Config, error) {
	cfg := Config{
		AppEnv:   env.GetEnv("APP_ENV", "prod"),
		Host:     env.GetEnv("APP_HOST", "0.0.0.0"),
		Port:     env.GetEnv("APP_PORT", "8000"),
		LogLevel: env.GetEnv("LOG_LEVEL", "info"),

		SkuCatalogPath: strings.TrimSpace(env.GetEnv("SKU_CATALOG_PATH", "")),

		OpenAIAPIKey:       strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")),
		GeminiAPIKey:       strings.TrimSpace(env.GetEnv("GEMINI_API_KEY", "")),
		ModelDefaultOpenAI: strings.TrimSpace(env.GetEnv("MODEL_DEFAULT_OPENAI", DefaultModelOpenAI)),
		ModelDefaultGemini: strings.TrimSpace(env.GetEnv("MODEL_DEFAULT_GEMINI", DefaultModelGemini)),
		OpenAIBaseURL:      strings.TrimSpace(env.GetEnv("OPENAI_BASE_URL", "")),
		GeminiBaseURL:      strings.TrimSpace(env.GetEnv("GEMINI_BASE_URL", "")),

		ThriveCartSecret: strings.TrimSpace(env.GetEnv("THRIVECART_SECRET", "")),
		GatewayAPIKey:    strings.TrimSpace(env.GetEnv("GATEWAY_API_KEY", "")),

		MetricsUsername: env.GetEnv("METRICS_USERNAME", ""),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),

		Database: Database{
			Driver:   strings.ToLower(env.GetEnv("DB_DRIVER", "postgres")),
			URL:      env.GetEnv("DATABASE_URL", env.GetEnv("DB_URL", "")),
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", ""),
			User:     env.GetEnv("DB_USER", ""),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Name:     env.GetEnv("DB_NAME", ""),
		},
		SMTP: SMTP{
			Host:     env.GetEnv("SMTP_HOST", ""),
			Port:     env.GetEnv("SMTP_PORT", "587"),
			Username: env.GetEnv("SMTP_USERNAME", ""),
			Password: env.GetEnv("SMTP_PASSWORD", ""),
			Sender:   env.GetEnv("SMTP_SENDER", "no-reply@thanyaaura.com"),
		},
	}

	var err error
	if cfg.AgentFallbackEnabled, err = parseBool("AGENT_FALLBACK_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = parseDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout); err != nil {
		return Config{}, err
	}
	if cfg.WebhookStoreRetries, err = parseInt("WEBHOOK_STORE_RETRIES", DefaultStoreRetries); err != nil {
		return Config{}, err
	}
	if cfg.WebhookStoreRetryDelay, err = parseDuration("WEBHOOK_STORE_RETRY_DELAY", DefaultStoreRetryDelay); err != nil {
		return Config{}, err
	}
	if cfg.RunRateLimit, err = parseInt("RUN_RATE_LIMIT", DefaultRunRateLimit); err != nil {
		return Config{}, err
	}

	cfg.Cache.Host = strings.TrimSpace(env.GetEnv("CACHE_HOST", ""))
	cfg.Cache.Password = env.GetEnv("CACHE_PASSWORD", "")
	if cfg.Cache.Port, err = parseInt("CACHE_PORT", 6379); err != nil {
		return Config{}, err
	}

	if cfg.ModelDefaultOpenAI == "" {
		cfg.ModelDefaultOpenAI = DefaultModelOpenAI
	}
	if cfg.ModelDefaultGemini == "" {
		cfg.ModelDefaultGemini = DefaultModelGemini
	}
	if cfg.WebhookStoreRetries < 1 {
		cfg.WebhookStoreRetries = 1
	}
	if cfg.ProviderTimeout <= 0 {
		return Config{}, fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", cfg.ProviderTimeout)
	}
	return cfg, nil
}

// IsDev reports APP_ENV=dev.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev"
}

func parseBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return def, fmt.Errorf("%s: invalid boolean %q", key, raw)
}

// parseDuration accepts Go durations ("45s") and bare seconds ("45").
func parseDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return v, nil
}
