// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// AI providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds server, storage, logging and model-backend settings
type Config struct {
	Port   string `envconfig:"PORT" default:"8080"`
	DBPath string `envconfig:"DB_PATH" default:"content.db"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	AIProvider    string        `envconfig:"AI_PROVIDER" default:"openai"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"google/gemini-2.0-flash-001"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	AIAPIKey      string        `envconfig:"AI_API_KEY"`
	AIKeyPrefixes []string      `envconfig:"AI_KEY_PREFIXES" default:"sk-,AIza"`
	AIMaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"4096"`

	JWTSecret      string  `envconfig:"JWT_SECRET"`
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
	MaxBodyBytes   int64   `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

// Load reads an optional .env file and then the environment
func Load(envFiles ...string) (*Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	cfg.AIAPIKey = strings.TrimSpace(cfg.AIAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown providers and non-positive limits
func (c *Config) Validate() error {
	switch c.AIProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q (want %s or %s)", c.AIProvider, ProviderOpenAI, ProviderOllama)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}
	if c.AIMaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}

// AuthEnabled reports whether bearer tokens are required
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// LogSummary logs the loaded configuration without secrets
func (c *Config) LogSummary(logger *zap.Logger) {
	logger.Info("configuration loaded",
		zap.String("port", c.Port),
		zap.String("db_path", c.DBPath),
		zap.String("ai_provider", c.AIProvider),
		zap.String("ai_base_url", c.AIBaseURL),
		zap.String("ai_model", c.AIModel),
		zap.Duration("ai_timeout", c.AITimeout),
		zap.String("ai_api_key", MaskSecret(c.AIAPIKey)),
		zap.Bool("auth_enabled", c.AuthEnabled()),
		zap.Float64("rate_limit_rps", c.RateLimitRPS),
		zap.Int("rate_limit_burst", c.RateLimitBurst),
	)
}

// MaskSecret keeps only a short prefix of a secret
func MaskSecret(s string) string {
	switch {
	case s == "":
		return "[NOT SET]"
	case len(s) <= 6:
		return "********"
	default:
		return s[:4] + "********"
	}
}
