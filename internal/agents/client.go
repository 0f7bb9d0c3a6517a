// Package agents is the generation client: it sends a prompt pair and a
// structural contract to a language model and returns a validated document.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/qninhdt/rpg-forge/internal/config"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/schema"
)

// Request is a single structured generation call
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Contract     *schema.Contract
	Temperature  float64
	MaxTokens    int
}

// Client generates a document that satisfies req.Contract. Implementations
// return a CONFIGURATION error before any network call when the credential is
// missing or malformed, and a GENERATION error for everything that fails after.
type Client interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
	CheckCredential() error
	Provider() string
}

// Band bounds the temperature of one kind of call
type Band struct {
	Min     float64
	Max     float64
	Default float64
}

// Temperature bands per call site
var (
	FullBand    = Band{Min: 0.1, Max: 1.2, Default: 0.7}
	SectionBand = Band{Min: 0.1, Max: 1.5, Default: 0.8}
)

// VariationTemperature favours divergence from the original record
const VariationTemperature = 0.9

// Clamp applies the band to an optional requested temperature
func (b Band) Clamp(t *float64) float64 {
	if t == nil {
		return b.Default
	}
	switch {
	case *t < b.Min:
		return b.Min
	case *t > b.Max:
		return b.Max
	}
	return *t
}

// ValidateCredential checks that key is present and carries one of the
// recognized prefixes. An empty prefix list accepts any non-empty key.
func ValidateCredential(key string, prefixes []string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return rpgerr.Configuration(rpgerr.ReasonMissing, "AI API key is not configured")
	}
	if len(prefixes) == 0 {
		return nil
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(key, p) {
			return nil
		}
	}
	return rpgerr.Configuration(rpgerr.ReasonMalformed, "AI API key has an unrecognized format")
}

// NewClient creates the client for the configured provider
func NewClient(cfg *config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIOptions{
			APIKey:      cfg.AIAPIKey,
			KeyPrefixes: cfg.AIKeyPrefixes,
			BaseURL:     cfg.AIBaseURL,
			Model:       cfg.AIModel,
			Timeout:     cfg.AITimeout,
			MaxTokens:   cfg.AIMaxTokens,
		}, logger), nil
	case config.ProviderOllama:
		return NewOllamaClient(OllamaOptions{
			BaseURL:   cfg.AIBaseURL,
			Model:     cfg.AIModel,
			Timeout:   cfg.AITimeout,
			MaxTokens: cfg.AIMaxTokens,
		}, logger)
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object in a model reply.
func extractJSON(reply string) (json.RawMessage, error) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	raw := json.RawMessage(s[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("reply is not valid JSON")
	}
	return raw, nil
}

// finish turns a raw reply into a contract-valid document
func finish(reply string, contract *schema.Contract) (json.RawMessage, error) {
	if strings.TrimSpace(reply) == "" {
		return nil, rpgerr.Generation(nil, "model returned an empty reply")
	}
	doc, err := extractJSON(reply)
	if err != nil {
		return nil, rpgerr.Generation(err, "model reply could not be parsed")
	}
	if contract != nil {
		if err := contract.Validate(doc); err != nil {
			return nil, rpgerr.Generation(err, "model reply does not match "+contract.Name)
		}
	}
	return doc, nil
}

// schemaName sanitizes a contract name for providers that restrict it
func schemaName(c *schema.Contract) string {
	if c == nil {
		return "content"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, c.Name)
}
