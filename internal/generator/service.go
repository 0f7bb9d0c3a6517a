// Package generator orchestrates the content pipeline: detect the language,
// build the prompt, call the model, correct the output, and fall back to the
// offline generator when the model cannot deliver.
package generator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/qninhdt/rpg-forge/internal/agents"
	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/fallback"
	"github.com/qninhdt/rpg-forge/internal/language"
	"github.com/qninhdt/rpg-forge/internal/prompts"
	"github.com/qninhdt/rpg-forge/internal/schema"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

// Source tells where a piece of content came from
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Fallback reasons
const (
	ReasonOffline         = "offline"
	ReasonNoCredential    = "no_credential"
	ReasonGenerationError = "generation_error"
	ReasonInvalidOutput   = "invalid_output"
)

// LanguageDetector picks the output language for a scenario
type LanguageDetector interface {
	Detect(text string) language.Language
}

// Result is a generated record and how it was produced
type Result struct {
	Content        content.Generated `json:"content"`
	Language       language.Language `json:"language"`
	Source         Source            `json:"source"`
	FallbackReason string            `json:"fallbackReason,omitempty"`
}

// Service runs the generation pipeline. A nil client runs offline.
type Service struct {
	client   agents.Client
	registry *schema.Registry
	detector LanguageDetector
	fallback *fallback.Generator
	logger   *zap.Logger
}

// NewService creates a new generation service
func NewService(client agents.Client, registry *schema.Registry, detector LanguageDetector, fb *fallback.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:   client,
		registry: registry,
		detector: detector,
		fallback: fb,
		logger:   logger.Named("generator"),
	}
}

// Registry exposes the schema registry the service validates against
func (s *Service) Registry() *schema.Registry { return s.registry }

// Detect runs the language detector
func (s *Service) Detect(text string) language.Language {
	return s.detector.Detect(text)
}

// job is one full-content generation
type job struct {
	scenario    string
	detectText  string
	contentType content.Type
	advanced    *content.AdvancedInput
	params      *content.GenerationParams
	temperature float64
}

// Generate produces a record of type t for the scenario. It only fails on a
// bad argument or a malformed credential; every other failure yields fallback
// content.
func (s *Service) Generate(ctx context.Context, scenario string, t content.Type, adv *content.AdvancedInput, params *content.GenerationParams) (*Result, error) {
	if !t.Valid() {
		return nil, rpgerr.InvalidArgumentf("unknown content type %q", t)
	}
	var requested *float64
	if params != nil {
		requested = params.Temperature
	}
	return s.run(ctx, job{
		scenario:    scenario,
		detectText:  scenario,
		contentType: t,
		advanced:    adv,
		params:      params,
		temperature: agents.FullBand.Clamp(requested),
	})
}

// credentialPolicy applies the credential rules shared by every entry point:
// a missing credential falls back, a malformed one is a hard error.
func (s *Service) credentialPolicy() (reason string, err error) {
	if s.client == nil {
		return ReasonOffline, nil
	}
	err = s.client.CheckCredential()
	switch {
	case err == nil:
		return "", nil
	case rpgerr.ReasonOf(err) == rpgerr.ReasonMissing:
		s.logger.Warn("AI credential is not configured, using fallback content", zap.String("provider", s.client.Provider()))
		return ReasonNoCredential, nil
	default:
		s.logger.Error("AI credential rejected", zap.String("provider", s.client.Provider()), zap.Error(err))
		return "", err
	}
}

func (s *Service) run(ctx context.Context, j job) (*Result, error) {
	lang := s.detector.Detect(j.detectText)
	log := s.logger.With(zap.String("content_type", string(j.contentType)), zap.String("language", string(lang)))

	reason, err := s.credentialPolicy()
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return s.fallbackResult(j, lang, reason, nil), nil
	}

	contract, err := s.registry.For(j.contentType)
	if err != nil {
		return nil, err
	}
	prompt := prompts.Build(prompts.Input{
		Scenario: j.scenario,
		Type:     j.contentType,
		Language: lang,
		Advanced: j.advanced,
		Params:   j.params,
	})
	log.Debug("prompt built",
		zap.Int("system_bytes", len(prompt.System)),
		zap.Int("user_bytes", len(prompt.User)),
		zap.Float64("temperature", j.temperature),
	)

	doc, err := s.client.Generate(ctx, agents.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Contract:     contract,
		Temperature:  j.temperature,
	})
	if err != nil {
		if rpgerr.IsConfiguration(err) {
			return nil, err
		}
		return s.fallbackResult(j, lang, ReasonGenerationError, err), nil
	}

	g, err := content.Decode(j.contentType, doc)
	if err != nil {
		return s.fallbackResult(j, lang, ReasonInvalidOutput, err), nil
	}
	g = validation.Correct(g, j.advanced)

	generationsTotal.WithLabelValues(string(j.contentType), string(SourceAI)).Inc()
	log.Info("content generated", zap.String("name", g.DisplayName()))
	return &Result{Content: g, Language: lang, Source: SourceAI}, nil
}

func (s *Service) fallbackResult(j job, lang language.Language, reason string, cause error) *Result {
	fields := []zap.Field{
		zap.String("content_type", string(j.contentType)),
		zap.String("reason", reason),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	if reason == ReasonOffline {
		s.logger.Info("generating offline content", fields...)
	} else {
		s.logger.Warn("falling back to offline content", fields...)
	}

	fallbacksTotal.WithLabelValues(string(j.contentType), reason).Inc()
	generationsTotal.WithLabelValues(string(j.contentType), string(SourceFallback)).Inc()
	return &Result{
		Content:        s.fallback.Generate(strings.TrimSpace(j.scenario), j.contentType, j.advanced),
		Language:       lang,
		Source:         SourceFallback,
		FallbackReason: reason,
	}
}
