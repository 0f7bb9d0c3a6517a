package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/qninhdt/rpg-forge/internal/agents"
	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/language"
	"github.com/qninhdt/rpg-forge/internal/prompts"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

// SectionRequest regenerates one field of an existing record
type SectionRequest struct {
	Scenario string
	Type     content.Type
	Section  string
	Index    *int
	Current  content.Generated
	Params   *content.GenerationParams
}

// SectionResult is the new value of one field. The caller splices it into
// the record with content.SpliceSection.
type SectionResult struct {
	Section        string            `json:"section"`
	Index          *int              `json:"index,omitempty"`
	Value          json.RawMessage   `json:"value"`
	Language       language.Language `json:"language"`
	Source         Source            `json:"source"`
	FallbackReason string            `json:"fallbackReason,omitempty"`
}

// RegenerateSection produces a new value for one section of req.Current.
// Unknown sections and bad indexes are rejected before any model call.
func (s *Service) RegenerateSection(ctx context.Context, req SectionRequest) (*SectionResult, error) {
	contract, err := s.registry.ForSection(req.Type, req.Section, req.Index)
	if err != nil {
		return nil, err
	}
	if req.Current.Payload == nil || req.Current.Type != req.Type {
		return nil, rpgerr.InvalidArgumentf("current content is not a %s", req.Type)
	}
	if req.Index != nil {
		n, err := content.SectionLen(req.Current, req.Section)
		if err != nil {
			return nil, err
		}
		if *req.Index >= n {
			return nil, rpgerr.InvalidArgumentf("index %d out of range for %s (len %d)", *req.Index, req.Section, n)
		}
	}

	lang := s.detector.Detect(req.Scenario)
	log := s.logger.With(
		zap.String("content_type", string(req.Type)),
		zap.String("section", req.Section),
		zap.String("language", string(lang)),
	)

	reason, err := s.credentialPolicy()
	if err != nil {
		return nil, err
	}
	if reason != "" {
		return s.sectionFallback(req, lang, reason, nil)
	}

	record, err := req.Current.PayloadJSON()
	if err != nil {
		return nil, rpgerr.Wrap(err, "failed to encode current content")
	}
	current, err := content.SectionValue(req.Current, req.Section, req.Index)
	if err != nil {
		return nil, err
	}

	var requested *float64
	if req.Params != nil {
		requested = req.Params.Temperature
	}
	prompt := prompts.BuildSection(prompts.SectionInput{
		Scenario: req.Scenario,
		Type:     req.Type,
		Language: lang,
		Section:  req.Section,
		Index:    req.Index,
		Record:   record,
		Current:  current,
		Keep:     keepSkills(req.Current, req.Section, req.Index),
		Params:   req.Params,
	})

	doc, err := s.client.Generate(ctx, agents.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		Contract:     contract,
		Temperature:  agents.SectionBand.Clamp(requested),
	})
	if err != nil {
		if rpgerr.IsConfiguration(err) {
			return nil, err
		}
		return s.sectionFallback(req, lang, ReasonGenerationError, err)
	}

	value, err := contract.Unwrap(doc)
	if err == nil {
		value, err = fit(req.Current, req.Section, req.Index, value)
	}
	if err != nil {
		return s.sectionFallback(req, lang, ReasonInvalidOutput, err)
	}

	sectionRegenerationsTotal.WithLabelValues(string(req.Type), req.Section, string(SourceAI)).Inc()
	log.Info("section regenerated")
	return &SectionResult{Section: req.Section, Index: req.Index, Value: value, Language: lang, Source: SourceAI}, nil
}

func (s *Service) sectionFallback(req SectionRequest, lang language.Language, reason string, cause error) (*SectionResult, error) {
	fields := []zap.Field{
		zap.String("content_type", string(req.Type)),
		zap.String("section", req.Section),
		zap.String("reason", reason),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	s.logger.Warn("falling back to offline section value", fields...)

	value, err := s.fallback.Section(req.Scenario, req.Current, req.Section, req.Index)
	if err != nil {
		return nil, rpgerr.Wrap(err, "fallback section generation failed")
	}
	if fitted, err := fit(req.Current, req.Section, req.Index, value); err == nil {
		value = fitted
	} else {
		s.logger.Warn("fallback section value does not fit the record, keeping the current value", zap.Error(err))
		if value, err = content.SectionValue(req.Current, req.Section, req.Index); err != nil {
			return nil, err
		}
	}

	fallbacksTotal.WithLabelValues(string(req.Type), reason).Inc()
	sectionRegenerationsTotal.WithLabelValues(string(req.Type), req.Section, string(SourceFallback)).Inc()
	return &SectionResult{
		Section:        req.Section,
		Index:          req.Index,
		Value:          value,
		Language:       lang,
		Source:         SourceFallback,
		FallbackReason: reason,
	}, nil
}

// fit splices value into current, runs the corrections against the merged
// record and returns the corrected value of the section. Derived fields such
// as skill modifiers are therefore computed from the record they land in.
// A replaced element must come back at its own position.
func fit(current content.Generated, section string, index *int, value json.RawMessage) (json.RawMessage, error) {
	spliced, err := content.SpliceSection(current, section, index, value)
	if err != nil {
		return nil, err
	}
	if c, ok := spliced.Character(); ok && section == "skills" {
		if missing := validation.MissingExpertise(*c); len(missing) > 0 {
			return nil, fmt.Errorf("skills drop expertise %s", strings.Join(missing, ", "))
		}
	}
	corrected := validation.Correct(spliced, nil)

	if index != nil {
		before, err := content.SectionLen(spliced, section)
		if err != nil {
			return nil, err
		}
		after, err := content.SectionLen(corrected, section)
		if err != nil {
			return nil, err
		}
		if before != after {
			return nil, fmt.Errorf("element does not fit %s", section)
		}
	}

	out, err := content.SectionValue(corrected, section, index)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(out, []byte("null")) {
		return value, nil
	}
	if index != nil && elementKey(out) != elementKey(value) {
		return nil, fmt.Errorf("element moved within %s", section)
	}
	return out, nil
}

// elementKey identifies a list element by its text or its name
func elementKey(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case map[string]any:
		for _, k := range []string{"name", "title", "description"} {
			if s, ok := t[k].(string); ok {
				return strings.ToLower(strings.TrimSpace(s))
			}
		}
	}
	return ""
}

// keepSkills lists the skills a regenerated skills section must retain
func keepSkills(current content.Generated, section string, index *int) []string {
	c, ok := current.Character()
	if !ok || section != "skills" || index != nil {
		return nil
	}
	return c.Expertise
}
