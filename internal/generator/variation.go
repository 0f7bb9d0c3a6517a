package generator

import (
	"context"
	"strings"

	"github.com/qninhdt/rpg-forge/internal/agents"
	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/prompts"
)

// GenerateVariation produces a sibling of original with the same type. The
// original's advanced constraints are not reapplied and the temperature is
// fixed high so the result drifts away from the source record.
func (s *Service) GenerateVariation(ctx context.Context, original content.Generated, originalScenario, instruction string, params *content.GenerationParams) (*Result, error) {
	if original.Payload == nil || !original.Type.Valid() {
		return nil, rpgerr.InvalidArgument("original content is empty")
	}

	detectText := strings.TrimSpace(originalScenario)
	if detectText == "" {
		detectText = prompts.Summary(original)
	}

	var style *content.GenerationParams
	if params != nil {
		style = &content.GenerationParams{Tone: params.Tone, Complexity: params.Complexity}
	}

	return s.run(ctx, job{
		scenario:    prompts.VariationScenario(original, originalScenario, instruction),
		detectText:  detectText,
		contentType: original.Type,
		params:      style,
		temperature: agents.VariationTemperature,
	})
}
