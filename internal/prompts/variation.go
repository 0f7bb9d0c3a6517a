package prompts

import (
	"fmt"
	"strings"

	"github.com/qninhdt/rpg-forge/internal/content"
)

// DefaultVariationInstruction is used when the caller gives no change request
const DefaultVariationInstruction = "Keep the same spirit but make it distinctly different: new name, new details, new twists."

// Summary renders a one-line description of a record
func Summary(g content.Generated) string {
	if c, ok := g.Character(); ok {
		s := fmt.Sprintf("%s, a level %d %s %s", c.Name, c.Level, c.Race, c.Class)
		if c.Background != "" {
			s += " (" + c.Background + ")"
		}
		return s
	}
	if e, ok := g.Environment(); ok {
		s := e.Name
		if first := firstSentence(e.Description); first != "" {
			s += ": " + first
		}
		if e.Mood != "" {
			s += " (mood: " + e.Mood + ")"
		}
		return s
	}
	if m, ok := g.Mission(); ok {
		s := m.Title
		if m.Difficulty != "" {
			s += " (" + string(m.Difficulty) + ")"
		}
		if first := firstSentence(m.Description); first != "" {
			s += ": " + first
		}
		return s
	}
	return g.DisplayName()
}

// VariationScenario builds the synthetic scenario for a sibling record
func VariationScenario(original content.Generated, originalScenario, instruction string) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		instruction = DefaultVariationInstruction
	}
	scenario := strings.TrimSpace(originalScenario)
	if scenario == "" {
		scenario = "(none)"
	}
	return strings.TrimSpace(render(variationTemplate,
		"{{CONTENT_TYPE}}", string(original.Type),
		"{{SUMMARY}}", strings.TrimSuffix(Summary(original), "."),
		"{{SCENARIO}}", scenario,
		"{{INSTRUCTION}}", instruction,
	))
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return s[:i+1]
	}
	return s
}
