package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/language"
)

// SectionInput is everything a section prompt depends on
type SectionInput struct {
	Scenario string
	Type     content.Type
	Language language.Language
	Section  string
	Index    *int
	Record   json.RawMessage
	Current  json.RawMessage
	Keep     []string
	Params   *content.GenerationParams
}

// BuildSection composes the prompt pair for regenerating one field
func BuildSection(in SectionInput) Prompt {
	lang := languageName(in.Language)
	element := ""
	if in.Index != nil {
		element = fmt.Sprintf(" (only element #%d of the list)", *in.Index+1)
	}
	keep := ""
	if len(in.Keep) > 0 {
		keep = fmt.Sprintf("The new value MUST still include: %s.", strings.Join(in.Keep, ", "))
	}
	current := strings.TrimSpace(string(in.Current))
	if current == "" {
		current = "null"
	}

	system := render(sectionSystemTemplate,
		"{{LANGUAGE}}", lang,
		"{{CONTENT_TYPE}}", string(in.Type),
		"{{SECTION}}", in.Section,
		"{{ELEMENT}}", element,
		"{{TYPE_RULES}}", typeRules(in.Type, nil),
		"{{STYLE}}", styleFragments(in.Params),
	)
	user := render(sectionUserTemplate,
		"{{LANGUAGE}}", lang,
		"{{SCENARIO}}", strings.TrimSpace(in.Scenario),
		"{{RECORD}}", string(in.Record),
		"{{SECTION}}", in.Section,
		"{{ELEMENT}}", element,
		"{{CURRENT}}", current,
		"{{KEEP}}", keep,
	)
	return Prompt{System: tidy(system), User: tidy(user)}
}
