package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

const (
	MaxScenarioLength    = 4000
	MaxInstructionLength = 1000
	MaxTags              = 20
	maxTagLength         = 32
)

var (
	tagPattern     = regexp.MustCompile(`^[\p{L}\p{N} _-]+$`)
	sectionPattern = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// ValidateContentID validates a content library id
func ValidateContentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return rpgerr.InvalidArgumentf("content ID must be a UUID")
	}
	return nil
}

// ValidateScenario validates the free-form scenario text
func ValidateScenario(scenario string) error {
	if strings.TrimSpace(scenario) == "" {
		return rpgerr.InvalidArgument("scenario is required")
	}
	if utf8.RuneCountInString(scenario) > MaxScenarioLength {
		return rpgerr.InvalidArgumentf("scenario must be at most %d characters", MaxScenarioLength)
	}
	return nil
}

// ValidateInstruction validates an optional variation instruction
func ValidateInstruction(instruction string) error {
	if utf8.RuneCountInString(instruction) > MaxInstructionLength {
		return rpgerr.InvalidArgumentf("instruction must be at most %d characters", MaxInstructionLength)
	}
	return nil
}

// ValidateSectionName checks the shape of a section name. Whether the section
// exists for a content type is the schema registry's call.
func ValidateSectionName(name string) error {
	if !sectionPattern.MatchString(name) {
		return rpgerr.InvalidArgument("section name can only contain letters")
	}
	return nil
}

// ValidateSectionIndex validates an optional list index
func ValidateSectionIndex(index *int) error {
	if index != nil && *index < 0 {
		return rpgerr.InvalidArgument("section index must not be negative")
	}
	return nil
}

// ValidateTags validates and normalizes a tag list
func ValidateTags(tags []string) ([]string, error) {
	if len(tags) > MaxTags {
		return nil, rpgerr.InvalidArgumentf("at most %d tags are allowed", MaxTags)
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || utf8.RuneCountInString(t) > maxTagLength {
			return nil, rpgerr.InvalidArgumentf("tags must be 1-%d characters", maxTagLength)
		}
		if !tagPattern.MatchString(t) {
			return nil, rpgerr.InvalidArgumentf("tag %q can only contain letters, digits, spaces, hyphens, and underscores", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// ValidateAdvanced validates caller-supplied constraints
func ValidateAdvanced(adv *content.AdvancedInput) error {
	if adv == nil {
		return nil
	}
	if adv.Level < 0 || adv.Level > 20 {
		return rpgerr.InvalidArgument("level must be between 1 and 20")
	}
	if adv.NPCCount < 0 || adv.NPCCount > 20 {
		return rpgerr.InvalidArgument("npcCount must be between 0 and 20")
	}
	if adv.ObjectiveCount < 0 || adv.ObjectiveCount > 10 {
		return rpgerr.InvalidArgument("objectiveCount must be between 0 and 10")
	}
	if adv.Difficulty != "" && content.ParseDifficulty(adv.Difficulty) == "" {
		return rpgerr.InvalidArgumentf("unknown difficulty %q", adv.Difficulty)
	}
	return nil
}

// ValidateParams validates generation tuning parameters
func ValidateParams(p *content.GenerationParams) error {
	if !p.Valid() {
		return rpgerr.InvalidArgument("tone must be serious, playful or balanced and complexity simple, standard or detailed")
	}
	return nil
}
