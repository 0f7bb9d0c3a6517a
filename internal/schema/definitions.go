package schema

import (
	"strings"

	"github.com/qninhdt/rpg-forge/internal/content"
)

func str(desc string) map[string]any {
	s := map[string]any{"type": "string", "format": FormatNonBlank}
	if desc != "" {
		s["description"] = desc
	}
	return s
}

func optStr(desc string) map[string]any {
	s := map[string]any{"type": "string"}
	if desc != "" {
		s["description"] = desc
	}
	return s
}

func integer(lo, hi int) map[string]any {
	return map[string]any{"type": "integer", "minimum": lo, "maximum": hi}
}

func nonNegative() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0}
}

func boolean() map[string]any {
	return map[string]any{"type": "boolean"}
}

func enum[T ~string](values ...T) map[string]any {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = string(v)
	}
	return map[string]any{"type": "string", "enum": vals}
}

func array(items map[string]any, desc string) map[string]any {
	s := map[string]any{"type": "array", "items": items}
	if desc != "" {
		s["description"] = desc
	}
	return s
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

// section describes one regenerable field
type section struct {
	name string
	list bool
}

// Regenerable sections per content type, in display order. Character fields
// that feed the skill-modifier arithmetic (attributes, level, expertise) and
// identity constraints (race, class) are not regenerable.
var sectionOrder = map[content.Type][]section{
	content.TypeCharacter: {
		{"name", false}, {"background", false}, {"history", false}, {"personality", false},
		{"traits", true}, {"spells", true}, {"skills", true}, {"racialTraits", true},
		{"classFeatures", true}, {"voiceDescription", false}, {"associatedMission", false},
	},
	content.TypeEnvironment: {
		{"name", false}, {"description", false}, {"ambient", false}, {"mood", false},
		{"lighting", false}, {"features", true}, {"npcs", true}, {"currentConflict", false},
		{"adventureHooks", true},
	},
	content.TypeMission: {
		{"title", false}, {"description", false}, {"context", false}, {"objectives", true},
		{"rewards", false}, {"difficulty", false}, {"relatedNPCs", true}, {"relatedLocations", true},
		{"recommendedLevel", false}, {"powerfulItems", true}, {"possibleOutcomes", true},
		{"choiceBasedRewards", true},
	},
}

func characterSchema() map[string]any {
	return object(map[string]any{
		"name":        str("An invented, culturally appropriate personal name; never just race plus class"),
		"race":        str("Race, e.g. " + strings.Join(content.RaceNames(), ", ")),
		"class":       enum(content.ClassNames()...),
		"level":       integer(1, 20),
		"background":  str("Background, e.g. " + strings.Join(content.BackgroundNames(), ", ")),
		"history":     str("Several sentences of backstory"),
		"personality": str("Personality and mannerisms"),
		"attributes": object(map[string]any{
			"strength":     integer(1, 30),
			"dexterity":    integer(1, 30),
			"constitution": integer(1, 30),
			"intelligence": integer(1, 30),
			"wisdom":       integer(1, 30),
			"charisma":     integer(1, 30),
		}, "strength", "dexterity", "constitution", "intelligence", "wisdom", "charisma"),
		"expertise": array(optStr(""), "Skill names with doubled proficiency; subset of skills"),
		"spells": array(object(map[string]any{
			"name":        str(""),
			"level":       integer(0, 9),
			"description": str(""),
		}, "name", "level", "description"), "Empty for non-casting classes"),
		"skills": array(object(map[string]any{
			"name":        str("Canonical skill name, e.g. Stealth or Arcana"),
			"proficiency": boolean(),
			"modifier":    map[string]any{"type": "integer"},
		}, "name", "proficiency", "modifier"), ""),
		"traits":       array(str(""), ""),
		"racialTraits": array(str(""), "Canonical features of the race"),
		"classFeatures": array(object(map[string]any{
			"name":        str(""),
			"description": str(""),
			"level":       integer(1, 20),
		}, "name", "description", "level"), "Every mandatory feature of the class up to the character level"),
		"voiceDescription":  str("Voice quality only, no dialogue"),
		"associatedMission": optStr(""),
	}, "name", "race", "class", "level", "background", "history", "personality", "attributes",
		"expertise", "spells", "skills", "traits", "voiceDescription")
}

func environmentSchema() map[string]any {
	return object(map[string]any{
		"name":            str(""),
		"description":     str("Physical description; do not repeat mood or lighting sentences"),
		"ambient":         str("Sounds, smells and atmosphere"),
		"mood":            str("Emotional tone of the place"),
		"lighting":        str("Light sources and their quality"),
		"features":        array(str(""), "Notable features"),
		"npcs":            array(str(""), "Entries formatted as \"Name – role\""),
		"currentConflict": optStr(""),
		"adventureHooks":  array(str(""), "Two or three hooks"),
	}, "name", "description", "ambient", "mood", "lighting", "features", "npcs")
}

func missionSchema() map[string]any {
	return object(map[string]any{
		"title":       str(""),
		"description": str(""),
		"context":     str("Background of the situation"),
		"objectives": array(object(map[string]any{
			"description":   str(""),
			"primary":       boolean(),
			"isAlternative": boolean(),
			"pathType":      enum(content.PathTypes...),
		}, "description", "primary"), "Alternative paths are mutually exclusive and carry a pathType"),
		"rewards": object(map[string]any{
			"xp":    nonNegative(),
			"gold":  nonNegative(),
			"items": array(str(""), ""),
		}, "items"),
		"difficulty":       enum(content.Difficulties...),
		"relatedNPCs":      array(str(""), ""),
		"relatedLocations": array(str(""), ""),
		"recommendedLevel": optStr("Level band matching the difficulty"),
		"powerfulItems": array(object(map[string]any{
			"name":   str(""),
			"status": str(""),
		}, "name", "status"), ""),
		"possibleOutcomes": array(str(""), "Three or four consequences"),
		"choiceBasedRewards": array(object(map[string]any{
			"condition": str(""),
			"rewards":   str(""),
		}, "condition", "rewards"), ""),
	}, "title", "description", "context", "objectives", "rewards", "difficulty", "relatedNPCs", "relatedLocations")
}

