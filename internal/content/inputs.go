package content

import (
	"strings"
)

// Difficulty of a mission
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyDeadly Difficulty = "deadly"
)

// Difficulties lists the valid difficulties, easiest first
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyDeadly}

var difficultyAliases = map[string]Difficulty{
	"easy": DifficultyEasy, "facil": DifficultyEasy,
	"medium": DifficultyMedium, "medio": DifficultyMedium, "media": DifficultyMedium, "normal": DifficultyMedium,
	"hard": DifficultyHard, "dificil": DifficultyHard,
	"deadly": DifficultyDeadly, "mortal": DifficultyDeadly, "letal": DifficultyDeadly,
}

// ParseDifficulty maps an English, Portuguese or Spanish difficulty word to
// the canonical value. It returns "" when nothing matches.
func ParseDifficulty(s string) Difficulty {
	return difficultyAliases[foldKey(s)]
}

// LevelBand returns the advisory recommended level band
func (d Difficulty) LevelBand() string {
	switch d {
	case DifficultyEasy:
		return "1-3"
	case DifficultyMedium:
		return "4-6"
	case DifficultyHard:
		return "7-10"
	case DifficultyDeadly:
		return "11+"
	}
	return ""
}

// DifficultyForLevel inverts LevelBand
func DifficultyForLevel(level int) Difficulty {
	switch {
	case level <= 3:
		return DifficultyEasy
	case level <= 6:
		return DifficultyMedium
	case level <= 10:
		return DifficultyHard
	default:
		return DifficultyDeadly
	}
}

// Tone of the generated prose
type Tone string

const (
	ToneSerious  Tone = "serious"
	TonePlayful  Tone = "playful"
	ToneBalanced Tone = "balanced"
)

// Complexity of the generated prose
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityDetailed Complexity = "detailed"
)

// AdvancedInput carries optional structured constraints from the caller.
// Zero values mean "not constrained".
type AdvancedInput struct {
	// character
	Class      string `json:"class,omitempty"`
	Race       string `json:"race,omitempty"`
	Level      int    `json:"level,omitempty"`
	Background string `json:"background,omitempty"`

	// environment
	Mood     string `json:"mood,omitempty"`
	Lighting string `json:"lighting,omitempty"`
	NPCCount int    `json:"npcCount,omitempty"`

	// mission
	Difficulty     string   `json:"difficulty,omitempty"`
	ObjectiveCount int      `json:"objectiveCount,omitempty"`
	RewardTypes    []string `json:"rewardTypes,omitempty"`
}

// IsZero reports whether no constraint is set
func (a *AdvancedInput) IsZero() bool {
	if a == nil {
		return true
	}
	return a.Class == "" && a.Race == "" && a.Level == 0 && a.Background == "" &&
		a.Mood == "" && a.Lighting == "" && a.NPCCount == 0 &&
		a.Difficulty == "" && a.ObjectiveCount == 0 && len(a.RewardTypes) == 0
}

// GenerationParams tune a single generation call
type GenerationParams struct {
	Temperature *float64   `json:"temperature,omitempty"`
	Tone        Tone       `json:"tone,omitempty"`
	Complexity  Complexity `json:"complexity,omitempty"`
}

// Valid reports whether tone and complexity are empty or known
func (p *GenerationParams) Valid() bool {
	if p == nil {
		return true
	}
	switch p.Tone {
	case "", ToneSerious, TonePlayful, ToneBalanced:
	default:
		return false
	}
	switch p.Complexity {
	case "", ComplexitySimple, ComplexityStandard, ComplexityDetailed:
	default:
		return false
	}
	return true
}

var foldReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "ê", "e", "è", "e",
	"í", "i", "î", "i",
	"ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ü", "u",
	"ç", "c", "ñ", "n",
	"_", " ", "-", " ",
)

// FoldKey is the normalisation used for every multilingual lookup
func FoldKey(s string) string { return foldKey(s) }

// foldKey lowercases, strips the common Portuguese/Spanish diacritics and
// collapses separators so lookups match across spellings.
func foldKey(s string) string {
	s = foldReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(s), " ")
}
