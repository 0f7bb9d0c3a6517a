package content

import "sort"

// Ability names one of the six ability scores
type Ability string

const (
	Strength     Ability = "strength"
	Dexterity    Ability = "dexterity"
	Constitution Ability = "constitution"
	Intelligence Ability = "intelligence"
	Wisdom       Ability = "wisdom"
	Charisma     Ability = "charisma"
)

// Score returns the score for an ability
func (a Attributes) Score(ab Ability) int {
	switch ab {
	case Strength:
		return a.Strength
	case Dexterity:
		return a.Dexterity
	case Constitution:
		return a.Constitution
	case Intelligence:
		return a.Intelligence
	case Wisdom:
		return a.Wisdom
	case Charisma:
		return a.Charisma
	}
	return 10
}

// Clamp bounds every score to 1-30
func (a Attributes) Clamp() Attributes {
	return Attributes{
		Strength:     clamp(a.Strength, 1, 30),
		Dexterity:    clamp(a.Dexterity, 1, 30),
		Constitution: clamp(a.Constitution, 1, 30),
		Intelligence: clamp(a.Intelligence, 1, 30),
		Wisdom:       clamp(a.Wisdom, 1, 30),
		Charisma:     clamp(a.Charisma, 1, 30),
	}
}

// AbilityModifier is floor((score-10)/2)
func AbilityModifier(score int) int {
	return floorDiv(score-10, 2)
}

// ProficiencyBonus is floor((level+7)/4)
func ProficiencyBonus(level int) int {
	return floorDiv(level+7, 4)
}

// SkillModifier computes a skill modifier from the character's own inputs
func SkillModifier(attrs Attributes, level int, ability Ability, proficient, expert bool) int {
	mod := AbilityModifier(attrs.Score(ability))
	pb := ProficiencyBonus(level)
	if proficient {
		mod += pb
	}
	if expert {
		mod += pb
	}
	return mod
}

// floorDiv divides rounding toward negative infinity; Go's / truncates.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampLevel bounds a character level to 1-20
func ClampLevel(level int) int {
	return clamp(level, 1, 20)
}

// SkillInfo describes one of the canonical skills
type SkillInfo struct {
	Name    string
	Ability Ability
	Aliases []string
}

var skillTable = []SkillInfo{
	{"Acrobatics", Dexterity, []string{"acrobacia", "acrobacias"}},
	{"Animal Handling", Wisdom, []string{"adestrar animais", "lidar com animais", "trato con animales", "manejo de animales"}},
	{"Arcana", Intelligence, []string{"arcanismo", "arcanos"}},
	{"Athletics", Strength, []string{"atletismo"}},
	{"Deception", Charisma, []string{"enganacao", "engano", "engaño"}},
	{"History", Intelligence, []string{"historia", "história"}},
	{"Insight", Wisdom, []string{"intuicao", "intuição", "perspicacia", "intuicion"}},
	{"Intimidation", Charisma, []string{"intimidacao", "intimidação", "intimidacion"}},
	{"Investigation", Intelligence, []string{"investigacao", "investigação", "investigacion"}},
	{"Medicine", Wisdom, []string{"medicina"}},
	{"Nature", Intelligence, []string{"natureza", "naturaleza"}},
	{"Perception", Wisdom, []string{"percepcao", "percepção", "percepcion"}},
	{"Performance", Charisma, []string{"atuacao", "atuação", "actuacion", "interpretacion"}},
	{"Persuasion", Charisma, []string{"persuasao", "persuasão", "persuasion"}},
	{"Religion", Intelligence, []string{"religiao", "religião", "religion"}},
	{"Sleight of Hand", Dexterity, []string{"prestidigitacao", "prestidigitação", "juego de manos", "juego de mano"}},
	{"Stealth", Dexterity, []string{"furtividade", "sigilo", "furtividad"}},
	{"Survival", Wisdom, []string{"sobrevivencia", "sobrevivência", "supervivencia"}},
}

var skillIndex = func() map[string]SkillInfo {
	idx := make(map[string]SkillInfo, len(skillTable)*4)
	for _, s := range skillTable {
		idx[foldKey(s.Name)] = s
		for _, a := range s.Aliases {
			idx[foldKey(a)] = s
		}
	}
	return idx
}()

// LookupSkill resolves a canonical, Portuguese or Spanish skill name
func LookupSkill(name string) (SkillInfo, bool) {
	s, ok := skillIndex[foldKey(name)]
	return s, ok
}

// SkillNames returns the canonical skill names in alphabetical order
func SkillNames() []string {
	names := make([]string, len(skillTable))
	for i, s := range skillTable {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}
