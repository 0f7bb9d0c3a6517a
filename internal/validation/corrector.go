// Package validation corrects generated content so that it is internally
// consistent, and validates request input before it reaches the pipeline.
package validation

import (
	"sort"
	"strings"

	"github.com/qninhdt/rpg-forge/internal/content"
)

const (
	maxAdventureHooks   = 3
	maxPossibleOutcomes = 4
)

// Correct applies the variant-specific corrections to g. It never fails.
func Correct(g content.Generated, adv *content.AdvancedInput) content.Generated {
	switch p := g.Payload.(type) {
	case *content.Character:
		c := CorrectCharacter(*p, adv)
		return content.Wrap(&c)
	case *content.Environment:
		e := CorrectEnvironment(*p, adv)
		return content.Wrap(&e)
	case *content.Mission:
		m := CorrectMission(*p, adv)
		return content.Wrap(&m)
	}
	return g
}

// CorrectSkills recomputes every skill modifier from the character's own
// attributes, level, proficiency flags and expertise list. Skill names are
// canonicalised; unknown and duplicate skills are dropped.
func CorrectSkills(c content.Character) content.Character {
	level := content.ClampLevel(c.Level)

	expert := make(map[string]bool, len(c.Expertise))
	for _, e := range c.Expertise {
		if info, ok := content.LookupSkill(e); ok {
			expert[info.Name] = true
		}
	}

	seen := make(map[string]bool, len(c.Skills))
	skills := make([]content.Skill, 0, len(c.Skills))
	for _, s := range c.Skills {
		info, ok := content.LookupSkill(s.Name)
		if !ok || seen[info.Name] {
			continue
		}
		seen[info.Name] = true
		skills = append(skills, content.Skill{
			Name:        info.Name,
			Proficiency: s.Proficiency,
			Modifier:    content.SkillModifier(c.Attributes, level, info.Ability, s.Proficiency, expert[info.Name]),
		})
	}

	// expertise only counts for skills the character lists
	expertise := make([]string, 0, len(expert))
	for _, s := range skills {
		if expert[s.Name] {
			expertise = append(expertise, s.Name)
		}
	}

	c.Skills = skills
	c.Expertise = expertise
	return c
}

// MissingExpertise lists the expertise entries of c that no longer name one of
// its skills
func MissingExpertise(c content.Character) []string {
	have := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		if info, ok := content.LookupSkill(s.Name); ok {
			have[info.Name] = true
		}
	}
	var missing []string
	for _, e := range c.Expertise {
		if info, ok := content.LookupSkill(e); ok && !have[info.Name] {
			missing = append(missing, info.Name)
		}
	}
	return missing
}

// CorrectCharacter enforces the character invariants: bounded level and
// scores, caller overrides, class-appropriate spells, mandatory class
// features, racial traits and consistent skill modifiers.
func CorrectCharacter(c content.Character, adv *content.AdvancedInput) content.Character {
	if adv != nil {
		if adv.Class != "" {
			c.Class = adv.Class
		}
		if adv.Race != "" {
			c.Race = adv.Race
		}
		if adv.Level > 0 {
			c.Level = adv.Level
		}
		if adv.Background != "" {
			c.Background = adv.Background
		}
	}

	c.Level = content.ClampLevel(c.Level)
	c.Attributes = c.Attributes.Clamp()
	c.Class = content.NormalizeClass(c.Class)
	c.Race = content.NormalizeRace(c.Race)
	c.Background = content.NormalizeBackground(c.Background)

	c.Spells = correctSpells(c.Spells, c.Class, c.Level)
	if class, ok := content.LookupClass(c.Class); ok {
		c.ClassFeatures = mergeFeatures(c.ClassFeatures, class.FeaturesAt(c.Level))
	}
	if len(c.RacialTraits) == 0 {
		c.RacialTraits = content.RacialTraits(c.Race)
	}

	c = CorrectSkills(c)
	c.Tidy()
	return c
}

func correctSpells(spells []content.Spell, class string, level int) []content.Spell {
	info, known := content.LookupClass(class)
	if known && !info.IsCaster(level) {
		return []content.Spell{}
	}
	out := make([]content.Spell, 0, len(spells))
	for _, s := range spells {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		s.Level = min(max(s.Level, 0), 9)
		out = append(out, s)
	}
	return out
}

// mergeFeatures appends the mandatory features the model left out, keeping
// the model's own wording for the ones it did include.
func mergeFeatures(have, mandatory []content.ClassFeature) []content.ClassFeature {
	present := make(map[string]bool, len(have))
	out := make([]content.ClassFeature, 0, len(have)+len(mandatory))
	for _, f := range have {
		present[strings.ToLower(strings.TrimSpace(f.Name))] = true
		out = append(out, f)
	}
	for _, f := range mandatory {
		if !present[strings.ToLower(f.Name)] {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// CorrectEnvironment applies mood and lighting overrides and bounds the lists
func CorrectEnvironment(e content.Environment, adv *content.AdvancedInput) content.Environment {
	if adv != nil {
		if adv.Mood != "" {
			e.Mood = adv.Mood
		}
		if adv.Lighting != "" {
			e.Lighting = adv.Lighting
		}
		if adv.NPCCount > 0 && len(e.NPCs) > adv.NPCCount {
			e.NPCs = e.NPCs[:adv.NPCCount]
		}
	}
	if len(e.AdventureHooks) > maxAdventureHooks {
		e.AdventureHooks = e.AdventureHooks[:maxAdventureHooks]
	}
	e.Tidy()
	return e
}

// ResolveDifficulty picks the caller's difficulty, then the model's, then
// medium.
func ResolveDifficulty(adv *content.AdvancedInput, model content.Difficulty) content.Difficulty {
	if adv != nil {
		if d := content.ParseDifficulty(adv.Difficulty); d != "" {
			return d
		}
	}
	if d := content.ParseDifficulty(string(model)); d != "" {
		return d
	}
	return content.DifficultyMedium
}

// CorrectMission resolves difficulty, clamps rewards and tags alternative
// objectives.
func CorrectMission(m content.Mission, adv *content.AdvancedInput) content.Mission {
	m.Difficulty = ResolveDifficulty(adv, m.Difficulty)
	if strings.TrimSpace(m.RecommendedLevel) == "" {
		m.RecommendedLevel = m.Difficulty.LevelBand()
	}

	if m.Rewards.XP != nil && *m.Rewards.XP < 0 {
		zero := 0
		m.Rewards.XP = &zero
	}
	if m.Rewards.Gold != nil && *m.Rewards.Gold < 0 {
		zero := 0
		m.Rewards.Gold = &zero
	}

	objectives := make([]content.Objective, len(m.Objectives))
	for i, o := range m.Objectives {
		if o.IsAlternative && o.PathType == "" {
			o.PathType = content.PathMixed
		}
		objectives[i] = o
	}
	m.Objectives = objectives

	if len(m.PossibleOutcomes) > maxPossibleOutcomes {
		m.PossibleOutcomes = m.PossibleOutcomes[:maxPossibleOutcomes]
	}
	m.Tidy()
	return m
}
