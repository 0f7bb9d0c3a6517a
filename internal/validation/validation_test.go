package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

func intPtr(i int) *int { return &i }

func wizard() content.Character {
	return content.Character{
		Name:       "Aelar Thalanis",
		Race:       "elfo",
		Class:      "mago",
		Level:      5,
		Background: "sabio",
		Attributes: content.Attributes{Strength: 8, Dexterity: 14, Constitution: 12, Intelligence: 17, Wisdom: 13, Charisma: 10},
		Expertise:  []string{"arcanismo", "Stealth"},
		Spells: []content.Spell{
			{Name: "Fire Bolt", Level: 0, Description: "A mote of fire."},
			{Name: "Meteor Swarm", Level: 12, Description: "Too strong."},
			{Name: "  ", Level: 1, Description: "blank"},
		},
		Skills: []content.Skill{
			{Name: "Arcana", Proficiency: true, Modifier: 99},
			{Name: "história", Proficiency: true, Modifier: -4},
			{Name: "Perception", Proficiency: false, Modifier: 7},
			{Name: "Basket Weaving", Proficiency: true, Modifier: 3},
			{Name: "arcana", Proficiency: false, Modifier: 0},
		},
		ClassFeatures: []content.ClassFeature{
			{Name: "Arcane Recovery", Description: "Recover slots on a short rest, in my own words.", Level: 1},
		},
	}
}

func TestCorrectSkills(t *testing.T) {
	c := CorrectSkills(wizard())

	require.Len(t, c.Skills, 3)
	// INT 17 → +3, proficiency bonus at level 5 → +3, expertise doubles it
	assert.Equal(t, content.Skill{Name: "Arcana", Proficiency: true, Modifier: 9}, c.Skills[0])
	assert.Equal(t, content.Skill{Name: "History", Proficiency: true, Modifier: 6}, c.Skills[1])
	// WIS 13 → +1, no proficiency
	assert.Equal(t, content.Skill{Name: "Perception", Proficiency: false, Modifier: 1}, c.Skills[2])

	assert.Equal(t, []string{"Arcana"}, c.Expertise, "expertise is limited to listed skills")
}

func TestCorrectSkillsHoldsInvariant(t *testing.T) {
	for level := 1; level <= 20; level++ {
		c := wizard()
		c.Level = level
		c = CorrectSkills(c)
		pb := (level + 7) / 4
		for _, s := range c.Skills {
			info, ok := content.LookupSkill(s.Name)
			require.True(t, ok)
			want := content.AbilityModifier(c.Attributes.Score(info.Ability))
			if s.Proficiency {
				want += pb
			}
			for _, e := range c.Expertise {
				if e == s.Name {
					want += pb
				}
			}
			assert.Equal(t, want, s.Modifier, "level %d skill %s", level, s.Name)
		}
	}
}

func TestCorrectSkillsDoesNotMutateInput(t *testing.T) {
	orig := wizard()
	_ = CorrectSkills(orig)
	assert.Equal(t, 99, orig.Skills[0].Modifier)
}

func TestMissingExpertise(t *testing.T) {
	c := content.Character{
		Skills:    []content.Skill{{Name: "Stealth", Proficiency: true}, {Name: "arcana"}},
		Expertise: []string{"stealth", "Arcana", "Insight", "Juggling"},
	}
	assert.Equal(t, []string{"Insight"}, MissingExpertise(c))

	c.Expertise = []string{"Stealth"}
	assert.Empty(t, MissingExpertise(c))
}

func TestCorrectCharacter(t *testing.T) {
	c := CorrectCharacter(wizard(), nil)

	assert.Equal(t, "Wizard", c.Class)
	assert.Equal(t, "Elf", c.Race)
	assert.Equal(t, "Sage", c.Background)
	require.Len(t, c.Spells, 2)
	assert.Equal(t, 9, c.Spells[1].Level)
	assert.Equal(t, []string{"Darkvision", "Keen Senses", "Fey Ancestry", "Trance"}, c.RacialTraits)

	names := map[string]bool{}
	for _, f := range c.ClassFeatures {
		names[f.Name] = true
		assert.LessOrEqual(t, f.Level, 5)
	}
	assert.True(t, names["Spellcasting"])
	assert.True(t, names["Arcane Tradition"])
	assert.Equal(t, "Recover slots on a short rest, in my own words.", c.ClassFeatures[0].Description)
	assert.NotNil(t, c.Traits)
}

func TestCorrectCharacterOverridesAndNonCasters(t *testing.T) {
	c := wizard()
	c.Level = 40
	c.Attributes.Strength = 0
	c.Attributes.Intelligence = 35

	out := CorrectCharacter(c, &content.AdvancedInput{Class: "guerreiro", Level: 3, Race: "anão"})
	assert.Equal(t, "Fighter", out.Class)
	assert.Equal(t, 3, out.Level)
	assert.Equal(t, "Dwarf", out.Race)
	assert.Equal(t, 1, out.Attributes.Strength)
	assert.Equal(t, 30, out.Attributes.Intelligence)
	assert.NotNil(t, out.Spells)
	assert.Empty(t, out.Spells)

	for _, class := range []string{"Barbarian", "Rogue", "Monk"} {
		c := wizard()
		c.Class = class
		assert.Empty(t, CorrectCharacter(c, nil).Spells, class)
	}

	paladin := wizard()
	paladin.Class = "Paladin"
	paladin.Level = 1
	assert.Empty(t, CorrectCharacter(paladin, nil).Spells, "half casters start casting at level 2")
}

func TestCorrectEnvironment(t *testing.T) {
	e := content.Environment{
		Name:           "The Gilded Tankard",
		Mood:           "cheerful",
		NPCs:           []string{"Bram – barkeep", "Ilse – bard", "Tom – drunk"},
		AdventureHooks: []string{"a", "b", "c", "d"},
	}
	out := CorrectEnvironment(e, &content.AdvancedInput{Mood: "tense", Lighting: "candlelit", NPCCount: 2})

	assert.Equal(t, "tense", out.Mood)
	assert.Equal(t, "candlelit", out.Lighting)
	assert.Len(t, out.NPCs, 2)
	assert.Len(t, out.AdventureHooks, 3)
	assert.NotNil(t, out.Features)
	assert.Len(t, e.NPCs, 3)
}

func TestResolveDifficulty(t *testing.T) {
	tests := []struct {
		name  string
		adv   *content.AdvancedInput
		model content.Difficulty
		want  content.Difficulty
	}{
		{"advanced wins", &content.AdvancedInput{Difficulty: "hard"}, content.DifficultyEasy, content.DifficultyHard},
		{"advanced alias", &content.AdvancedInput{Difficulty: "Difícil"}, content.DifficultyEasy, content.DifficultyHard},
		{"model second", nil, content.DifficultyDeadly, content.DifficultyDeadly},
		{"empty advanced", &content.AdvancedInput{}, content.DifficultyEasy, content.DifficultyEasy},
		{"default", nil, "", content.DifficultyMedium},
		{"garbage model", nil, "impossible", content.DifficultyMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDifficulty(tt.adv, tt.model))
		})
	}
}

func TestCorrectMission(t *testing.T) {
	m := content.Mission{
		Title:      "The Stolen Relic",
		Difficulty: content.DifficultyEasy,
		Objectives: []content.Objective{
			{Description: "Recover the relic", Primary: true},
			{Description: "Fight the guards", IsAlternative: true},
			{Description: "Bribe the guards", IsAlternative: true, PathType: content.PathSocial},
		},
		Rewards:          content.Rewards{XP: intPtr(-50), Gold: intPtr(100)},
		PossibleOutcomes: []string{"1", "2", "3", "4", "5"},
	}
	out := CorrectMission(m, &content.AdvancedInput{Difficulty: "hard"})

	assert.Equal(t, content.DifficultyHard, out.Difficulty)
	assert.Equal(t, "7-10", out.RecommendedLevel)
	assert.Equal(t, 0, *out.Rewards.XP)
	assert.Equal(t, 100, *out.Rewards.Gold)
	assert.Empty(t, out.Objectives[0].PathType)
	assert.Equal(t, content.PathMixed, out.Objectives[1].PathType)
	assert.Equal(t, content.PathSocial, out.Objectives[2].PathType)
	assert.Len(t, out.PossibleOutcomes, 4)
	assert.NotNil(t, out.Rewards.Items)
	assert.Equal(t, -50, *m.Rewards.XP, "input is left untouched")
}

func TestCorrectDispatch(t *testing.T) {
	c := wizard()
	g := Correct(content.Wrap(&c), nil)
	out, ok := g.Character()
	require.True(t, ok)
	assert.Equal(t, "Wizard", out.Class)
	assert.Equal(t, "mago", c.Class)
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, ValidateContentID(uuid.NewString()))
	assert.True(t, rpgerr.IsInvalidArgument(ValidateContentID("../etc/passwd")))

	assert.NoError(t, ValidateScenario("A haunted lighthouse"))
	assert.Error(t, ValidateScenario("   "))
	assert.Error(t, ValidateScenario(strings.Repeat("a", MaxScenarioLength+1)))
	assert.NoError(t, ValidateScenario(strings.Repeat("ã", MaxScenarioLength)))

	assert.NoError(t, ValidateSectionName("adventureHooks"))
	assert.Error(t, ValidateSectionName("npcs[0]"))
	assert.NoError(t, ValidateSectionIndex(nil))
	assert.Error(t, ValidateSectionIndex(intPtr(-1)))

	tags, err := ValidateTags([]string{" Taverna ", "taverna", "boss-fight"})
	require.NoError(t, err)
	assert.Equal(t, []string{"taverna", "boss-fight"}, tags)
	_, err = ValidateTags([]string{"<script>"})
	assert.Error(t, err)

	assert.NoError(t, ValidateAdvanced(nil))
	assert.NoError(t, ValidateAdvanced(&content.AdvancedInput{Level: 5, Difficulty: "mortal"}))
	assert.Error(t, ValidateAdvanced(&content.AdvancedInput{Level: 21}))
	assert.Error(t, ValidateAdvanced(&content.AdvancedInput{Difficulty: "nightmare"}))

	assert.NoError(t, ValidateParams(nil))
	assert.Error(t, ValidateParams(&content.GenerationParams{Tone: "grim"}))
}
