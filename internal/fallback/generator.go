// Package fallback synthesizes schema-valid content offline from keyword
// rules and seeded pseudo-random choices. The same inputs always produce the
// same output.
package fallback

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/qninhdt/rpg-forge/internal/content"
)

// standard ability score array, highest first
var standardArray = [6]int{15, 14, 13, 12, 10, 8}

var abilities = [6]content.Ability{
	content.Strength, content.Dexterity, content.Constitution,
	content.Intelligence, content.Wisdom, content.Charisma,
}

// Generator produces offline content
type Generator struct {
	catalog *Catalog
	logger  *zap.Logger
}

// New creates a generator over the embedded catalog
func New(logger *zap.Logger) (*Generator, error) {
	cat, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return NewWithCatalog(cat, logger), nil
}

// NewWithCatalog creates a generator over a custom catalog
func NewWithCatalog(cat *Catalog, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{catalog: cat, logger: logger.Named("fallback")}
}

// MustNew is New for process start-up
func MustNew(logger *zap.Logger) *Generator {
	g, err := New(logger)
	if err != nil {
		panic(err)
	}
	return g
}

// seed derives a stable seed from the inputs
func seed(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	s := h.Sum64()
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

func advancedKey(adv *content.AdvancedInput) string {
	if adv.IsZero() {
		return ""
	}
	b, _ := json.Marshal(adv)
	return string(b)
}

func pick[T any](r *rand.Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[r.IntN(len(items))]
}

// pickN returns n distinct items in random order, or all of them if fewer
func pickN[T any](r *rand.Rand, items []T, n int) []T {
	idx := r.Perm(len(items))
	n = min(n, len(items))
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = items[idx[i]]
	}
	return out
}

func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Generate returns content of type t for the scenario, honoring adv
func (g *Generator) Generate(scenario string, t content.Type, adv *content.AdvancedInput) content.Generated {
	r := seed(string(t), scenario, advancedKey(adv))
	env := newEnv(scenario)

	var p content.Payload
	switch t {
	case content.TypeEnvironment:
		p = g.environment(r, env, adv)
	case content.TypeMission:
		p = g.mission(r, env, adv)
	default:
		p = g.character(r, env, adv, nil)
	}
	p.Tidy()

	g.logger.Debug("generated fallback content",
		zap.String("content_type", string(t)),
		zap.String("name", p.DisplayName()),
	)
	return content.Wrap(p)
}

// Character returns a fallback character
func (g *Generator) Character(scenario string, adv *content.AdvancedInput) *content.Character {
	c, _ := g.Generate(scenario, content.TypeCharacter, adv).Character()
	return c
}

// Section returns a fallback value for one section of current, matching the
// section contract: the whole field, or a single element when index is set.
// Identity fields of the current record constrain the fresh draft so that the
// value fits the record it is spliced into.
func (g *Generator) Section(scenario string, current content.Generated, section string, index *int) (json.RawMessage, error) {
	idx := -1
	if index != nil {
		idx = *index
	}
	r := seed("section", string(current.Type), scenario, current.DisplayName(), section, fmt.Sprint(idx))
	env := newEnv(scenario)

	var draft content.Payload
	switch p := current.Payload.(type) {
	case *content.Character:
		adv := &content.AdvancedInput{Class: p.Class, Race: p.Race, Level: p.Level, Background: p.Background}
		c := g.character(r, env, adv, &p.Attributes)
		c.Skills = withExpertise(c.Skills, p.Expertise, c.Attributes, c.Level)
		c.Expertise = slices.Clone(p.Expertise)
		theme := pick(r, matching(g.catalog.Missions, func(t *MissionTheme) *Rule { return &t.Rule }, env))
		c.AssociatedMission = pick(r, theme.Titles)
		draft = c
	case *content.Environment:
		draft = g.environment(r, env, nil)
	case *content.Mission:
		draft = g.mission(r, env, &content.AdvancedInput{Difficulty: string(p.Difficulty)})
	default:
		return nil, fmt.Errorf("unsupported content type %q", current.Type)
	}
	draft.Tidy()
	fresh := content.Wrap(draft)

	if index == nil {
		value, err := content.SectionValue(fresh, section, nil)
		if err != nil {
			return nil, err
		}
		if string(value) == "null" {
			return emptyValue(section), nil
		}
		return value, nil
	}
	n, err := content.SectionLen(fresh, section)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// nothing to offer for this list; keep the current element
		return content.SectionValue(current, section, index)
	}
	i := *index % n
	return content.SectionValue(fresh, section, &i)
}

// withExpertise makes sure every expertise skill is present and proficient,
// then recomputes the modifiers against that expertise
func withExpertise(skills []content.Skill, expertise []string, attrs content.Attributes, level int) []content.Skill {
	expert := make(map[string]bool, len(expertise))
	for _, e := range expertise {
		if info, ok := content.LookupSkill(e); ok {
			expert[info.Name] = true
		}
	}

	out := make([]content.Skill, 0, len(skills)+len(expert))
	seen := make(map[string]bool, len(skills))
	for _, sk := range skills {
		seen[sk.Name] = true
		out = append(out, sk)
	}
	for name := range expert {
		if !seen[name] {
			out = append(out, content.Skill{Name: name})
		}
	}

	for i := range out {
		info, _ := content.LookupSkill(out[i].Name)
		if expert[info.Name] {
			out[i].Proficiency = true
		}
		out[i].Modifier = content.SkillModifier(attrs, level, info.Ability, out[i].Proficiency, expert[info.Name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// optional list fields are omitted when empty
var optionalLists = map[string]bool{
	"racialTraits": true, "classFeatures": true, "adventureHooks": true,
	"powerfulItems": true, "possibleOutcomes": true, "choiceBasedRewards": true,
}

func emptyValue(section string) json.RawMessage {
	if optionalLists[section] {
		return json.RawMessage(`[]`)
	}
	return json.RawMessage(`""`)
}

func (g *Generator) character(r *rand.Rand, env Env, adv *content.AdvancedInput, attrs *content.Attributes) *content.Character {
	if adv == nil {
		adv = &content.AdvancedInput{}
	}

	var rule *CharacterRule
	if rules := matching(g.catalog.CharacterRules, func(cr *CharacterRule) *Rule { return &cr.Rule }, env); len(rules) > 0 {
		rule = rules[0]
	}

	class, ok := content.LookupClass(adv.Class)
	if !ok {
		candidates := content.ClassNames()
		if rule != nil && len(rule.Classes) > 0 {
			candidates = rule.Classes
		}
		class, _ = content.LookupClass(pick(r, candidates))
	}

	race := content.NormalizeRace(adv.Race)
	if race == "" {
		candidates := content.RaceNames()
		if races := matching(g.catalog.RaceRules, func(rr *RaceRule) *Rule { return &rr.Rule }, env); len(races) > 0 {
			candidates = races[0].Races
		}
		race = pick(r, candidates)
	}

	level := content.ClampLevel(adv.Level)
	if adv.Level == 0 {
		level = between(r, 1, 10)
	}

	background := content.NormalizeBackground(adv.Background)
	if background == "" {
		candidates := content.BackgroundNames()
		if rule != nil && len(rule.Backgrounds) > 0 {
			candidates = rule.Backgrounds
		}
		background = pick(r, candidates)
	}

	var attributes content.Attributes
	if attrs != nil {
		attributes = attrs.Clamp()
	} else {
		attributes = g.attributes(r, class)
	}

	name := g.name(r, race)
	prose := g.catalog.Character
	fill := strings.NewReplacer(
		"{name}", name,
		"{race}", race,
		"{class}", class.Name,
		"{background}", strings.ToLower(background),
		"{place}", pick(r, prose.Places),
	)

	skills, expertise := g.skills(r, class, attributes, level)

	return &content.Character{
		Name:             name,
		Race:             race,
		Class:            class.Name,
		Level:            level,
		Background:       background,
		History:          fill.Replace(pick(r, prose.Histories)),
		Personality:      pick(r, prose.Personalities),
		Attributes:       attributes,
		Expertise:        expertise,
		Spells:           g.spells(r, class, level),
		Skills:           skills,
		Traits:           pickN(r, prose.Traits, between(r, 2, 3)),
		RacialTraits:     content.RacialTraits(race),
		ClassFeatures:    class.FeaturesAt(level),
		VoiceDescription: pick(r, prose.Voices),
	}
}

// name picks a race-appropriate name that is never "<Race> <Class>"
func (g *Generator) name(r *rand.Rand, race string) string {
	pool, ok := g.catalog.Names[race]
	if !ok {
		pool = g.catalog.Names["default"]
	}
	given := pick(r, pool.Given)
	if family := pick(r, pool.Family); family != "" {
		return given + " " + family
	}
	return given
}

// attributes assigns the standard array: the primary ability gets the highest
// score, saving throw abilities come next, the rest are shuffled.
func (g *Generator) attributes(r *rand.Rand, class *content.ClassInfo) content.Attributes {
	order := []content.Ability{class.Primary}
	for _, s := range class.Saves {
		if s != class.Primary {
			order = append(order, s)
		}
	}
	var rest []content.Ability
	for _, a := range abilities {
		if !slices.Contains(order, a) {
			rest = append(rest, a)
		}
	}
	r.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	order = append(order, rest...)

	scores := make(map[content.Ability]int, len(abilities))
	for i, a := range order {
		scores[a] = standardArray[i]
	}
	return content.Attributes{
		Strength:     scores[content.Strength],
		Dexterity:    scores[content.Dexterity],
		Constitution: scores[content.Constitution],
		Intelligence: scores[content.Intelligence],
		Wisdom:       scores[content.Wisdom],
		Charisma:     scores[content.Charisma],
	}
}

// skills picks proficient class skills plus a few untrained ones, and
// computes every modifier with the shared d20 arithmetic.
func (g *Generator) skills(r *rand.Rand, class *content.ClassInfo, attrs content.Attributes, level int) ([]content.Skill, []string) {
	proficient := pickN(r, class.Skills, between(r, 2, 4))
	profSet := make(map[string]bool, len(proficient))
	for _, s := range proficient {
		profSet[s] = true
	}

	var untrained []string
	for _, s := range content.SkillNames() {
		if !profSet[s] {
			untrained = append(untrained, s)
		}
	}
	names := append(slices.Clone(proficient), pickN(r, untrained, 2)...)
	sort.Strings(names)

	expert := map[string]bool{}
	if class.Name == "Rogue" || (class.Name == "Bard" && level >= 3) {
		for _, s := range pickN(r, proficient, 2) {
			expert[s] = true
		}
	}

	skills := make([]content.Skill, 0, len(names))
	expertise := []string{}
	for _, n := range names {
		info, _ := content.LookupSkill(n)
		skills = append(skills, content.Skill{
			Name:        info.Name,
			Proficiency: profSet[n],
			Modifier:    content.SkillModifier(attrs, level, info.Ability, profSet[n], expert[n]),
		})
		if expert[n] {
			expertise = append(expertise, info.Name)
		}
	}
	return skills, expertise
}

// spells picks a class-sized list of castable spells, lowest level first
func (g *Generator) spells(r *rand.Rand, class *content.ClassInfo, level int) []content.Spell {
	lo, hi := class.SpellCount(level)
	if hi == 0 {
		return []content.Spell{}
	}
	maxLevel := class.MaxSpellLevel(level)
	var eligible []content.Spell
	for _, s := range g.catalog.Spells[class.Name] {
		if s.Level > maxLevel || (s.Level == 0 && !class.HasCantrips()) {
			continue
		}
		eligible = append(eligible, s)
	}
	chosen := pickN(r, eligible, between(r, lo, hi))
	sort.SliceStable(chosen, func(i, j int) bool {
		if chosen[i].Level != chosen[j].Level {
			return chosen[i].Level < chosen[j].Level
		}
		return chosen[i].Name < chosen[j].Name
	})
	return chosen
}

func (g *Generator) npcs(r *rand.Rand, roles []string, n int) []string {
	names := pickN(r, g.catalog.NPCNames, n)
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name + " – " + pick(r, roles)
	}
	return out
}

func (g *Generator) environment(r *rand.Rand, env Env, adv *content.AdvancedInput) *content.Environment {
	if adv == nil {
		adv = &content.AdvancedInput{}
	}
	theme := pick(r, matching(g.catalog.Environments, func(t *EnvironmentTheme) *Rule { return &t.Rule }, env))

	npcCount := adv.NPCCount
	if npcCount <= 0 {
		npcCount = between(r, 2, 4)
	}

	e := &content.Environment{
		Name:            pick(r, theme.Names),
		Description:     pick(r, theme.Descriptions),
		Ambient:         pick(r, theme.Ambients),
		Mood:            pick(r, theme.Moods),
		Lighting:        pick(r, theme.Lightings),
		Features:        pickN(r, theme.Features, between(r, 3, 5)),
		NPCs:            g.npcs(r, theme.Roles, npcCount),
		CurrentConflict: pick(r, theme.Conflicts),
		AdventureHooks:  pickN(r, theme.Hooks, between(r, 2, 3)),
	}
	if adv.Mood != "" {
		e.Mood = adv.Mood
	}
	if adv.Lighting != "" {
		e.Lighting = adv.Lighting
	}
	return e
}

// rewardScale is the xp and gold range per difficulty
var rewardScale = map[content.Difficulty][2]int{
	content.DifficultyEasy:   {100, 300},
	content.DifficultyMedium: {400, 900},
	content.DifficultyHard:   {1000, 2500},
	content.DifficultyDeadly: {3000, 8000},
}

func (g *Generator) difficulty(r *rand.Rand, env Env, adv *content.AdvancedInput) content.Difficulty {
	if d := content.ParseDifficulty(adv.Difficulty); d != "" {
		return d
	}
	for i := range g.catalog.DifficultyRules {
		rule := &g.catalog.DifficultyRules[i]
		if rule.When != "" && rule.Match(env) {
			return rule.Difficulty
		}
	}
	return pick(r, []content.Difficulty{content.DifficultyEasy, content.DifficultyMedium, content.DifficultyMedium, content.DifficultyHard})
}

func (g *Generator) mission(r *rand.Rand, env Env, adv *content.AdvancedInput) *content.Mission {
	if adv == nil {
		adv = &content.AdvancedInput{}
	}
	theme := pick(r, matching(g.catalog.Missions, func(t *MissionTheme) *Rule { return &t.Rule }, env))
	difficulty := g.difficulty(r, env, adv)

	count := adv.ObjectiveCount
	if count <= 0 {
		count = 3
	}
	objectives := []content.Objective{{Description: pick(r, theme.Primary), Primary: true}}
	paths := []struct {
		kind content.PathType
		pool []string
	}{
		{content.PathCombat, theme.Combat},
		{content.PathSocial, theme.Social},
		{content.PathStealth, theme.Stealth},
	}
	r.Shuffle(len(paths), func(i, j int) { paths[i], paths[j] = paths[j], paths[i] })
	for i := 0; len(objectives) < count && i < len(paths); i++ {
		objectives = append(objectives, content.Objective{
			Description:   pick(r, paths[i].pool),
			IsAlternative: true,
			PathType:      paths[i].kind,
		})
	}

	scale := rewardScale[difficulty]
	xp := between(r, scale[0], scale[1]) / 10 * 10
	gold := between(r, scale[0]/4, scale[1]/4)
	rewards := content.Rewards{XP: &xp, Gold: &gold, Items: pickN(r, theme.Items, between(r, 1, 2))}
	if len(adv.RewardTypes) > 0 {
		wants := map[string]bool{}
		for _, t := range adv.RewardTypes {
			wants[content.FoldKey(t)] = true
		}
		if !wants["xp"] && !wants["experience"] && !wants["experiencia"] {
			rewards.XP = nil
		}
		if !wants["gold"] && !wants["ouro"] && !wants["oro"] {
			rewards.Gold = nil
		}
		if !wants["items"] && !wants["itens"] && !wants["objetos"] && !wants["item"] {
			rewards.Items = []string{}
		}
	}

	return &content.Mission{
		Title:              pick(r, theme.Titles),
		Description:        pick(r, theme.Descriptions),
		Context:            pick(r, theme.Contexts),
		Objectives:         objectives,
		Rewards:            rewards,
		Difficulty:         difficulty,
		RelatedNPCs:        g.npcs(r, theme.Roles, 2),
		RelatedLocations:   pickN(r, theme.Locations, 2),
		RecommendedLevel:   difficulty.LevelBand(),
		PowerfulItems:      pickN(r, theme.PowerfulItems, 1),
		PossibleOutcomes:   pickN(r, theme.Outcomes, between(r, 3, 4)),
		ChoiceBasedRewards: pickN(r, theme.Choices, 2),
	}
}
