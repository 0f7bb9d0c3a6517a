package fallback

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/qninhdt/rpg-forge/internal/content"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Env is what catalog rules are evaluated against
type Env struct {
	Scenario string   `expr:"scenario"`
	Words    []string `expr:"words"`
}

func newEnv(scenario string) Env {
	folded := content.FoldKey(scenario)
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return Env{Scenario: folded, Words: words}
}

// Rule is a compiled catalog condition. An empty condition always matches.
type Rule struct {
	When    string `yaml:"when"`
	program *vm.Program
}

func (r *Rule) compile() error {
	if r.When == "" {
		return nil
	}
	program, err := expr.Compile(r.When, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("invalid rule %q: %w", r.When, err)
	}
	r.program = program
	return nil
}

// Match evaluates the rule; evaluation errors count as no match
func (r *Rule) Match(env Env) bool {
	if r.program == nil {
		return true
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// NamePool holds given and family names
type NamePool struct {
	Given  []string `yaml:"given"`
	Family []string `yaml:"family"`
}

// CharacterRule biases the archetype for matching scenarios
type CharacterRule struct {
	Rule        `yaml:",inline"`
	Classes     []string `yaml:"classes"`
	Backgrounds []string `yaml:"backgrounds"`
}

// RaceRule biases the race for matching scenarios
type RaceRule struct {
	Rule  `yaml:",inline"`
	Races []string `yaml:"races"`
}

// DifficultyRule picks a difficulty for matching scenarios
type DifficultyRule struct {
	Rule       `yaml:",inline"`
	Difficulty content.Difficulty `yaml:"difficulty"`
}

// CharacterProse holds prose templates with {name}-style placeholders
type CharacterProse struct {
	Histories     []string `yaml:"histories"`
	Personalities []string `yaml:"personalities"`
	Voices        []string `yaml:"voices"`
	Traits        []string `yaml:"traits"`
	Places        []string `yaml:"places"`
}

// EnvironmentTheme is a family of environment fragments
type EnvironmentTheme struct {
	Rule         `yaml:",inline"`
	Names        []string `yaml:"names"`
	Descriptions []string `yaml:"descriptions"`
	Ambients     []string `yaml:"ambients"`
	Moods        []string `yaml:"moods"`
	Lightings    []string `yaml:"lightings"`
	Features     []string `yaml:"features"`
	Roles        []string `yaml:"roles"`
	Conflicts    []string `yaml:"conflicts"`
	Hooks        []string `yaml:"hooks"`
}

// MissionTheme is a family of mission fragments
type MissionTheme struct {
	Rule          `yaml:",inline"`
	Titles        []string               `yaml:"titles"`
	Descriptions  []string               `yaml:"descriptions"`
	Contexts      []string               `yaml:"contexts"`
	Primary       []string               `yaml:"primary"`
	Combat        []string               `yaml:"combat"`
	Social        []string               `yaml:"social"`
	Stealth       []string               `yaml:"stealth"`
	Items         []string               `yaml:"items"`
	Locations     []string               `yaml:"locations"`
	Roles         []string               `yaml:"roles"`
	PowerfulItems []content.PowerfulItem `yaml:"powerfulItems"`
	Outcomes      []string               `yaml:"outcomes"`
	Choices       []content.ChoiceReward `yaml:"choices"`
}

// Catalog is the offline content source
type Catalog struct {
	Names           map[string]NamePool        `yaml:"names"`
	CharacterRules  []CharacterRule            `yaml:"characterRules"`
	RaceRules       []RaceRule                 `yaml:"raceRules"`
	Character       CharacterProse             `yaml:"character"`
	Spells          map[string][]content.Spell `yaml:"spells"`
	NPCNames        []string                   `yaml:"npcNames"`
	Environments    []EnvironmentTheme         `yaml:"environments"`
	DifficultyRules []DifficultyRule           `yaml:"difficultyRules"`
	Missions        []MissionTheme             `yaml:"missions"`
}

// LoadCatalog parses and compiles a catalog document
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var rules []*Rule
	for i := range c.CharacterRules {
		rules = append(rules, &c.CharacterRules[i].Rule)
	}
	for i := range c.RaceRules {
		rules = append(rules, &c.RaceRules[i].Rule)
	}
	for i := range c.DifficultyRules {
		rules = append(rules, &c.DifficultyRules[i].Rule)
	}
	for i := range c.Environments {
		rules = append(rules, &c.Environments[i].Rule)
	}
	for i := range c.Missions {
		rules = append(rules, &c.Missions[i].Rule)
	}
	for _, r := range rules {
		if err := r.compile(); err != nil {
			return nil, err
		}
	}

	if _, ok := c.Names["default"]; !ok {
		return nil, fmt.Errorf("catalog has no default name pool")
	}
	if len(c.Environments) == 0 || c.Environments[len(c.Environments)-1].When != "" {
		return nil, fmt.Errorf("catalog must end with an unconditional environment theme")
	}
	if len(c.Missions) == 0 || c.Missions[len(c.Missions)-1].When != "" {
		return nil, fmt.Errorf("catalog must end with an unconditional mission theme")
	}
	for class := range c.Spells {
		if _, ok := content.LookupClass(class); !ok {
			return nil, fmt.Errorf("catalog lists spells for unknown class %q", class)
		}
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(catalogYAML)
}

// matching returns the themes whose rule matches. Unconditional themes are
// only used when nothing more specific matches.
func matching[T any](themes []T, rule func(*T) *Rule, env Env) []*T {
	var specific, generic []*T
	for i := range themes {
		r := rule(&themes[i])
		switch {
		case r.When == "":
			generic = append(generic, &themes[i])
		case r.Match(env):
			specific = append(specific, &themes[i])
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return generic
}
