// Package prompts composes the system and user prompts sent to the model.
// Builders are pure functions of their inputs.
package prompts

import (
	"embed"
	"fmt"
	"strings"

	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/language"
)

//go:embed templates/*.md
var templateFS embed.FS

func mustTemplate(name string) string {
	b, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("prompts: missing template %s: %v", name, err))
	}
	return string(b)
}

var (
	systemTemplate        = mustTemplate("system.md")
	userTemplate          = mustTemplate("user.md")
	sectionSystemTemplate = mustTemplate("section_system.md")
	sectionUserTemplate   = mustTemplate("section_user.md")
	variationTemplate     = mustTemplate("variation.md")

	typeTemplates = map[content.Type]string{
		content.TypeCharacter:   mustTemplate("character.md"),
		content.TypeEnvironment: mustTemplate("environment.md"),
		content.TypeMission:     mustTemplate("mission.md"),
	}
)

// Prompt is a system/user instruction pair
type Prompt struct {
	System string
	User   string
}

// Input is everything a full-content prompt depends on
type Input struct {
	Scenario string
	Type     content.Type
	Language language.Language
	Advanced *content.AdvancedInput
	Params   *content.GenerationParams
}

var nativeNames = map[language.Language]string{
	language.English:    "English",
	language.Portuguese: "Portuguese (português)",
	language.Spanish:    "Spanish (español)",
}

func languageName(l language.Language) string {
	if n, ok := nativeNames[l]; ok {
		return n
	}
	return nativeNames[language.English]
}

func render(tmpl string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Build composes the prompt pair for a full generation
func Build(in Input) Prompt {
	lang := languageName(in.Language)
	system := render(systemTemplate,
		"{{LANGUAGE}}", lang,
		"{{CONTENT_TYPE}}", string(in.Type),
		"{{TYPE_RULES}}", typeRules(in.Type, in.Advanced),
		"{{STYLE}}", styleFragments(in.Params),
	)
	user := render(userTemplate,
		"{{LANGUAGE}}", lang,
		"{{CONTENT_TYPE}}", string(in.Type),
		"{{SCENARIO}}", strings.TrimSpace(in.Scenario),
		"{{CONSTRAINTS}}", constraintBlock(in.Type, in.Advanced),
	)
	return Prompt{System: tidy(system), User: tidy(user)}
}

func typeRules(t content.Type, adv *content.AdvancedInput) string {
	tmpl := typeTemplates[t]
	if t != content.TypeCharacter {
		return tmpl
	}
	return render(tmpl,
		"{{NAME_EXAMPLE}}", nameExample(adv),
		"{{CLASSES}}", strings.Join(content.ClassNames(), ", "),
		"{{SPELL_RULE}}", spellRule(adv),
		"{{FEATURE_RULE}}", featureRule(adv),
	)
}

func nameExample(adv *content.AdvancedInput) string {
	race, class := "Elf", "Wizard"
	if adv != nil && adv.Race != "" {
		race = content.NormalizeRace(adv.Race)
	}
	if adv != nil && adv.Class != "" {
		class = content.NormalizeClass(adv.Class)
	}
	return race + " " + class
}

func spellRule(adv *content.AdvancedInput) string {
	generic := "- spells: non-casting classes (Barbarian, Fighter, Monk, Rogue) MUST have an empty spells list. " +
		"Wizards know 6 to 10 spells; other casters know 4 to 8. Spell levels never exceed what the character can cast."
	if adv == nil || adv.Class == "" {
		return generic
	}
	info, ok := content.LookupClass(adv.Class)
	if !ok {
		return generic
	}
	level := adv.Level
	if level == 0 {
		level = 1
	}
	if !info.IsCaster(level) {
		return fmt.Sprintf("- spells MUST be an empty list: a level %d %s does not cast spells.", level, info.Name)
	}
	lo, hi := info.SpellCount(level)
	return fmt.Sprintf("- spells MUST contain between %d and %d spells of level 0 to %d.", lo, hi, info.MaxSpellLevel(level))
}

func featureRule(adv *content.AdvancedInput) string {
	generic := "- classFeatures MUST list every mandatory feature of the class up to the character's level, each with the level it is gained."
	if adv == nil || adv.Class == "" {
		return generic
	}
	info, ok := content.LookupClass(adv.Class)
	if !ok {
		return generic
	}
	level := adv.Level
	if level == 0 {
		level = 1
	}
	var names []string
	for _, f := range info.FeaturesAt(level) {
		names = append(names, fmt.Sprintf("%s (level %d)", f.Name, f.Level))
	}
	return fmt.Sprintf("- classFeatures MUST include at least: %s.", strings.Join(names, ", "))
}

// constraintBlock turns advanced input into non-negotiable MUST lines
func constraintBlock(t content.Type, adv *content.AdvancedInput) string {
	lines := Constraints(t, adv)
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nNON-NEGOTIABLE CONSTRAINTS (override anything in the scenario):\n")
	for _, l := range lines {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// Constraints renders each advanced field relevant to t as a MUST line.
// Class, race and background are normalized to their canonical values.
func Constraints(t content.Type, adv *content.AdvancedInput) []string {
	if adv.IsZero() {
		return nil
	}
	var lines []string
	switch t {
	case content.TypeCharacter:
		if adv.Class != "" {
			lines = append(lines, fmt.Sprintf("The class MUST be %q.", content.NormalizeClass(adv.Class)))
		}
		if adv.Race != "" {
			lines = append(lines, fmt.Sprintf("The race MUST be %q.", content.NormalizeRace(adv.Race)))
		}
		if adv.Level > 0 {
			lines = append(lines, fmt.Sprintf("The level MUST be %d.", content.ClampLevel(adv.Level)))
		}
		if adv.Background != "" {
			lines = append(lines, fmt.Sprintf("The background MUST be %q.", content.NormalizeBackground(adv.Background)))
		}
	case content.TypeEnvironment:
		if adv.Mood != "" {
			lines = append(lines, fmt.Sprintf("The mood MUST be %q.", adv.Mood))
		}
		if adv.Lighting != "" {
			lines = append(lines, fmt.Sprintf("The lighting MUST be %q.", adv.Lighting))
		}
		if adv.NPCCount > 0 {
			lines = append(lines, fmt.Sprintf("The npcs list MUST contain exactly %d entries.", adv.NPCCount))
		}
	case content.TypeMission:
		if d := content.ParseDifficulty(adv.Difficulty); d != "" {
			lines = append(lines, fmt.Sprintf("The difficulty MUST be %q and recommendedLevel MUST be within %s.", d, d.LevelBand()))
		}
		if adv.ObjectiveCount > 0 {
			lines = append(lines, fmt.Sprintf("The objectives list MUST contain exactly %d entries.", adv.ObjectiveCount))
		}
		if len(adv.RewardTypes) > 0 {
			lines = append(lines, fmt.Sprintf("The rewards MUST include: %s.", strings.Join(adv.RewardTypes, ", ")))
		}
	}
	return lines
}

func styleFragments(p *content.GenerationParams) string {
	if p == nil {
		return ""
	}
	var parts []string
	switch p.Tone {
	case content.ToneSerious:
		parts = append(parts, "TONE: serious. Frame events as dramatic and consequential. No jokes.")
	case content.TonePlayful:
		parts = append(parts, "TONE: playful. Humor, whimsy and light-hearted details are welcome.")
	}
	switch p.Complexity {
	case content.ComplexitySimple:
		parts = append(parts, "LENGTH: terse. Keep each text field to one or two short sentences.")
	case content.ComplexityDetailed:
		parts = append(parts, "LENGTH: detailed. Write extended, multi-paragraph prose for the descriptive fields.")
	}
	return strings.Join(parts, "\n")
}

// tidy collapses the blank lines left by empty placeholders
func tidy(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
