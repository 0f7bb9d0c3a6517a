package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

var generateOpts struct {
	contentType string
	scenario    string
	offline     bool

	adv         content.AdvancedInput
	rewardTypes string

	tone        string
	complexity  string
	temperature float64
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a character, environment or mission",
	Example: `  rpgforge generate --type character --scenario "an exiled elven archivist" --class wizard --level 5
  rpgforge generate --type mission --scenario "uma caravana perdida no deserto" --difficulty hard --offline`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateOpts.contentType, "type", "", "content type: character, environment or mission")
	f.StringVar(&generateOpts.scenario, "scenario", "", "free-form scenario text")
	f.BoolVar(&generateOpts.offline, "offline", false, "skip the model and use the offline generator")

	f.StringVar(&generateOpts.adv.Class, "class", "", "character class")
	f.StringVar(&generateOpts.adv.Race, "race", "", "character race")
	f.IntVar(&generateOpts.adv.Level, "level", 0, "character level (1-20)")
	f.StringVar(&generateOpts.adv.Background, "background", "", "character background")
	f.StringVar(&generateOpts.adv.Mood, "mood", "", "environment mood")
	f.StringVar(&generateOpts.adv.Lighting, "lighting", "", "environment lighting")
	f.IntVar(&generateOpts.adv.NPCCount, "npc-count", 0, "number of NPCs in the environment")
	f.StringVar(&generateOpts.adv.Difficulty, "difficulty", "", "mission difficulty: easy, medium, hard or deadly")
	f.IntVar(&generateOpts.adv.ObjectiveCount, "objective-count", 0, "number of mission objectives")
	f.StringVar(&generateOpts.rewardTypes, "reward-types", "", "comma-separated reward types (xp,gold,items)")

	f.StringVar(&generateOpts.tone, "tone", "", "serious, playful or balanced")
	f.StringVar(&generateOpts.complexity, "complexity", "", "simple, standard or detailed")
	f.Float64Var(&generateOpts.temperature, "temperature", 0, "sampling temperature (clamped per call type)")

	_ = generateCmd.MarkFlagRequired("type")
	_ = generateCmd.MarkFlagRequired("scenario")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	t, err := content.ParseType(generateOpts.contentType)
	if err != nil {
		return err
	}

	adv := generateOpts.adv
	for _, rt := range strings.Split(generateOpts.rewardTypes, ",") {
		if rt = strings.TrimSpace(rt); rt != "" {
			adv.RewardTypes = append(adv.RewardTypes, rt)
		}
	}
	var advanced *content.AdvancedInput
	if !adv.IsZero() {
		advanced = &adv
	}
	params := paramsFromFlags(cmd, generateOpts.tone, generateOpts.complexity, generateOpts.temperature)

	if err := validation.ValidateScenario(generateOpts.scenario); err != nil {
		return err
	}
	if err := validation.ValidateAdvanced(advanced); err != nil {
		return err
	}
	if err := validation.ValidateParams(params); err != nil {
		return err
	}

	a, err := bootstrap("stderr", generateOpts.offline)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	res, err := a.service.Generate(cmd.Context(), generateOpts.scenario, t, advanced, params)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

// paramsFromFlags returns nil when no tuning flag was set
func paramsFromFlags(cmd *cobra.Command, tone, complexity string, temperature float64) *content.GenerationParams {
	p := &content.GenerationParams{
		Tone:       content.Tone(strings.ToLower(tone)),
		Complexity: content.Complexity(strings.ToLower(complexity)),
	}
	if cmd.Flags().Changed("temperature") {
		p.Temperature = &temperature
	}
	if p.Tone == "" && p.Complexity == "" && p.Temperature == nil {
		return nil
	}
	return p
}
