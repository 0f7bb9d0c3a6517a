package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/generator"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

var regenerateOpts struct {
	contentType string
	section     string
	index       int
	scenario    string
	file        string
	offline     bool
	splice      bool

	tone        string
	complexity  string
	temperature float64
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Regenerate one section of a saved record",
	Long: `Regenerate one section of a record previously printed by "generate".
The file may hold either a generate result or a bare {"type","data"} record.`,
	Example: `  rpgforge generate --type environment --scenario "a flooded crypt" > crypt.json
  rpgforge regenerate --file crypt.json --section npcs --index 0 --scenario "a flooded crypt"`,
	RunE: runRegenerate,
}

func init() {
	f := regenerateCmd.Flags()
	f.StringVar(&regenerateOpts.contentType, "type", "", "content type; defaults to the type stored in the file")
	f.StringVar(&regenerateOpts.section, "section", "", "section to regenerate")
	f.IntVar(&regenerateOpts.index, "index", 0, "element index for list sections")
	f.StringVar(&regenerateOpts.scenario, "scenario", "", "scenario the record was generated from")
	f.StringVar(&regenerateOpts.file, "file", "", "JSON file holding the current record")
	f.BoolVar(&regenerateOpts.offline, "offline", false, "skip the model and use the offline generator")
	f.BoolVar(&regenerateOpts.splice, "splice", false, "print the whole record with the new section spliced in")
	f.StringVar(&regenerateOpts.tone, "tone", "", "serious, playful or balanced")
	f.StringVar(&regenerateOpts.complexity, "complexity", "", "simple, standard or detailed")
	f.Float64Var(&regenerateOpts.temperature, "temperature", 0, "sampling temperature (clamped per call type)")

	_ = regenerateCmd.MarkFlagRequired("section")
	_ = regenerateCmd.MarkFlagRequired("file")
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	current, err := readRecord(regenerateOpts.file)
	if err != nil {
		return err
	}
	if regenerateOpts.contentType != "" {
		t, err := content.ParseType(regenerateOpts.contentType)
		if err != nil {
			return err
		}
		if t != current.Type {
			return fmt.Errorf("--type %s does not match the %s in %s", t, current.Type, regenerateOpts.file)
		}
	}

	var index *int
	if cmd.Flags().Changed("index") {
		index = &regenerateOpts.index
	}
	params := paramsFromFlags(cmd, regenerateOpts.tone, regenerateOpts.complexity, regenerateOpts.temperature)
	if err := validation.ValidateSectionName(regenerateOpts.section); err != nil {
		return err
	}
	if err := validation.ValidateSectionIndex(index); err != nil {
		return err
	}
	if err := validation.ValidateParams(params); err != nil {
		return err
	}

	a, err := bootstrap("stderr", regenerateOpts.offline)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	res, err := a.service.RegenerateSection(cmd.Context(), generator.SectionRequest{
		Scenario: regenerateOpts.scenario,
		Type:     current.Type,
		Section:  regenerateOpts.section,
		Index:    index,
		Current:  current,
		Params:   params,
	})
	if err != nil {
		return err
	}
	if !regenerateOpts.splice {
		return printJSON(cmd, res)
	}

	spliced, err := content.SpliceSection(current, res.Section, res.Index, res.Value)
	if err != nil {
		return err
	}
	return printJSON(cmd, spliced)
}

// readRecord accepts a generate result ({"content": {...}}) or a bare record
func readRecord(path string) (content.Generated, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return content.Generated{}, err
	}

	var wrapped struct {
		Content *content.Generated `json:"content"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Content != nil {
		return *wrapped.Content, nil
	}

	var g content.Generated
	if err := json.Unmarshal(data, &g); err != nil {
		return content.Generated{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return g, nil
}
