package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qninhdt/rpg-forge/internal/language"
)

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Print the output language detected for a scenario",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := language.NewDefaultDetector(nil).Detect(strings.Join(args, " "))
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", lang, lang.Code())
		return err
	},
}
