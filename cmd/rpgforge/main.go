// Package main is the entry point of the rpgforge server and CLI
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qninhdt/rpg-forge/internal/agents"
	"github.com/qninhdt/rpg-forge/internal/config"
	"github.com/qninhdt/rpg-forge/internal/fallback"
	"github.com/qninhdt/rpg-forge/internal/generator"
	"github.com/qninhdt/rpg-forge/internal/language"
	"github.com/qninhdt/rpg-forge/internal/logger"
	"github.com/qninhdt/rpg-forge/internal/schema"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "rpgforge",
	Short: "Tabletop RPG content generator",
	Long: `rpgforge generates characters, environments and missions for d20 tabletop
games from a free-form scenario, using a language model when one is
configured and a deterministic offline generator otherwise.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(detectCmd)
}

// app is the wiring shared by every command
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *generator.Service
}

// bootstrap loads configuration and builds the generation service. CLI
// commands log to stderr so stdout only carries results.
func bootstrap(logPath string, offline bool) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: logPath,
	})
	if err != nil {
		return nil, err
	}
	cfg.LogSummary(log)

	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema registry: %w", err)
	}
	fb, err := fallback.New(log)
	if err != nil {
		return nil, err
	}

	var client agents.Client
	if !offline {
		client, err = agents.NewClient(cfg, log)
		if err != nil {
			return nil, err
		}
	}

	svc := generator.NewService(client, registry, language.NewDefaultDetector(log), fb, log)
	return &app{cfg: cfg, logger: log, service: svc}, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
