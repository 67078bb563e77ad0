// Package main provides the entry point for the SmartIntake HTTP API server and
// the command line tools around it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/smart-intake/internal/config"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const flagConfig = "config"

// newRootCmd builds the command tree. Every subcommand reads its settings
// through v, so flags, the environment and the config file share one view.
func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "intake_agent",
		Short:         "SmartIntake recruiting intake API server",
		Long:          "SmartIntake turns a hiring manager's job description into a structured intake: requirements, org context, matched templates and an interview loop, exposed via REST API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(flagConfig, "", "Path to a YAML, JSON or TOML config file")

	root.AddCommand(
		newServeCmd(v),
		newMigrateCmd(v),
		newMatchTemplatesCmd(v),
		newResolveOrgCmd(v),
		newSynthesizeLoopCmd(v),
		newExportIntakeCmd(v),
	)
	return root
}

func main() {
	// Load .env file if it exists
	config.LoadDotEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration, merging the file named by --config
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	file, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	return config.Load(v, file)
}

// newLLMClient connects the configured text generation provider.
// Tests replace it with a scripted client.
var newLLMClient = func(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if !cfg.LLMConfigured() {
		return nil, fmt.Errorf("LLM credentials are required: set GEMINI_API_KEY, or VERTEX_PROJECT with LLM_PROVIDER=vertex")
	}
	return llm.NewClient(ctx, llm.ConfigFor(cfg.LLMProvider), llm.Credentials{
		APIKey:   cfg.GeminiAPIKey,
		Project:  cfg.VertexProject,
		Location: cfg.VertexLocation,
	})
}

// openStore connects the intake database. The returned func releases it.
// Tests replace it with an in-memory store.
var openStore = func(ctx context.Context, cfg *config.Config) (db.IntakeStore, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, database.Close, nil
}
