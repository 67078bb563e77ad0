package main

import (
	"fmt"

	"github.com/jonathan/smart-intake/internal/config"
	"github.com/jonathan/smart-intake/internal/server"
	"github.com/jonathan/smart-intake/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes the intake, draft and generation endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}
	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on")
	_ = v.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	deps, err := server.FromConfig(cmd.Context(), cfg, ratelimit.LoadConfig(v))
	if err != nil {
		return err
	}

	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
