package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jonathan/smart-intake/internal/glean"
	"github.com/jonathan/smart-intake/internal/orgctx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newResolveOrgCmd(v *viper.Viper) *cobra.Command {
	var manager, title string
	cmd := &cobra.Command{
		Use:   "resolve-org",
		Short: "Resolve the org context of a hiring manager",
		Long:  "Looks up the hiring manager's team and cross-functional partners in enterprise search, falling back to a synthetic org when search is not configured or fails.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			var live orgctx.PersonDirectory
			if cfg.GleanConfigured() {
				search, err := glean.NewClient(cmd.Context(), cfg.GleanBaseURL, glean.Token(cfg.GleanBearerToken, cfg.GleanAPIKey))
				if err != nil {
					return fmt.Errorf("failed to create enterprise search client: %w", err)
				}
				live = orgctx.NewLiveDirectory(search)
			}

			org, err := orgctx.NewResolver(live, nil).Resolve(cmd.Context(), manager, title)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), org)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Field", "Value"})
			tw.AppendRow(table.Row{"Manager", org.Manager})
			tw.AppendRow(table.Row{"Department", org.Department})
			tw.AppendRow(table.Row{"Source", org.Source})
			for _, member := range org.Team {
				tw.AppendRow(table.Row{"Team", member})
			}
			for _, partner := range org.CrossFunc {
				tw.AppendRow(table.Row{"Cross-functional", partner})
			}
			if org.LookupError != "" {
				tw.AppendFooter(table.Row{"Lookup error", org.LookupError})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&manager, "manager", "m", "", "Hiring manager name (required)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Job title, used to infer the department")
	addJSONFlag(cmd)
	markRequired(cmd, "manager")
	return cmd
}
