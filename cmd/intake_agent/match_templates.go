package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jonathan/smart-intake/internal/templates"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMatchTemplatesCmd(v *viper.Viper) *cobra.Command {
	var (
		signals  []string
		function string
		level    string
	)
	cmd := &cobra.Command{
		Use:   "match-templates",
		Short: "Match competency signals against the template catalogs",
		Long:  "Scores the wiki interview guides and ATS feedback forms of the template catalog against the given signals and prints the hits, best first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			catalog, err := templates.LoadFile(cfg.TemplateCatalog)
			if err != nil {
				return err
			}
			matcher := templates.NewMatcher(nil,
				templates.NewWikiCatalog(catalog, cfg.ConfluenceBaseURL),
				templates.NewFormCatalog(catalog),
			)

			hits := matcher.Match(cmd.Context(), signals, function, level)
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), hits)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No templates matched")
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Source", "ID", "Title", "Score", "URL"})
			for _, h := range hits {
				tw.AppendRow(table.Row{h.Source, h.ID, h.Title, fmt.Sprintf("%.2f", h.Score), h.URL})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&signals, "signal", "s", nil, "Competency signal to match (repeatable, required)")
	cmd.Flags().StringVarP(&function, "function", "f", "", "Job function, e.g. Engineering")
	cmd.Flags().StringVarP(&level, "level", "l", "", "Job level, e.g. Senior")
	addJSONFlag(cmd)
	markRequired(cmd, "signal")
	return cmd
}
