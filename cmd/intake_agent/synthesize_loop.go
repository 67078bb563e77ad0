package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jonathan/smart-intake/internal/synthesis"
	"github.com/jonathan/smart-intake/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSynthesizeLoopCmd(v *viper.Viper) *cobra.Command {
	var (
		competencies []string
		manager      string
		department   string
		function     string
		out          string
	)
	cmd := &cobra.Command{
		Use:   "synthesize-loop",
		Short: "Generate an interview loop from competencies",
		Long:  "Generates an interview loop plan for the given competencies and org. Competencies are given as \"Name\" or \"Name: rationale\".",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			client, err := newLLMClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close() //nolint:errcheck

			org := types.OrgContext{Manager: manager, Department: department}
			result, err := synthesis.New(client).Synthesize(cmd.Context(), parseCompetencies(competencies), org, function)
			if err != nil {
				return err
			}

			if out != "" {
				if err := writeJSONFile(out, result.Plan); err != nil {
					return err
				}
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"#", "Stage", "Minutes", "Signals"})
			for i, st := range result.Plan.Stages {
				tw.AppendRow(table.Row{i + 1, st.Name, st.DurationMins, strings.Join(st.Signals, ", ")})
			}
			tw.AppendFooter(table.Row{"", "Total", result.Plan.TotalMins, ""})
			tw.Render()

			if result.Fallback {
				fmt.Fprintln(cmd.OutOrStdout(), "Note: generation output was unusable, showing the default loop")
			}
			if result.BudgetWarning != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Warning:", result.BudgetWarning)
			}
			if out != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&competencies, "competency", "c", nil, "Competency as \"Name\" or \"Name: rationale\" (repeatable, required)")
	cmd.Flags().StringVarP(&manager, "manager", "m", "", "Hiring manager name")
	cmd.Flags().StringVarP(&department, "department", "d", "", "Department of the hiring team")
	cmd.Flags().StringVarP(&function, "function", "f", "", "Job function hint, e.g. Engineering")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the plan JSON to this path")
	addJSONFlag(cmd)
	markRequired(cmd, "competency")
	return cmd
}

func parseCompetencies(raw []string) []types.Competency {
	out := make([]types.Competency, 0, len(raw))
	for _, r := range raw {
		name, rationale, _ := strings.Cut(r, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, types.Competency{Name: name, Rationale: strings.TrimSpace(rationale)})
	}
	return out
}
