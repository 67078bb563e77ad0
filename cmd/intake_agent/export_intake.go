package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/smart-intake/internal/export"
	"github.com/jonathan/smart-intake/internal/intake"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newExportIntakeCmd(v *viper.Viper) *cobra.Command {
	var idFlag, out string
	cmd := &cobra.Command{
		Use:   "export-intake",
		Short: "Export a stored intake as an interview plan workbook",
		Long:  "Writes the summary, loop, questions and rubrics of a stored intake to an .xlsx workbook.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(idFlag)
			if err != nil {
				return fmt.Errorf("invalid intake id %q: %w", idFlag, err)
			}
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			store, release, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer release()

			in, err := intake.NewService(store).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out == "" {
				out = export.FileName(in)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()

			w := bufio.NewWriter(f)
			if err := export.WriteWorkbook(w, in); err != nil {
				return fmt.Errorf("failed to write workbook: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&idFlag, "id", "", "Intake ID (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: <title>-interview-plan.xlsx)")
	markRequired(cmd, "id")
	return cmd
}
