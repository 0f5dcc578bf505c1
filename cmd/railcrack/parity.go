package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/railcrack-api/internal/batch"
	"github.com/Brownie44l1/railcrack-api/internal/config"
	"github.com/Brownie44l1/railcrack-api/internal/dataset"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// NewParityCmd creates the parity command.
func NewParityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parity <dir>",
		Short: "Compare the full and quantized artifacts",
		Long: help(`
			Parity scores the images in <dir> with both the full and the
			quantized artifact and reports the maximum and mean absolute score
			deviation. It fails when the maximum exceeds --tolerance.`),
		Args: cobra.ExactArgs(1),
		RunE: runParity,
	}

	cmd.Flags().Float64("tolerance", batch.DefaultParityTolerance, "Largest accepted score deviation")
	cmd.Flags().Int("limit", 50, "Maximum number of images to compare (0 for all)")

	return cmd
}

func runParity(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")
	limit, _ := cmd.Flags().GetInt("limit")

	paths, err := dataset.ListImages(args[0])
	if err != nil {
		return err
	}
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}

	full, err := requireModel(cfg.Model, config.VariantFull)
	if err != nil {
		return err
	}
	quantized, err := requireModel(cfg.Model, config.VariantQuantized)
	if err != nil {
		closeModel(full)
		return err
	}
	defer closeModel(full, quantized)

	report, err := batch.Parity(cmd.Context(), inference.NewClassifier(full), inference.NewClassifier(quantized), paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-40s %10s %10s %10s\n", "Image", "Full", "Quantized", "Deviation")
	for _, s := range report.Samples {
		fmt.Fprintf(out, "%-40s %10.4f %10.4f %10.4f\n", filepath.Base(s.Image), s.Reference, s.Candidate, s.Deviation())
	}
	fmt.Fprintf(out, "\nMax deviation:  %.4f\n", report.MaxDeviation)
	fmt.Fprintf(out, "Mean deviation: %.4f\n", report.MeanDeviation)
	fmt.Fprintf(out, "Disagreements:  %d/%d\n", report.Disagreements, len(report.Samples))

	return report.Check(tolerance)
}
