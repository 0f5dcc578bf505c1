package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/railcrack-api/internal/dataset"
	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// NewSplitCmd creates the split command.
func NewSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <raw-dir> <out-dir>",
		Short: "Split raw captures into train, validation and test sets",
		Long: help(`
			Split labels raw images by file name ("cracked" is Faulty,
			"normal" is Normal), shuffles each class with a fixed seed and
			copies them into <out-dir>/{train,validation,test}/{Faulty,Normal}.
			Files matching neither label are skipped.`),
		Args: cobra.ExactArgs(2),
		RunE: runSplit,
	}

	cmd.Flags().Int64("seed", dataset.DefaultSeed, "Shuffle seed")
	cmd.Flags().Float64("train", dataset.DefaultTrainRatio, "Train fraction")
	cmd.Flags().Float64("validation", dataset.DefaultValidationRatio, "Validation fraction (test takes the rest)")
	cmd.Flags().Int("concurrency", dataset.DefaultConcurrency, "Concurrent file copies")

	return cmd
}

func runSplit(cmd *cobra.Command, args []string) error {
	if _, err := setup(cmd); err != nil {
		return err
	}

	opts := dataset.DefaultSplitOptions(args[0], args[1])
	opts.Seed, _ = cmd.Flags().GetInt64("seed")
	opts.TrainRatio, _ = cmd.Flags().GetFloat64("train")
	opts.ValidationRatio, _ = cmd.Flags().GetFloat64("validation")
	opts.Concurrency, _ = cmd.Flags().GetInt("concurrency")

	report, err := dataset.Split(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, class := range []string{model.ClassFaulty, model.ClassNormal} {
		c := report.Classes[class]
		fmt.Fprintf(out, "[%s] Train: %d, Val: %d, Test: %d\n", class, c.Train, c.Validation, c.Test)
	}
	if n := len(report.Unlabeled); n > 0 {
		fmt.Fprintf(out, "Skipped %d unlabeled images\n", n)
	}
	fmt.Fprintln(out, "Data preparation complete.")
	return nil
}
