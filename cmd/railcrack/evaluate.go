package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/railcrack-api/internal/dataset"
	"github.com/Brownie44l1/railcrack-api/internal/evaluate"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <dir>",
		Short: "Measure the model on a labeled directory",
		Long: help(`
			Evaluate classifies <dir>/Faulty and <dir>/Normal and reports
			accuracy, precision, recall, F1 (Faulty is the positive class),
			ROC AUC and the mean focal loss.

			It then sweeps the threshold from 0.05 to 0.95 in steps of 0.01 and
			writes the one with the best F1 to --threshold-out, ready for
			"railcrack classify --threshold-file".`),
		Args: cobra.ExactArgs(1),
		RunE: runEvaluate,
	}

	cmd.Flags().String("variant", "", "Artifact variant to load (full or quantized)")
	cmd.Flags().String("threshold-out", "threshold.yaml", "Where to write the optimal threshold")
	cmd.Flags().String("markdown", "", "Write a Markdown report to this path")
	cmd.Flags().Int("concurrency", 0, "Images in flight (default: session pool size)")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	variant, _ := cmd.Flags().GetString("variant")
	if err := validateVariant(variant); err != nil {
		return err
	}

	samples, err := dataset.ListLabeled(args[0])
	if err != nil {
		return err
	}

	h, err := requireModel(cfg.Model, variant)
	if err != nil {
		return err
	}
	defer closeModel(h)

	loss, err := evaluate.ResolveFocalLoss(h)
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Model.PoolSize
	}

	c := inference.NewClassifier(h)
	preds, failed, err := evaluate.Predict(cmd.Context(), c, samples, concurrency)
	if err != nil {
		return err
	}
	report := evaluate.Evaluate(preds, failed, loss, c.Rule().ScoreClass)

	out := cmd.OutOrStdout()
	report.WriteText(out)

	thresholdPath, _ := cmd.Flags().GetString("threshold-out")
	if err := evaluate.WriteThresholdFile(thresholdPath, evaluate.NewThresholdFile(report, h.Variant())); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nOptimal threshold %.2f saved to: %s\n", report.Best.Threshold, thresholdPath)

	if mdPath, _ := cmd.Flags().GetString("markdown"); mdPath != "" {
		if err := writeFile(mdPath, func(f *os.File) error { return report.WriteMarkdown(f) }); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report saved to: %s\n", mdPath)
	}
	return nil
}
