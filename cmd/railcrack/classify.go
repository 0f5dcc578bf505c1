package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/railcrack-api/internal/batch"
	"github.com/Brownie44l1/railcrack-api/internal/dataset"
	"github.com/Brownie44l1/railcrack-api/internal/evaluate"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <dir>",
		Short: "Classify every image in a directory",
		Long: help(`
			Classify runs every .jpg, .jpeg, .png and .gif image in a directory
			through the model and prints a table sorted by probability.

			Results are written to predictions.csv in the output directory
			(image, class, probability, confidence as 4-decimal fractions).
			Cracks above 90% confidence are listed as critical.

			Examples:
			  # Use the threshold found by "railcrack evaluate"
			  railcrack classify ./inspection --threshold-file threshold.yaml

			  # Also write a Markdown report
			  railcrack classify ./inspection --markdown report.md`),
		Args: cobra.ExactArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().Float64("threshold", inference.DefaultThreshold, "Crack threshold on P(Faulty)")
	cmd.Flags().String("threshold-file", "", "Read the threshold from a file written by evaluate")
	cmd.Flags().String("variant", "", "Artifact variant to load (full or quantized)")
	cmd.Flags().StringP("out", "o", ".", "Directory for predictions.csv")
	cmd.Flags().String("markdown", "", "Write a Markdown report to this path")
	cmd.Flags().Int("concurrency", 0, "Images in flight (default: session pool size)")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	threshold, err := resolveThreshold(cmd)
	if err != nil {
		return err
	}
	variant, _ := cmd.Flags().GetString("variant")
	if err := validateVariant(variant); err != nil {
		return err
	}

	paths, err := dataset.ListImages(args[0])
	if err != nil {
		return err
	}

	h, err := requireModel(cfg.Model, variant)
	if err != nil {
		return err
	}
	defer closeModel(h)

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Model.PoolSize
	}

	c := inference.NewClassifier(h, inference.WithThreshold(threshold))
	items, err := batch.Run(cmd.Context(), c, paths, concurrency)
	if err != nil {
		return err
	}
	summary := batch.Summarize(items, threshold)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Using threshold: %.3f\n\n", threshold)
	batch.WriteTable(out, items, summary)

	outDir, _ := cmd.Flags().GetString("out")
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	csvPath := filepath.Join(outDir, "predictions.csv")
	if err := writeFile(csvPath, func(f *os.File) error { return batch.WriteCSV(f, items) }); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nResults saved to: %s\n", csvPath)

	if mdPath, _ := cmd.Flags().GetString("markdown"); mdPath != "" {
		err := writeFile(mdPath, func(f *os.File) error {
			return batch.WriteMarkdown(f, "Track Inspection Report", items, summary)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report saved to: %s\n", mdPath)
	}
	return nil
}

// resolveThreshold prefers --threshold-file over --threshold.
func resolveThreshold(cmd *cobra.Command) (float64, error) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	if path, _ := cmd.Flags().GetString("threshold-file"); path != "" {
		tf, err := evaluate.ReadThresholdFile(path)
		if err != nil {
			return 0, err
		}
		log.Info().Float64("threshold", tf.Threshold).Str("path", path).Msg("using optimal threshold")
		return tf.Threshold, nil
	}
	if threshold <= 0 || threshold >= 1 {
		return 0, fmt.Errorf("%w: %v", evaluate.ErrInvalidThreshold, threshold)
	}
	return threshold, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
