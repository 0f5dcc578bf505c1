package main

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/railcrack-api/internal/config"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Smoke-test a model artifact",
		Long: help(`
			Verify loads an artifact (the quantized one by default), runs a
			seeded random image through the full preprocessing and forward
			pass, and fails if the output is not a finite number.`),
		Args: cobra.NoArgs,
		RunE: runVerify,
	}

	cmd.Flags().String("variant", config.VariantQuantized, "Artifact variant to verify (full or quantized)")
	cmd.Flags().Int64("seed", 42, "Seed for the random input")

	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	variant, _ := cmd.Flags().GetString("variant")
	if err := validateVariant(variant); err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetInt64("seed")

	h, err := requireModel(cfg.Model, variant)
	if err != nil {
		return err
	}
	defer closeModel(h)

	out := cmd.OutOrStdout()
	if info, err := os.Stat(h.Path()); err == nil {
		fmt.Fprintf(out, "Artifact: %s (%s)\n", h.Path(), humanize.Bytes(uint64(info.Size())))
	}
	meta := h.Metadata()
	fmt.Fprintf(out, "Input:  %v\n", meta.InputShape)
	fmt.Fprintf(out, "Output: %v\n", meta.OutputShape)

	c := inference.NewClassifier(h)
	res, err := c.Classify(cmd.Context(), randomImage(meta.ImageSize, seed))
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Fprintf(out, "Score:  %.6f\n", res.Score)
	fmt.Fprintf(out, "Result: %s\n", res.Message)
	fmt.Fprintln(out, "Verification passed")
	return nil
}

func randomImage(size int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}
