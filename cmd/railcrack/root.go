package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/railcrack-api/internal/config"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
	"github.com/Brownie44l1/railcrack-api/internal/logging"
	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// NewRootCmd creates the root command for railcrack.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "railcrack",
		Short: "Railway track crack classifier",
		Long: help(`
			railcrack classifies railway track photographs as cracked (Faulty)
			or intact (Normal) with an InceptionResNetV2 based model exported
			to ONNX.

			Configuration is read from --config, ./railcrack.yaml or the XDG
			config directory, then overridden by ENVIRONMENT, PORT,
			ONNXRUNTIME_LIB, RAILCRACK_MODEL_VARIANT and RAILCRACK_LOG_LEVEL.`),
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewEvaluateCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewParityCmd())
	cmd.AddCommand(NewSplitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func help(text string) string {
	return strings.TrimSpace(dedent.Dedent(text))
}

// setup loads and validates the configuration and configures logging.
func setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// openModel loads the artifact for variant, or the configured variant when
// variant is empty. It never fails; check Loaded on the result.
func openModel(cfg config.ModelConfig, variant string) *model.Handle {
	if variant != "" {
		cfg.Variant = variant
	}
	return model.Load(model.Options{
		ArtifactPath: cfg.ArtifactPath(),
		MetadataPath: cfg.MetadataPath,
		Variant:      cfg.Variant,
		PoolSize:     cfg.PoolSize,
		NewSession:   model.NewORTFactory(cfg.RuntimeLibrary),
	})
}

// requireModel is openModel for the offline tools, which cannot run without
// a model.
func requireModel(cfg config.ModelConfig, variant string) (*model.Handle, error) {
	h := openModel(cfg, variant)
	if !h.Loaded() {
		closeModel(h)
		return nil, fmt.Errorf("%w: %w", inference.ErrModelUnavailable, h.Err())
	}
	return h, nil
}

// closeModel releases the handles, then the runtime.
func closeModel(handles ...*model.Handle) {
	errs := make([]error, 0, len(handles)+1)
	for _, h := range handles {
		errs = append(errs, h.Close())
	}
	errs = append(errs, model.ShutdownRuntime())
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("failed to release model")
	}
}

func validateVariant(variant string) error {
	switch variant {
	case "", config.VariantFull, config.VariantQuantized:
		return nil
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidVariant, variant)
	}
}
