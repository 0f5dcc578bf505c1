package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/railcrack-api/internal/alert"
	"github.com/Brownie44l1/railcrack-api/internal/config"
	"github.com/Brownie44l1/railcrack-api/internal/handlers"
	"github.com/Brownie44l1/railcrack-api/internal/inference"
	"github.com/Brownie44l1/railcrack-api/internal/storage"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the classifier over HTTP",
		Long: help(`
			Serve loads the configured model artifact once and serves:

			  GET  /          service banner
			  GET  /health    liveness and model status
			  POST /upload/   classify the image in multipart field "file"
			  GET  /history   recent predictions (when history is enabled)

			The process keeps serving when the model fails to load: uploads
			then answer 503 "Model not loaded correctly." and /health reports
			model_loaded=false.`),
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("variant", "", "Artifact variant to load (full or quantized)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	variant, _ := cmd.Flags().GetString("variant")
	if err := validateVariant(variant); err != nil {
		return err
	}

	h := openModel(cfg.Model, variant)
	defer closeModel(h)

	classifier := inference.NewClassifier(h)
	opts := []handlers.Option{handlers.WithMaxUploadBytes(cfg.Server.MaxUploadBytes)}

	if cfg.History.Enabled {
		store, err := storage.OpenHistory(cfg.History.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.History.Path).Msg("prediction history disabled")
		} else {
			defer store.Close()
			opts = append(opts, handlers.WithHistory(store))
		}
	}

	if notifier := openAlerts(cfg.Alerts); notifier != nil {
		defer notifier.Close()
		opts = append(opts, handlers.WithAlerts(notifier))
	}

	handler := handlers.NewHandler(classifier, h, opts...)
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.Routes(cfg.Origins()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logStartup(cfg, h.Loaded(), h.Variant(), h.Path())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openAlerts(cfg config.AlertsConfig) *alert.Notifier {
	if cfg.MQTTBroker == "" {
		return nil
	}
	pub, err := alert.NewMQTTPublisher(cfg.MQTTBroker)
	if err != nil {
		log.Warn().Err(err).Msg("crack alerts disabled")
		return nil
	}
	n, err := alert.NewNotifier(pub, cfg.Topic, cfg.MinConfidence)
	if err != nil {
		pub.Close()
		log.Warn().Err(err).Msg("crack alerts disabled")
		return nil
	}
	return n
}

func logStartup(cfg *config.Config, loaded bool, variant, path string) {
	log.Info().
		Str("addr", cfg.Addr()).
		Str("environment", cfg.Environment).
		Strs("origins", cfg.Origins()).
		Str("max_upload", humanize.IBytes(uint64(cfg.Server.MaxUploadBytes))).
		Msg("server starting")
	if loaded {
		log.Info().Str("variant", variant).Str("artifact", filepath.Base(path)).Msg("model ready")
	} else {
		log.Warn().Msg("serving without a model")
	}
	for _, e := range handlers.Endpoints {
		log.Info().Msgf("  %-4s %-10s %s", e.Method, e.Path, e.Description)
	}
	log.Info().Msgf("upload test: curl -X POST -F \"file=@track.jpg\" http://localhost:%s/upload/", cfg.Server.Port)
}
