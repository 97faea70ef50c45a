package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"covertype/internal/cfg"
	"covertype/internal/metrics"
	"covertype/internal/storage"
	"covertype/internal/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				c.Port = port
			}
			return serve(cmd.Context(), c)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, c cfg.Settings) error {
	a, err := loadAssets(c)
	if err != nil {
		// No partial mode: the form is never shown without every artifact.
		log.Fatal().Err(err).Msg("failed to load artifacts")
	}

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	m.SetAssets(a.Schema.Len(), a.Encoder.Len())

	pipeline, err := a.NewPipeline(c.TopK, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	deps := web.Deps{Assets: a, Pipeline: pipeline, Metrics: mw, Gatherer: prometheus.DefaultGatherer}
	if store := initializeStorage(c); store != nil {
		defer store.Close()
		deps.History = store
	}

	server, err := web.New(web.Config{
		Port:         c.Port,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		RateLimit:    c.RateLimit,
		RateBurst:    c.RateBurst,
	}, deps)
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	waitForShutdown(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

// initializeStorage opens the history store if DATA_PATH is configured.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
		return nil
	}
	log.Info().Str("path", c.DataPath).Msg("prediction history enabled")
	return store
}

// waitForShutdown blocks until a signal arrives or ctx is canceled.
func waitForShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}
	log.Info().Msg("shutting down gracefully...")
}
