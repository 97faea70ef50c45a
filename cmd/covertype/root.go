package main

import (
	"fmt"
	"os"
	"strings"

	"covertype/internal/assets"
	"covertype/internal/cfg"
	"covertype/internal/features"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "covertype",
		Short:         "Forest cover type predictor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd(), newPredictCmd(), newSchemaCmd(), newQueryCmd())
	return cmd
}

// loadSettings reads configuration and applies the logging settings.
func loadSettings() (cfg.Settings, error) {
	c, err := cfg.Load()
	if err != nil {
		return cfg.Settings{}, fmt.Errorf("config load failed: %w", err)
	}
	setupLogging(c.LogLevel, c.LogFormat)
	return c, nil
}

func setupLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func loadAssets(c cfg.Settings) (*assets.Assets, error) {
	ev := log.Info()
	for name, path := range c.Paths() {
		ev = ev.Str(name, path)
	}
	ev.Msg("loading artifacts")
	return assets.Load(assets.Paths{
		Model:     c.ModelPath,
		Scaler:    c.ScalerPath,
		Encoder:   c.EncoderPath,
		Reference: c.ReferencePath,
	}, assets.Options{
		LabelColumn: c.LabelColumn,
		Prefixes:    features.Prefixes{Wilderness: c.WildernessPrefix, Soil: c.SoilPrefix},
	})
}
