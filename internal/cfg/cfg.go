// Package cfg loads service settings from an optional .env file, an optional
// YAML config file and environment variables, in that order of precedence
// (environment wins).
package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"covertype/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func Load() (Settings, error) {
	// .env is a convenience for local runs, a missing file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to read .env file: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		ModelPath:        getStringFromEnvOrConfig(common.EnvModelPath, config.Artifacts.ModelPath, common.DefaultModelPath),
		ScalerPath:       getStringFromEnvOrConfig(common.EnvScalerPath, config.Artifacts.ScalerPath, common.DefaultScalerPath),
		EncoderPath:      getStringFromEnvOrConfig(common.EnvEncoderPath, config.Artifacts.EncoderPath, common.DefaultEncoderPath),
		ReferencePath:    getStringFromEnvOrConfig(common.EnvReferencePath, config.Artifacts.ReferencePath, common.DefaultReferencePath),
		LabelColumn:      getStringFromEnvOrConfig(common.EnvLabelColumn, config.Schema.LabelColumn, common.DefaultLabelColumn),
		WildernessPrefix: getStringFromEnvOrConfig(common.EnvWildernessPrefix, config.Schema.WildernessPrefix, common.DefaultWildernessPrefix),
		SoilPrefix:       getStringFromEnvOrConfig(common.EnvSoilPrefix, config.Schema.SoilPrefix, common.DefaultSoilPrefix),
		Port:             getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		ReadTimeout:      getDurationFromEnvOrConfig(common.EnvReadTimeout, config.Server.ReadTimeout, 10*time.Second),
		WriteTimeout:     getDurationFromEnvOrConfig(common.EnvWriteTimeout, config.Server.WriteTimeout, 10*time.Second),
		TopK:             getIntFromEnvOrConfig(common.EnvTopK, config.Prediction.TopK, common.DefaultTopK),
		DataPath:         getStringFromEnvOrConfig(common.EnvDataPath, config.System.DataPath, ""),
		RateLimit:        getFloatFromEnvOrConfig(common.EnvRateLimit, config.Server.RateLimit, common.DefaultRateLimit),
		RateBurst:        getIntFromEnvOrConfig(common.EnvRateBurst, config.Server.RateBurst, common.DefaultRateBurst),
		LogLevel:         getStringFromEnvOrConfig(common.EnvLogLevel, config.System.LogLevel, common.DefaultLogLevel),
		LogFormat:        getStringFromEnvOrConfig(common.EnvLogFormat, config.System.LogFormat, common.DefaultLogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelPath:        getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ScalerPath:       getEnvOrDefault(common.EnvScalerPath, common.DefaultScalerPath),
		EncoderPath:      getEnvOrDefault(common.EnvEncoderPath, common.DefaultEncoderPath),
		ReferencePath:    getEnvOrDefault(common.EnvReferencePath, common.DefaultReferencePath),
		LabelColumn:      getEnvOrDefault(common.EnvLabelColumn, common.DefaultLabelColumn),
		WildernessPrefix: getEnvOrDefault(common.EnvWildernessPrefix, common.DefaultWildernessPrefix),
		SoilPrefix:       getEnvOrDefault(common.EnvSoilPrefix, common.DefaultSoilPrefix),
		Port:             getIntOrDefault(common.EnvPort, common.DefaultPort),
		ReadTimeout:      getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:     getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
		TopK:             getIntOrDefault(common.EnvTopK, common.DefaultTopK),
		DataPath:         os.Getenv(common.EnvDataPath), // optional
		RateLimit:        getFloatOrDefault(common.EnvRateLimit, common.DefaultRateLimit),
		RateBurst:        getIntOrDefault(common.EnvRateBurst, common.DefaultRateBurst),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:        getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	for name, path := range settings.Paths() {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%s path cannot be empty", name)
		}
	}

	if settings.LabelColumn == "" {
		return fmt.Errorf("label column cannot be empty")
	}
	if settings.WildernessPrefix == "" || settings.SoilPrefix == "" {
		return fmt.Errorf("category prefixes cannot be empty")
	}
	if strings.HasPrefix(settings.WildernessPrefix, settings.SoilPrefix) ||
		strings.HasPrefix(settings.SoilPrefix, settings.WildernessPrefix) {
		return fmt.Errorf("category prefixes must not overlap: %q, %q", settings.WildernessPrefix, settings.SoilPrefix)
	}

	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 1m, got %v", settings.WriteTimeout)
	}

	if settings.TopK < common.MinTopK || settings.TopK > common.MaxTopK {
		return fmt.Errorf("top-k must be between %d and %d, got %d", common.MinTopK, common.MaxTopK, settings.TopK)
	}

	// zero disables rate limiting
	if settings.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %f", settings.RateLimit)
	}
	if settings.RateLimit > 0 && (settings.RateBurst < 1 || settings.RateBurst > common.MaxBurst) {
		return fmt.Errorf("rate burst must be between 1 and %d, got %d", common.MaxBurst, settings.RateBurst)
	}

	switch settings.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", settings.LogFormat)
	}

	return nil
}
