package cfg

import (
	"os"
	"strconv"
	"time"
)

type Settings struct {
	ModelPath        string
	ScalerPath       string
	EncoderPath      string
	ReferencePath    string
	LabelColumn      string
	WildernessPrefix string
	SoilPrefix       string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	TopK             int
	DataPath         string
	RateLimit        float64
	RateBurst        int
	LogLevel         string
	LogFormat        string
}

type ConfigFile struct {
	Artifacts struct {
		ModelPath     string `yaml:"modelPath"`
		ScalerPath    string `yaml:"scalerPath"`
		EncoderPath   string `yaml:"encoderPath"`
		ReferencePath string `yaml:"referencePath"`
	} `yaml:"artifacts"`

	Schema struct {
		LabelColumn      string `yaml:"labelColumn"`
		WildernessPrefix string `yaml:"wildernessPrefix"`
		SoilPrefix       string `yaml:"soilPrefix"`
	} `yaml:"schema"`

	Server struct {
		Port         int     `yaml:"port"`
		ReadTimeout  string  `yaml:"readTimeout"`
		WriteTimeout string  `yaml:"writeTimeout"`
		RateLimit    float64 `yaml:"rateLimit"`
		RateBurst    int     `yaml:"rateBurst"`
	} `yaml:"server"`

	Prediction struct {
		TopK int `yaml:"topK"`
	} `yaml:"prediction"`

	System struct {
		DataPath  string `yaml:"dataPath"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
	} `yaml:"system"`
}

// Paths returns the artifact locations in load order.
func (s Settings) Paths() map[string]string {
	return map[string]string{
		"model":     s.ModelPath,
		"scaler":    s.ScalerPath,
		"encoder":   s.EncoderPath,
		"reference": s.ReferencePath,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getStringFromEnvOrConfig(key, configValue, defaultValue string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	if configValue != "" {
		return configValue
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(configValue); err == nil {
		return d
	}
	return defaultValue
}
