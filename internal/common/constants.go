package common

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvModelPath        = "MODEL_PATH"
	EnvScalerPath       = "SCALER_PATH"
	EnvEncoderPath      = "ENCODER_PATH"
	EnvReferencePath    = "REFERENCE_PATH"
	EnvLabelColumn      = "LABEL_COLUMN"
	EnvWildernessPrefix = "WILDERNESS_PREFIX"
	EnvSoilPrefix       = "SOIL_PREFIX"
	EnvPort             = "PORT"
	EnvReadTimeout      = "READ_TIMEOUT"
	EnvWriteTimeout     = "WRITE_TIMEOUT"
	EnvTopK             = "TOP_K"
	EnvDataPath         = "DATA_PATH"
	EnvRateLimit        = "RATE_LIMIT"
	EnvRateBurst        = "RATE_BURST"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Configuration defaults
const (
	DefaultModelPath        = "model.json"
	DefaultScalerPath       = "scaler.json"
	DefaultEncoderPath      = "label_encoder.json"
	DefaultReferencePath    = "cover_type.csv"
	DefaultLabelColumn      = "Cover_Type"
	DefaultWildernessPrefix = "Wilderness_Area_"
	DefaultSoilPrefix       = "Soil_Type_"
	DefaultPort             = 8501
	DefaultTopK             = 3
	DefaultRateLimit        = 20.0 // requests per second
	DefaultRateBurst        = 40
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

// Validation constants
const (
	MinPort  = 1024
	MaxPort  = 65535
	MinTopK  = 1
	MaxTopK  = 20
	MaxBurst = 10000
)

// Display
const (
	NumericPrecision     = 4 // decimals shown in numeric inputs
	ProbabilityPrecision = 2 // decimals shown for percentages
)
