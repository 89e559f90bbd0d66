package config

import "fmt"

// PredictionsConfig is the Predictions service's env-prefixed settings
// (`PREDICTIONS_*`), mirroring predictions/config (the original does not
// carry a dedicated config module for this service; the fields below
// follow the naming convention established by the other three and the
// options spec.md §6 calls out for this service specifically).
type PredictionsConfig struct {
	Base

	ModelName                string `mapstructure:"model_name" validate:"required"`
	ModelVersion             string `mapstructure:"model_version" validate:"required"`
	PredictionHorizonSeconds int    `mapstructure:"prediction_horizon_seconds" validate:"required,gte=1,lte=86400"`

	// ModelRegistryPath, when non-empty, points at a YAML manifest of
	// pluggable models (SPEC_FULL.md §3); otherwise the compiled-in
	// default threshold model is used.
	ModelRegistryPath string `mapstructure:"model_registry_path"`
}

// LoadPredictionsConfig reads PREDICTIONS_* environment variables into a
// validated PredictionsConfig.
func LoadPredictionsConfig() (*PredictionsConfig, error) {
	v := newViper("PREDICTIONS")
	v.SetDefault("kafka_input_topic", "technical_indicators")
	v.SetDefault("kafka_output_topic", "predictions")
	v.SetDefault("kafka_consumer_group", "predictions-service")
	v.SetDefault("model_name", "rsi_threshold")
	v.SetDefault("model_version", "v1")
	v.SetDefault("prediction_horizon_seconds", 300)
	v.SetDefault("model_registry_path", "")

	var cfg PredictionsConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding predictions config: %w", err)
	}
	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating predictions config: %w", err)
	}
	return &cfg, nil
}
