package config

import "fmt"

// CandlesConfig is the Candles service's env-prefixed settings
// (`CANDLES_*`). The windowing width comes from the shared
// Base.CandleSeconds field (spec.md §6).
type CandlesConfig struct {
	Base
}

// LoadCandlesConfig reads CANDLES_* environment variables into a validated
// CandlesConfig.
func LoadCandlesConfig() (*CandlesConfig, error) {
	v := newViper("CANDLES")
	v.SetDefault("kafka_input_topic", "trades")
	v.SetDefault("kafka_output_topic", "candles")
	v.SetDefault("kafka_consumer_group", "candles-service")

	var cfg CandlesConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding candles config: %w", err)
	}
	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating candles config: %w", err)
	}
	return &cfg, nil
}
