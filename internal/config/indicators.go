package config

import "fmt"

// IndicatorsConfig is the Technical Indicators service's env-prefixed
// settings (`TECHNICAL_INDICATORS_*`), mirroring
// technical_indicators/config/config.py.
type IndicatorsConfig struct {
	Base

	MaxCandlesInState int `mapstructure:"max_candles_in_state" validate:"required,gte=1,lte=10000"`

	SMAPeriods []int `mapstructure:"-" validate:"-"`
	EMAPeriods []int `mapstructure:"-" validate:"-"`
	RSIPeriods []int `mapstructure:"-" validate:"-"`

	TableNameInRisingwave string `mapstructure:"table_name_in_risingwave" validate:"required"`
	RisingwaveHost        string `mapstructure:"risingwave_host" validate:"required"`
	RisingwavePort        int    `mapstructure:"risingwave_port" validate:"required,gte=1,lte=65535"`
	RisingwaveUser        string `mapstructure:"risingwave_user" validate:"required"`
	RisingwavePassword    string `mapstructure:"risingwave_password"`
	RisingwaveDatabase    string `mapstructure:"risingwave_database" validate:"required"`

	// RedisAddress, when non-empty, enables the buffer warm-start cache
	// layered on top of replay-based recovery (SPEC_FULL.md §3).
	RedisAddress string `mapstructure:"redis_address"`
}

// LoadIndicatorsConfig reads TECHNICAL_INDICATORS_* environment variables
// into a validated IndicatorsConfig.
func LoadIndicatorsConfig() (*IndicatorsConfig, error) {
	v := newViper("TECHNICAL_INDICATORS")
	v.SetDefault("kafka_input_topic", "candles")
	v.SetDefault("kafka_output_topic", "technical_indicators")
	v.SetDefault("kafka_consumer_group", "technical-indicators-service")
	v.SetDefault("max_candles_in_state", 70)
	v.SetDefault("table_name_in_risingwave", "technical_indicators")
	v.SetDefault("risingwave_host", "localhost")
	v.SetDefault("risingwave_port", 4566)
	v.SetDefault("risingwave_user", "root")
	v.SetDefault("risingwave_database", "dev")
	v.SetDefault("risingwave_password", "")
	v.SetDefault("sma_periods", "7,14,21,60")
	v.SetDefault("ema_periods", "7,14,21,60")
	v.SetDefault("rsi_periods", "7,14,21,60")
	v.SetDefault("redis_address", "")

	var cfg IndicatorsConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding technical indicators config: %w", err)
	}

	var err error
	if cfg.SMAPeriods, err = splitInts(v.GetString("sma_periods")); err != nil {
		return nil, fmt.Errorf("TECHNICAL_INDICATORS_SMA_PERIODS: %w", err)
	}
	if cfg.EMAPeriods, err = splitInts(v.GetString("ema_periods")); err != nil {
		return nil, fmt.Errorf("TECHNICAL_INDICATORS_EMA_PERIODS: %w", err)
	}
	if cfg.RSIPeriods, err = splitInts(v.GetString("rsi_periods")); err != nil {
		return nil, fmt.Errorf("TECHNICAL_INDICATORS_RSI_PERIODS: %w", err)
	}

	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating technical indicators config: %w", err)
	}
	return &cfg, nil
}
