package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// TradesConfig is the Trades service's env-prefixed settings
// (`TRADES_*`), mirroring the original's trades/config module.
type TradesConfig struct {
	Base

	ProductIDs []string `mapstructure:"-" validate:"-"`
	LastNDays  int      `mapstructure:"last_n_days" validate:"required_if=ProcessingMode historical,omitempty,gt=0"`

	// RESTRequestsPerSecond throttles the historical backfill poller
	// (golang.org/x/time/rate), addressing spec.md §9's open question
	// about unhandled backfill rate limiting. Not present in the
	// original; defaults conservatively.
	RESTRequestsPerSecond float64 `mapstructure:"rest_requests_per_second" validate:"gt=0"`
}

// LoadTradesConfig reads TRADES_* environment variables into a validated
// TradesConfig. A validation failure is a fatal configuration error
// (spec.md §7): the caller should log and exit(1).
func LoadTradesConfig() (*TradesConfig, error) {
	v := newViper("TRADES")
	v.SetDefault("last_n_days", 1)
	v.SetDefault("rest_requests_per_second", 1.0)
	v.SetDefault("kafka_input_topic", "trades")
	v.SetDefault("kafka_output_topic", "trades")
	v.SetDefault("kafka_consumer_group", "trades-service")

	var cfg TradesConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding trades config: %w", err)
	}

	productIDsRaw := v.GetString("product_ids")
	cfg.ProductIDs = splitStrings(productIDsRaw)
	if len(cfg.ProductIDs) == 0 {
		return nil, fmt.Errorf("TRADES_PRODUCT_IDS must list at least one product id")
	}

	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating trades config: %w", err)
	}
	return &cfg, nil
}
