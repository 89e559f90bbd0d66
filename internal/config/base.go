// Package config loads and validates the per-service, environment-prefixed
// settings every service in this pipeline starts from, mirroring the
// original's pydantic_settings.BaseSettings(env_prefix=...) pattern.
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Base holds the settings common to every service (spec.md §6).
type Base struct {
	AppName            string `mapstructure:"app_name" validate:"required,max=100"`
	Debug              bool   `mapstructure:"debug"`
	LogLevel           string `mapstructure:"log_level" validate:"required,oneof=DEBUG INFO WARNING ERROR CRITICAL"`
	LogFormat          string `mapstructure:"log_format" validate:"required,oneof=json text"`
	KafkaBrokerAddress string `mapstructure:"kafka_broker_address" validate:"required,kafka_broker"`
	KafkaInputTopic    string `mapstructure:"kafka_input_topic" validate:"required,topic_name"`
	KafkaOutputTopic   string `mapstructure:"kafka_output_topic" validate:"required,topic_name"`
	KafkaConsumerGroup string `mapstructure:"kafka_consumer_group" validate:"required,consumer_group"`
	CandleSeconds      int    `mapstructure:"candle_seconds" validate:"required,gte=1,lte=86400"`
	ProcessingMode     string `mapstructure:"processing_mode" validate:"required,oneof=live historical"`
	MetricsAddr        string `mapstructure:"metrics_addr" validate:"required"`
}

// Historical reports whether the consumer should start from the earliest
// offset (spec.md §5's "historical mode switch").
func (b Base) Historical() bool {
	return b.ProcessingMode == "historical"
}

var (
	topicNamePattern    = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	consumerGroupPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	appNamePattern       = regexp.MustCompile(`^[A-Za-z0-9._ -]+$`)
)

// newValidator builds a validator.Validate with the custom checks the
// original expressed as field_validator/model_validator functions
// (config/validators.py) that a bare struct tag cannot express.
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("kafka_broker", func(fl validator.FieldLevel) bool {
		return validateKafkaBroker(fl.Field().String()) == nil
	})
	v.RegisterValidation("topic_name", func(fl validator.FieldLevel) bool {
		return validateTopicName(fl.Field().String()) == nil
	})
	v.RegisterValidation("consumer_group", func(fl validator.FieldLevel) bool {
		return validateConsumerGroup(fl.Field().String()) == nil
	})
	v.RegisterValidation("app_name_shape", func(fl validator.FieldLevel) bool {
		return appNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// validateKafkaBroker checks the "host:port" shape the original's
// validate_kafka_broker regex enforces.
func validateKafkaBroker(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("kafka broker address must be host:port: %w", err)
	}
	if host == "" {
		return fmt.Errorf("kafka broker address must include a host")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("kafka broker port must be in [1,65535]")
	}
	return nil
}

func validateTopicName(name string) error {
	if name == "" || len(name) > 255 {
		return fmt.Errorf("topic name length must be in (0,255]")
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return fmt.Errorf("topic name must not start with '.' or '_'")
	}
	if !topicNamePattern.MatchString(name) {
		return fmt.Errorf("topic name has invalid characters")
	}
	return nil
}

func validateConsumerGroup(name string) error {
	if name == "" || len(name) > 255 {
		return fmt.Errorf("consumer group length must be in (0,255]")
	}
	if !consumerGroupPattern.MatchString(name) {
		return fmt.Errorf("consumer group has invalid characters")
	}
	return nil
}

// newViper builds a viper instance bound to the environment, with an
// env_prefix matching the original's per-service pydantic_settings prefix,
// optionally seeded from a `.env` file (godotenv) so local development
// doesn't require exporting every variable by hand. Real environment
// variables always win over the .env file.
func newViper(prefix string) *viper.Viper {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		// Ignore a missing file; godotenv only supplements os.Environ().
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetDefault("app_name", strings.ToLower(prefix))
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_format", "json")
	v.SetDefault("candle_seconds", 60)
	v.SetDefault("processing_mode", "live")
	v.SetDefault("metrics_addr", ":9090")
	// No default: bind explicitly so Unmarshal still sees the env var.
	_ = v.BindEnv("kafka_broker_address")
	return v
}

// splitInts parses a comma-separated list of positive integers, matching
// the original's SMA_PERIODS/EMA_PERIODS/RSI_PERIODS parsing
// (deduplicated, sorted ascending, per technical_indicators/config/config.py).
func splitInts(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("must not be empty")
	}
	seen := make(map[int]struct{})
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("period %d must be positive", n)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("must contain at least one period")
	}
	sortInts(out)
	return out, nil
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func splitStrings(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
