package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, prefix string, keys ...string) {
	t.Helper()
	for _, k := range keys {
		os.Unsetenv(prefix + "_" + k)
	}
}

func TestLoadCandlesConfigDefaults(t *testing.T) {
	os.Setenv("CANDLES_APP_NAME", "candles")
	os.Setenv("CANDLES_KAFKA_BROKER_ADDRESS", "localhost:9092")
	defer clearEnv(t, "CANDLES", "APP_NAME", "KAFKA_BROKER_ADDRESS")

	cfg, err := LoadCandlesConfig()
	require.NoError(t, err)
	assert.Equal(t, "trades", cfg.KafkaInputTopic)
	assert.Equal(t, "candles", cfg.KafkaOutputTopic)
	assert.Equal(t, 60, cfg.CandleSeconds)
	assert.False(t, cfg.Historical())
}

func TestLoadCandlesConfigRejectsBadBroker(t *testing.T) {
	os.Setenv("CANDLES_APP_NAME", "candles")
	os.Setenv("CANDLES_KAFKA_BROKER_ADDRESS", "not-a-host-port")
	defer clearEnv(t, "CANDLES", "APP_NAME", "KAFKA_BROKER_ADDRESS")

	_, err := LoadCandlesConfig()
	assert.Error(t, err)
}

func TestLoadTradesConfigRequiresProductIDs(t *testing.T) {
	os.Setenv("TRADES_APP_NAME", "trades")
	os.Setenv("TRADES_KAFKA_BROKER_ADDRESS", "localhost:9092")
	os.Unsetenv("TRADES_PRODUCT_IDS")
	defer clearEnv(t, "TRADES", "APP_NAME", "KAFKA_BROKER_ADDRESS", "PRODUCT_IDS")

	_, err := LoadTradesConfig()
	assert.Error(t, err)
}

func TestLoadTradesConfigHistoricalWithLastNDays(t *testing.T) {
	os.Setenv("TRADES_APP_NAME", "trades")
	os.Setenv("TRADES_KAFKA_BROKER_ADDRESS", "localhost:9092")
	os.Setenv("TRADES_PRODUCT_IDS", "BTC/USD,ETH/USD")
	os.Setenv("TRADES_PROCESSING_MODE", "historical")
	os.Setenv("TRADES_LAST_N_DAYS", "7")
	defer clearEnv(t, "TRADES", "APP_NAME", "KAFKA_BROKER_ADDRESS", "PRODUCT_IDS", "PROCESSING_MODE", "LAST_N_DAYS")

	cfg, err := LoadTradesConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Historical())
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, cfg.ProductIDs)
	assert.Equal(t, 7, cfg.LastNDays)
}

func TestSplitInts(t *testing.T) {
	got, err := splitInts("7, 14,21 ,60,14")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 14, 21, 60}, got)

	_, err = splitInts("")
	assert.Error(t, err)

	_, err = splitInts("7,-1")
	assert.Error(t, err)

	_, err = splitInts("7,abc")
	assert.Error(t, err)
}

func TestLoadIndicatorsConfigPeriods(t *testing.T) {
	os.Setenv("TECHNICAL_INDICATORS_APP_NAME", "technical_indicators")
	os.Setenv("TECHNICAL_INDICATORS_KAFKA_BROKER_ADDRESS", "localhost:9092")
	os.Setenv("TECHNICAL_INDICATORS_SMA_PERIODS", "5,10")
	defer clearEnv(t, "TECHNICAL_INDICATORS", "APP_NAME", "KAFKA_BROKER_ADDRESS", "SMA_PERIODS")

	cfg, err := LoadIndicatorsConfig()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10}, cfg.SMAPeriods)
	assert.Equal(t, []int{7, 14, 21, 60}, cfg.RSIPeriods)
	assert.Equal(t, 70, cfg.MaxCandlesInState)
}
