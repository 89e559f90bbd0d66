package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDDLShape(t *testing.T) {
	ddl := buildDDL(Config{
		TableName:        "technical_indicators",
		KafkaTopic:       "technical_indicators",
		KafkaBroker:      "localhost:9092",
		IndicatorPeriods: []int{7, 14},
	})

	assert.Contains(t, ddl, "CREATE TABLE technical_indicators")
	assert.Contains(t, ddl, "sma_7 FLOAT")
	assert.Contains(t, ddl, "ema_14 FLOAT")
	assert.Contains(t, ddl, "rsi_7 FLOAT")
	assert.Contains(t, ddl, "macd_7 FLOAT")
	assert.Contains(t, ddl, "obv FLOAT")
	assert.Contains(t, ddl, "PRIMARY KEY(pair, window_start_ms, window_end_ms)")
	assert.Contains(t, ddl, "connector='kafka'")
	assert.Contains(t, ddl, "FORMAT PLAIN ENCODE JSON")
}
