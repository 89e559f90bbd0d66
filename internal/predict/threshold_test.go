package predict

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpipeline/internal/model"
)

func recordWithRSI14(rsi *float64, close float64) model.IndicatorRecord {
	return model.IndicatorRecord{
		Candle: model.Candle{
			Pair:  "BTC/USD",
			Close: decimal.NewFromFloat(close),
		},
		RSI: map[int]*float64{14: rsi},
	}
}

func f(v float64) *float64 { return &v }

func TestPredictionPolicyOversold(t *testing.T) {
	m := NewRSIThresholdModel("", "")
	out, err := m.Predict(recordWithRSI14(f(25), 1000))
	require.NoError(t, err)
	assert.InDelta(t, 1020.0, out.PredictionValue, 0.001)
	assert.Equal(t, 0.7, out.ConfidenceScore)
	require.NotNil(t, out.SignalStrength)
	assert.Equal(t, 0.5, *out.SignalStrength)
}

func TestPredictionPolicyNeutral(t *testing.T) {
	m := NewRSIThresholdModel("", "")
	out, err := m.Predict(recordWithRSI14(f(50), 1000))
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, out.PredictionValue, 0.001)
	assert.Equal(t, 0.5, out.ConfidenceScore)
	assert.Equal(t, 0.0, *out.SignalStrength)
}

func TestPredictionPolicyOverbought(t *testing.T) {
	m := NewRSIThresholdModel("", "")
	out, err := m.Predict(recordWithRSI14(f(75), 1000))
	require.NoError(t, err)
	assert.InDelta(t, 980.0, out.PredictionValue, 0.001)
	assert.Equal(t, -0.5, *out.SignalStrength)
}

func TestPredictionPolicyDefaultsMissingRSI(t *testing.T) {
	m := NewRSIThresholdModel("", "")
	out, err := m.Predict(recordWithRSI14(nil, 1000))
	require.NoError(t, err)
	// rsi_14 defaults to 50 -> neutral branch.
	assert.InDelta(t, 1000.0, out.PredictionValue, 0.001)
	assert.Equal(t, 0.5, out.ConfidenceScore)
}

func TestRegistryFallsBackToDefault(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)
	m := reg.Resolve("rsi_threshold", "v1")
	assert.Equal(t, "rsi_threshold", m.Name())
	assert.Equal(t, "v1", m.Version())
}
