package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpipeline/internal/model"
)

func candleWithClose(close float64, volume float64, windowStart int64) model.Candle {
	return model.Candle{
		Pair:          "BTC/USD",
		Open:          decimal.NewFromFloat(close),
		High:          decimal.NewFromFloat(close),
		Low:           decimal.NewFromFloat(close),
		Close:         decimal.NewFromFloat(close),
		Volume:        decimal.NewFromFloat(volume),
		WindowStartMs: windowStart,
		WindowEndMs:   windowStart + 60_000,
		CandleSeconds: 60,
	}
}

func TestAbsenceRuleBelowPeriod(t *testing.T) {
	buf := []model.Candle{candleWithClose(10, 1, 0)}
	rec := Compute(buf, PeriodConfig{SMAPeriods: []int{7}, EMAPeriods: []int{7}, RSIPeriods: []int{7}})
	assert.Nil(t, rec.SMA[7])
	assert.Nil(t, rec.EMA[7])
	assert.Nil(t, rec.RSI[7])
	assert.Nil(t, rec.MACD)
}

func TestSMASeeding(t *testing.T) {
	closes := []float64{10, 20, 30, 40, 50, 60, 70}
	var buf []model.Candle
	for i, c := range closes {
		buf = append(buf, candleWithClose(c, 1, int64(i)*60_000))
	}
	rec := Compute(buf, PeriodConfig{SMAPeriods: []int{7}})
	require.NotNil(t, rec.SMA[7])
	assert.InDelta(t, 40.0, *rec.SMA[7], 0.001)
}

func TestOBVSignConvention(t *testing.T) {
	closes := []float64{10, 12, 11, 11, 15}
	volumes := []float64{1, 1, 1, 1, 1}
	wantTrace := []float64{0, 1, 0, 0, 1}

	for i := range closes {
		var buf []model.Candle
		for j := 0; j <= i; j++ {
			buf = append(buf, candleWithClose(closes[j], volumes[j], int64(j)*60_000))
		}
		rec := Compute(buf, PeriodConfig{})
		require.NotNil(t, rec.OBV, "step %d", i)
		assert.InDelta(t, wantTrace[i], *rec.OBV, 0.001, "step %d", i)
	}
}

func TestRSIAllUpIsHundred(t *testing.T) {
	var buf []model.Candle
	for i := 0; i < 15; i++ {
		buf = append(buf, candleWithClose(float64(10+i), 1, int64(i)*60_000))
	}
	rec := Compute(buf, PeriodConfig{RSIPeriods: []int{14}})
	require.NotNil(t, rec.RSI[14])
	assert.InDelta(t, 100.0, *rec.RSI[14], 0.001)
}

func TestRSIAbsentAtExactlyPeriodCloses(t *testing.T) {
	// rsi_14 needs 14 deltas (15 closes); at exactly 14 closes go-talib's
	// warmup row is still 0, which must not be read as a real value.
	var buf []model.Candle
	for i := 0; i < 14; i++ {
		buf = append(buf, candleWithClose(float64(10+i), 1, int64(i)*60_000))
	}
	rec := Compute(buf, PeriodConfig{RSIPeriods: []int{14}})
	assert.Nil(t, rec.RSI[14])
}

func TestBufferFIFOEvictionAndDedupe(t *testing.T) {
	buf := NewBuffer(3)
	buf.Append(candleWithClose(1, 1, 0))
	buf.Append(candleWithClose(2, 1, 60_000))
	buf.Append(candleWithClose(3, 1, 60_000)) // same window, overwrites tail
	buf.Append(candleWithClose(4, 1, 120_000))
	buf.Append(candleWithClose(5, 1, 180_000))

	snap := buf.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(60_000), snap[0].WindowStartMs)
	assert.True(t, snap[0].Close.Equal(decimal.NewFromFloat(3)))
	assert.Equal(t, int64(180_000), snap[2].WindowStartMs)
}
