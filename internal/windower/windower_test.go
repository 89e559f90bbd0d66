package windower

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketpipeline/internal/model"
)

func trade(pair, price, qty string, ts int64) model.Trade {
	return model.Trade{
		Pair:        pair,
		Price:       decimal.RequireFromString(price),
		Quantity:    decimal.RequireFromString(qty),
		TimestampMs: ts,
	}
}

func TestSingleTradeWindow(t *testing.T) {
	agg := NewAggregator(60, zap.NewNop())
	c, ok := agg.Update(trade("BTC/USD", "100", "1", 60_000))
	require.True(t, ok)

	assert.True(t, c.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.High.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.Low.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.Close.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.Volume.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(60_000), c.WindowStartMs)
	assert.Equal(t, int64(120_000), c.WindowEndMs)
}

func TestThreeTradeOHLC(t *testing.T) {
	agg := NewAggregator(60, zap.NewNop())
	agg.Update(trade("BTC/USD", "100", "1", 60_000))
	agg.Update(trade("BTC/USD", "120", "2", 80_000))
	c, ok := agg.Update(trade("BTC/USD", "90", "3", 100_000))
	require.True(t, ok)

	assert.True(t, c.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.High.Equal(decimal.NewFromInt(120)))
	assert.True(t, c.Low.Equal(decimal.NewFromInt(90)))
	assert.True(t, c.Close.Equal(decimal.NewFromInt(90)))
	assert.True(t, c.Volume.Equal(decimal.NewFromInt(6)))
}

func TestWindowRollover(t *testing.T) {
	agg := NewAggregator(60, zap.NewNop())
	first, ok := agg.Update(trade("BTC/USD", "100", "1", 119_999))
	require.True(t, ok)
	assert.Equal(t, int64(60_000), first.WindowStartMs)
	assert.True(t, first.Close.Equal(decimal.NewFromInt(100)))

	second, ok := agg.Update(trade("BTC/USD", "200", "1", 120_000))
	require.True(t, ok)
	assert.Equal(t, int64(120_000), second.WindowStartMs)
	assert.True(t, second.Open.Equal(decimal.NewFromInt(200)))
}

func TestLateTradeIsDropped(t *testing.T) {
	agg := NewAggregator(60, zap.NewNop())
	agg.Update(trade("BTC/USD", "100", "1", 120_000))
	_, ok := agg.Update(trade("BTC/USD", "50", "1", 60_000))
	assert.False(t, ok)
}

func TestOpenPreservation(t *testing.T) {
	agg := NewAggregator(60, zap.NewNop())
	agg.Update(trade("BTC/USD", "55", "1", 61_000))
	c, ok := agg.Update(trade("BTC/USD", "70", "1", 65_000))
	require.True(t, ok)
	assert.True(t, c.Open.Equal(decimal.NewFromInt(55)))
}

func TestReducerVolumeAccumulatesOnReplay(t *testing.T) {
	tr := trade("BTC/USD", "100", "1", 60_000)
	agg := NewAggregator(60, zap.NewNop())
	first, _ := agg.Update(tr)
	second, _ := agg.Update(tr)

	assert.True(t, first.Close.Equal(second.Close))
	assert.True(t, second.Volume.Equal(decimal.NewFromInt(2)))
}
