package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWindowStart(t *testing.T) {
	cases := []struct {
		ts, candleSeconds int64
		want              int64
	}{
		{60_000, 60, 60_000},
		{119_999, 60, 60_000},
		{120_000, 60, 120_000},
		{0, 60, 0},
	}
	for _, tc := range cases {
		got := WindowStart(tc.ts, int(tc.candleSeconds))
		assert.Equal(t, tc.want, got)
	}
}

func TestCandleValidate(t *testing.T) {
	valid := Candle{
		Pair: "BTC/USD", Open: dec("100"), High: dec("120"), Low: dec("90"), Close: dec("90"),
		Volume: dec("6"), WindowStartMs: 60_000, WindowEndMs: 120_000, CandleSeconds: 60,
	}
	assert.NoError(t, valid.Validate())

	badHigh := valid
	badHigh.High = dec("80")
	assert.Error(t, badHigh.Validate())

	badLow := valid
	badLow.Low = dec("200")
	assert.Error(t, badLow.Validate())

	badWidth := valid
	badWidth.WindowEndMs = 125_000
	assert.Error(t, badWidth.Validate())

	unaligned := valid
	unaligned.WindowStartMs = 61_000
	unaligned.WindowEndMs = 121_000
	assert.Error(t, unaligned.Validate())

	negVolume := valid
	negVolume.Volume = dec("-1")
	assert.Error(t, negVolume.Validate())
}
