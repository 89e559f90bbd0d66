package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeValidate(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	cases := []struct {
		name    string
		trade   Trade
		wantErr bool
	}{
		{
			name:    "valid",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), TimestampMs: now.UnixMilli()},
			wantErr: false,
		},
		{
			name:    "empty pair",
			trade:   Trade{Pair: "", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), TimestampMs: now.UnixMilli()},
			wantErr: true,
		},
		{
			name:    "zero price",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.Zero, Quantity: decimal.NewFromInt(1), TimestampMs: now.UnixMilli()},
			wantErr: true,
		},
		{
			name:    "negative price",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(-1), Quantity: decimal.NewFromInt(1), TimestampMs: now.UnixMilli()},
			wantErr: true,
		},
		{
			name:    "negative quantity",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(-1), TimestampMs: now.UnixMilli()},
			wantErr: true,
		},
		{
			name:    "zero quantity allowed",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(100), Quantity: decimal.Zero, TimestampMs: now.UnixMilli()},
			wantErr: false,
		},
		{
			name:    "too old",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), TimestampMs: now.Add(-25 * time.Hour).UnixMilli()},
			wantErr: true,
		},
		{
			name:    "too far in future",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), TimestampMs: now.Add(61 * time.Second).UnixMilli()},
			wantErr: true,
		},
		{
			name:    "within clock skew tolerance",
			trade:   Trade{Pair: "BTC/USD", Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), TimestampMs: now.Add(59 * time.Second).UnixMilli()},
			wantErr: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.trade.Validate(now)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTradeJSONRoundTrip(t *testing.T) {
	trade := Trade{Pair: "ETH/USD", Price: decimal.RequireFromString("1234.56"), Quantity: decimal.RequireFromString("0.5"), TimestampMs: 1_700_000_000_000}

	data, err := trade.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":"1234.56"`)
	assert.Contains(t, string(data), `"quantity":"0.5"`)

	var decoded Trade
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, trade.Price.Equal(decoded.Price))
	assert.True(t, trade.Quantity.Equal(decoded.Quantity))
	assert.Equal(t, trade.Pair, decoded.Pair)
	assert.Equal(t, trade.TimestampMs, decoded.TimestampMs)
}
