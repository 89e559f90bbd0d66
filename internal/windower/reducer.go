// Package windower implements the tumbling-window OHLCV reducer
// (spec.md §4.2): a pure init/update reducer kept separate from the
// runtime that drives it, per spec.md §9's "keep the reducer as a pure
// function" re-architecture note.
package windower

import (
	"marketpipeline/internal/model"
)

// InitCandle seeds a new window bucket from the first trade observed in
// it: open=high=low=close=price, volume=quantity.
func InitCandle(trade model.Trade, windowStartMs int64, candleSeconds int) model.Candle {
	return model.Candle{
		Pair:          trade.Pair,
		Open:          trade.Price,
		High:          trade.Price,
		Low:           trade.Price,
		Close:         trade.Price,
		Volume:        trade.Quantity,
		WindowStartMs: windowStartMs,
		WindowEndMs:   windowStartMs + int64(candleSeconds)*1000,
		CandleSeconds: candleSeconds,
		SchemaVersion: model.SchemaVersion,
	}
}

// UpdateCandle folds one more trade into an already-open bucket. open is
// never modified; high/low track the running extremes; close tracks the
// latest trade; volume accumulates (not idempotent on replay, by design —
// spec.md §8's "reducer idempotence on snapshot" test).
func UpdateCandle(candle model.Candle, trade model.Trade) model.Candle {
	updated := candle
	if trade.Price.GreaterThan(updated.High) {
		updated.High = trade.Price
	}
	if trade.Price.LessThan(updated.Low) {
		updated.Low = trade.Price
	}
	updated.Close = trade.Price
	updated.Volume = updated.Volume.Add(trade.Quantity)
	return updated
}

// Fold applies a trade to an existing bucket, or initializes a new bucket
// if none is supplied (the window's first trade). It is the single point
// both branches of the original's `update_candle`/`init_candle` pair
// collapse into, matching the spec's reducer contract.
func Fold(existing *model.Candle, trade model.Trade, windowStartMs int64, candleSeconds int) model.Candle {
	if existing == nil {
		return InitCandle(trade, windowStartMs, candleSeconds)
	}
	return UpdateCandle(*existing, trade)
}
