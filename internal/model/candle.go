package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SchemaVersion is stamped on every emitted Candle and Prediction so
// downstream consumers can detect a shape change.
const SchemaVersion = 1

// Candle is an OHLCV summary of trades within one tumbling window.
type Candle struct {
	Pair          string          `json:"pair"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        decimal.Decimal `json:"volume"`
	WindowStartMs int64           `json:"window_start_ms"`
	WindowEndMs   int64           `json:"window_end_ms"`
	CandleSeconds int             `json:"candle_seconds"`
	SchemaVersion int             `json:"schema_version"`
}

type candleWire struct {
	Pair          string `json:"pair"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	WindowStartMs int64  `json:"window_start_ms"`
	WindowEndMs   int64  `json:"window_end_ms"`
	CandleSeconds int    `json:"candle_seconds"`
	SchemaVersion int    `json:"schema_version"`
}

func (c Candle) MarshalJSON() ([]byte, error) {
	return json.Marshal(candleWire{
		Pair:          c.Pair,
		Open:          c.Open.String(),
		High:          c.High.String(),
		Low:           c.Low.String(),
		Close:         c.Close.String(),
		Volume:        c.Volume.String(),
		WindowStartMs: c.WindowStartMs,
		WindowEndMs:   c.WindowEndMs,
		CandleSeconds: c.CandleSeconds,
		SchemaVersion: c.SchemaVersion,
	})
}

func (c *Candle) UnmarshalJSON(data []byte) error {
	var w candleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	if c.Open, err = decimal.NewFromString(w.Open); err != nil {
		return newValidationError("Candle", "open", "not a decimal", nil)
	}
	if c.High, err = decimal.NewFromString(w.High); err != nil {
		return newValidationError("Candle", "high", "not a decimal", nil)
	}
	if c.Low, err = decimal.NewFromString(w.Low); err != nil {
		return newValidationError("Candle", "low", "not a decimal", nil)
	}
	if c.Close, err = decimal.NewFromString(w.Close); err != nil {
		return newValidationError("Candle", "close", "not a decimal", nil)
	}
	if c.Volume, err = decimal.NewFromString(w.Volume); err != nil {
		return newValidationError("Candle", "volume", "not a decimal", nil)
	}
	c.Pair = w.Pair
	c.WindowStartMs = w.WindowStartMs
	c.WindowEndMs = w.WindowEndMs
	c.CandleSeconds = w.CandleSeconds
	c.SchemaVersion = w.SchemaVersion
	return nil
}

// Validate checks the OHLC and window invariants from spec.md §3/§4.2. It
// never blocks emission on its own — callers log the error and still emit
// the original record, per the graceful-degradation policy in spec.md §7.
func (c Candle) Validate() error {
	if !c.Open.IsPositive() || !c.High.IsPositive() || !c.Low.IsPositive() || !c.Close.IsPositive() {
		return newValidationError("Candle", "", "open/high/low/close must be > 0", nil)
	}
	if c.Volume.IsNegative() {
		return newValidationError("Candle", "volume", "must be >= 0", nil)
	}
	if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) {
		return newValidationError("Candle", "", "low must be <= open and close", nil)
	}
	if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
		return newValidationError("Candle", "", "high must be >= open and close", nil)
	}
	if c.WindowEndMs <= c.WindowStartMs {
		return newValidationError("Candle", "window_end_ms", "must be > window_start_ms", nil)
	}
	expectedWidth := int64(c.CandleSeconds) * 1000
	if c.WindowEndMs-c.WindowStartMs != expectedWidth {
		return newValidationError("Candle", "", "window width must equal candle_seconds*1000", map[string]any{
			"width":    c.WindowEndMs - c.WindowStartMs,
			"expected": expectedWidth,
		})
	}
	if expectedWidth > 0 && c.WindowStartMs%expectedWidth != 0 {
		return newValidationError("Candle", "window_start_ms", "not aligned to candle_seconds boundary", nil)
	}
	return nil
}

// WindowStart returns the tumbling-window start, epoch-anchored, for a
// timestamp given a window width in seconds: floor(ts_ms/W)*W.
func WindowStart(timestampMs int64, candleSeconds int) int64 {
	widthMs := int64(candleSeconds) * 1000
	if widthMs <= 0 {
		return timestampMs
	}
	floored := timestampMs / widthMs
	if timestampMs%widthMs != 0 && timestampMs < 0 {
		floored--
	}
	return floored * widthMs
}
