package model

import (
	"encoding/json"
	"math"
)

// IndicatorRecord is a Candle enriched with a family of technical
// indicators computed over the per-pair rolling buffer. Any indicator
// field is nil ("absent") when insufficient history exists or the
// computation produced a non-finite result (spec.md §4.3).
type IndicatorRecord struct {
	Candle

	SMA  map[int]*float64 `json:"-"`
	EMA  map[int]*float64 `json:"-"`
	RSI  map[int]*float64 `json:"-"`

	MACD       *float64 `json:"macd_7,omitempty"`
	MACDSignal *float64 `json:"macdsignal_7,omitempty"`
	MACDHist   *float64 `json:"macdhist_7,omitempty"`
	OBV        *float64 `json:"obv,omitempty"`
}

// indicatorWire flattens Candle plus the fixed default period set into a
// single JSON object, matching the original's `{**candle, **indicators}`
// dict-merge output shape. Periods outside the default set are kept in the
// in-memory map fields only: they are neither written by MarshalJSON nor
// read back by UnmarshalJSON.
type indicatorWire struct {
	candleWire
	SMA7  *float64 `json:"sma_7,omitempty"`
	SMA14 *float64 `json:"sma_14,omitempty"`
	SMA21 *float64 `json:"sma_21,omitempty"`
	SMA60 *float64 `json:"sma_60,omitempty"`
	EMA7  *float64 `json:"ema_7,omitempty"`
	EMA14 *float64 `json:"ema_14,omitempty"`
	EMA21 *float64 `json:"ema_21,omitempty"`
	EMA60 *float64 `json:"ema_60,omitempty"`
	RSI7  *float64 `json:"rsi_7,omitempty"`
	RSI14 *float64 `json:"rsi_14,omitempty"`
	RSI21 *float64 `json:"rsi_21,omitempty"`
	RSI60 *float64 `json:"rsi_60,omitempty"`

	MACD       *float64 `json:"macd_7,omitempty"`
	MACDSignal *float64 `json:"macdsignal_7,omitempty"`
	MACDHist   *float64 `json:"macdhist_7,omitempty"`
	OBV        *float64 `json:"obv,omitempty"`
}

// DefaultPeriods is the default period set for SMA/EMA/RSI (spec.md §3/§4.3).
var DefaultPeriods = []int{7, 14, 21, 60}

func (r IndicatorRecord) MarshalJSON() ([]byte, error) {
	cw := candleWire{
		Pair:          r.Pair,
		Open:          r.Open.String(),
		High:          r.High.String(),
		Low:           r.Low.String(),
		Close:         r.Close.String(),
		Volume:        r.Volume.String(),
		WindowStartMs: r.WindowStartMs,
		WindowEndMs:   r.WindowEndMs,
		CandleSeconds: r.CandleSeconds,
		SchemaVersion: r.SchemaVersion,
	}
	w := indicatorWire{
		candleWire: cw,
		SMA7:       r.SMA[7], SMA14: r.SMA[14], SMA21: r.SMA[21], SMA60: r.SMA[60],
		EMA7: r.EMA[7], EMA14: r.EMA[14], EMA21: r.EMA[21], EMA60: r.EMA[60],
		RSI7: r.RSI[7], RSI14: r.RSI[14], RSI21: r.RSI[21], RSI60: r.RSI[60],
		MACD: r.MACD, MACDSignal: r.MACDSignal, MACDHist: r.MACDHist, OBV: r.OBV,
	}
	return json.Marshal(w)
}

func (r *IndicatorRecord) UnmarshalJSON(data []byte) error {
	var w indicatorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var c Candle
	cwBytes, err := json.Marshal(w.candleWire)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(cwBytes, &c); err != nil {
		return err
	}
	r.Candle = c
	r.SMA = map[int]*float64{7: w.SMA7, 14: w.SMA14, 21: w.SMA21, 60: w.SMA60}
	r.EMA = map[int]*float64{7: w.EMA7, 14: w.EMA14, 21: w.EMA21, 60: w.EMA60}
	r.RSI = map[int]*float64{7: w.RSI7, 14: w.RSI14, 21: w.RSI21, 60: w.RSI60}
	r.MACD, r.MACDSignal, r.MACDHist, r.OBV = w.MACD, w.MACDSignal, w.MACDHist, w.OBV
	return nil
}

// Finite returns a pointer to v, or nil if v is NaN or infinite — the
// absence rule from spec.md §4.3.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
