package indicator

import (
	talib "github.com/markcheno/go-talib"

	"marketpipeline/internal/model"
)

// PeriodConfig names the periods each moving-average family is computed
// over (SMA_PERIODS/EMA_PERIODS/RSI_PERIODS, spec.md §6).
type PeriodConfig struct {
	SMAPeriods []int
	EMAPeriods []int
	RSIPeriods []int
}

// macdFast, macdSlow, macdSignal, macdMinHistory match the original's
// fixed MACD(7,14,9) configuration (indicators.py), requiring 26 candles.
const (
	macdFast       = 7
	macdSlow       = 14
	macdSignal     = 9
	macdMinHistory = 26
)

// Compute derives an IndicatorRecord from buffer (oldest candle first),
// mirroring the original's indicators.py: every indicator is computed
// with go-talib's batch functions over the full buffered series and only
// the latest value is kept, reproducing `talib.stream`'s "latest value
// given all history" semantics for a bounded buffer. Candle itself is
// carried from the last (most recent) buffered candle.
func Compute(buffer []model.Candle, cfg PeriodConfig) model.IndicatorRecord {
	record := model.IndicatorRecord{
		Candle: buffer[len(buffer)-1],
		SMA:    make(map[int]*float64),
		EMA:    make(map[int]*float64),
		RSI:    make(map[int]*float64),
	}

	closes := closeSeries(buffer)
	volumes := volumeSeries(buffer)

	for _, p := range cfg.SMAPeriods {
		record.SMA[p] = lastIfEnough(closes, p, func(s []float64) []float64 { return talib.Sma(s, p) })
	}
	for _, p := range cfg.EMAPeriods {
		record.EMA[p] = lastIfEnough(closes, p, func(s []float64) []float64 { return talib.Ema(s, p) })
	}
	for _, p := range cfg.RSIPeriods {
		// RSI needs p deltas, i.e. p+1 closes: go-talib's warmup rows are
		// 0, not NaN, so gating on len>=p alone would emit a spurious 0 at
		// the boundary where the original's stream.RSI still returns NaN
		// (indicators.py:69-71) and drops the field.
		record.RSI[p] = lastIfEnough(closes, p+1, func(s []float64) []float64 { return talib.Rsi(s, p) })
	}

	if len(closes) >= macdMinHistory {
		macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		record.MACD = model.Finite(macd[len(macd)-1])
		record.MACDSignal = model.Finite(signal[len(signal)-1])
		record.MACDHist = model.Finite(hist[len(hist)-1])
	}

	// go-talib's OBV seeds the running sum with volumes[0] (standard
	// TA-Lib convention); spec.md §4.3 wants the series to start from 0.
	// Subtracting the seed back out converts one convention to the other
	// without reimplementing the signed cumulative sum by hand.
	obv := talib.Obv(closes, volumes)
	record.OBV = model.Finite(obv[len(obv)-1] - volumes[0])

	return record
}

func closeSeries(buffer []model.Candle) []float64 {
	out := make([]float64, len(buffer))
	for i, c := range buffer {
		f, _ := c.Close.Float64()
		out[i] = f
	}
	return out
}

func volumeSeries(buffer []model.Candle) []float64 {
	out := make([]float64, len(buffer))
	for i, c := range buffer {
		f, _ := c.Volume.Float64()
		out[i] = f
	}
	return out
}

// lastIfEnough applies fn to series and returns a pointer to its last
// value, or nil ("absent") when series is shorter than minLen or the
// result is non-finite — spec.md §4.3's absence rule. minLen is the
// number of data points the function needs before its output is a real
// value rather than a zero-filled warmup row (period for SMA/EMA, period+1
// for RSI's deltas).
func lastIfEnough(series []float64, minLen int, fn func([]float64) []float64) *float64 {
	if len(series) < minLen {
		return nil
	}
	result := fn(series)
	if len(result) == 0 {
		return nil
	}
	return model.Finite(result[len(result)-1])
}
