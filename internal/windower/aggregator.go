package windower

import (
	"sync"

	"go.uber.org/zap"

	"marketpipeline/internal/model"
)

// Aggregator owns one open window bucket per pair and folds trades into
// it, emitting a "current" snapshot after every update (spec.md §4.2).
//
// Allowed-lateness policy (spec.md §9's open question, resolved here): a
// trade whose window is older than the pair's currently open window is
// dropped with a warning — the window is considered closed the instant a
// strictly later window opens for the same pair. Only one bucket per pair
// is retained at a time.
type Aggregator struct {
	candleSeconds int
	logger        *zap.Logger

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	windowStartMs int64
	candle        model.Candle
}

// NewAggregator builds an Aggregator windowing at candleSeconds width.
func NewAggregator(candleSeconds int, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		candleSeconds: candleSeconds,
		logger:        logger,
		buckets:       make(map[string]*bucket),
	}
}

// Update folds trade into the bucket for its pair and window, returning
// the resulting "current" candle snapshot to emit. ok is false when the
// trade was dropped as late (ok == false means: do not emit).
func (a *Aggregator) Update(trade model.Trade) (candle model.Candle, ok bool) {
	windowStart := model.WindowStart(trade.TimestampMs, a.candleSeconds)

	a.mu.Lock()
	defer a.mu.Unlock()

	b, exists := a.buckets[trade.Pair]
	switch {
	case !exists:
		c := Fold(nil, trade, windowStart, a.candleSeconds)
		a.buckets[trade.Pair] = &bucket{windowStartMs: windowStart, candle: c}
		return c, true

	case windowStart == b.windowStartMs:
		b.candle = Fold(&b.candle, trade, windowStart, a.candleSeconds)
		return b.candle, true

	case windowStart > b.windowStartMs:
		// The previous window is implicitly finalized; its last emitted
		// "current" snapshot stands as the final value.
		c := Fold(nil, trade, windowStart, a.candleSeconds)
		a.buckets[trade.Pair] = &bucket{windowStartMs: windowStart, candle: c}
		return c, true

	default:
		a.logger.Warn("dropping late trade for a closed window",
			zap.String("pair", trade.Pair),
			zap.Int64("trade_window_start_ms", windowStart),
			zap.Int64("open_window_start_ms", b.windowStartMs),
		)
		return model.Candle{}, false
	}
}
