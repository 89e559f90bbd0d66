package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ClockSkewTolerance bounds how far into the future a trade's timestamp may
// sit relative to the validating instance's clock.
const ClockSkewTolerance = 60 * time.Second

// MaxTradeAge bounds how far into the past a trade's timestamp may sit.
const MaxTradeAge = 24 * time.Hour

// Trade is a single executed order reported by the exchange.
type Trade struct {
	Pair        string          `json:"pair"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	TimestampMs int64           `json:"timestamp_ms"`
}

type tradeWire struct {
	Pair        string `json:"pair"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// MarshalJSON serializes price and quantity as decimal-preserving strings.
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeWire{
		Pair:        t.Pair,
		Price:       t.Price.String(),
		Quantity:    t.Quantity.String(),
		TimestampMs: t.TimestampMs,
	})
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	var w tradeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	price, err := decimal.NewFromString(w.Price)
	if err != nil {
		return newValidationError("Trade", "price", "not a decimal: "+err.Error(), nil)
	}
	qty, err := decimal.NewFromString(w.Quantity)
	if err != nil {
		return newValidationError("Trade", "quantity", "not a decimal: "+err.Error(), nil)
	}
	t.Pair = w.Pair
	t.Price = price
	t.Quantity = qty
	t.TimestampMs = w.TimestampMs
	return nil
}

// Validate checks the invariants from spec.md §3: pair non-empty, price
// positive, quantity non-negative, timestamp within the clock-skew window.
func (t Trade) Validate(now time.Time) error {
	if t.Pair == "" {
		return newValidationError("Trade", "pair", "must not be empty", nil)
	}
	if !t.Price.IsPositive() {
		return newValidationError("Trade", "price", "must be > 0", map[string]any{"price": t.Price.String()})
	}
	if t.Quantity.IsNegative() {
		return newValidationError("Trade", "quantity", "must be >= 0", map[string]any{"quantity": t.Quantity.String()})
	}
	ts := time.UnixMilli(t.TimestampMs)
	lowerBound := now.Add(-MaxTradeAge)
	upperBound := now.Add(ClockSkewTolerance)
	if ts.Before(lowerBound) || ts.After(upperBound) {
		return newValidationError("Trade", "timestamp_ms", "out of range", map[string]any{
			"timestamp_ms": t.TimestampMs,
			"lower_bound":  lowerBound.UnixMilli(),
			"upper_bound":  upperBound.UnixMilli(),
		})
	}
	return nil
}

// FromRaw constructs a Trade from exchange-native fields and validates it,
// mirroring the original's Trade.from_dict boundary function: errors are
// returned rather than raised, letting the caller decide drop-vs-propagate.
func FromRaw(pair string, price, quantity decimal.Decimal, timestampMs int64, now time.Time) (Trade, error) {
	t := Trade{Pair: pair, Price: price, Quantity: quantity, TimestampMs: timestampMs}
	if err := t.Validate(now); err != nil {
		return Trade{}, err
	}
	return t, nil
}
