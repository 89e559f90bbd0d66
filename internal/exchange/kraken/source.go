// Package kraken implements the Trades ingestion capability spec.md §4.1
// describes: a single `{get_trades, is_done}` interface with two
// concrete sources (live WebSocket subscription, historical REST
// backfill) sharing one driver loop, per the Design Notes' "duck-typed
// source" re-architecture note.
package kraken

import (
	"context"

	"marketpipeline/internal/model"
)

// TradeSource is the capability both ingestion variants implement. The
// driver loop in cmd/trades is identical regardless of which is wired in.
type TradeSource interface {
	// GetTrades returns the next batch of trades, or an empty slice if
	// none are currently available. A non-nil error signals a
	// control-plane failure (subscription lost); transient/malformed
	// conditions are handled internally per spec.md §7 and never surface
	// here.
	GetTrades(ctx context.Context) ([]model.Trade, error)
	// IsDone reports whether this source has exhausted its work
	// (historical backfill only; live sources never finish).
	IsDone() bool
	// Close releases the source's underlying connection/resources.
	Close() error
}

var _ TradeSource = (*WebSocketSource)(nil)
var _ TradeSource = (*RESTSource)(nil)
