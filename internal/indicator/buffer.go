// Package indicator implements the bounded per-pair rolling candle buffer
// and the technical indicators computed over it (spec.md §4.3).
package indicator

import (
	"sync"

	"marketpipeline/internal/model"
)

// Buffer holds the last N candles for one pair, FIFO-evicting the oldest
// once capacity is reached, with last-write-wins dedupe on
// window_start_ms (spec.md §4.3's buffer policy, resolving spec.md §9's
// open question on repeated "current" emissions).
type Buffer struct {
	capacity int

	mu      sync.Mutex
	candles []model.Candle
}

// NewBuffer builds a Buffer with the given capacity
// (MAX_CANDLES_IN_STATE, default 70).
func NewBuffer(capacity int) *Buffer {
	return &Buffer{capacity: capacity}
}

// Append adds candle to the buffer, replacing the most recent entry in
// place if it shares the same window_start_ms (a later "current" snapshot
// of the window already at the tail), otherwise appending and evicting the
// oldest entry if over capacity.
func (b *Buffer) Append(candle model.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.candles); n > 0 && b.candles[n-1].WindowStartMs == candle.WindowStartMs {
		b.candles[n-1] = candle
		return
	}

	b.candles = append(b.candles, candle)
	if len(b.candles) > b.capacity {
		b.candles = b.candles[len(b.candles)-b.capacity:]
	}
}

// Snapshot returns a copy of the buffer's current candles, oldest first.
func (b *Buffer) Snapshot() []model.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Candle, len(b.candles))
	copy(out, b.candles)
	return out
}

// Len reports the current buffer depth.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.candles)
}

// Registry owns one Buffer per pair, created on first use.
type Registry struct {
	capacity int

	mu      sync.Mutex
	buffers map[string]*Buffer
}

// NewRegistry builds a Registry whose buffers all share capacity.
func NewRegistry(capacity int) *Registry {
	return &Registry{capacity: capacity, buffers: make(map[string]*Buffer)}
}

// For returns the Buffer for pair, creating it if necessary.
func (r *Registry) For(pair string) *Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[pair]
	if !ok {
		b = NewBuffer(r.capacity)
		r.buffers[pair] = b
	}
	return b
}

// Restore seeds a pair's buffer directly, used on startup to warm-start
// from a checkpoint or replay (spec.md §5).
func (r *Registry) Restore(pair string, candles []model.Candle) {
	buf := r.For(pair)
	buf.mu.Lock()
	defer buf.mu.Unlock()
	buf.candles = append([]model.Candle(nil), candles...)
	if len(buf.candles) > buf.capacity {
		buf.candles = buf.candles[len(buf.candles)-buf.capacity:]
	}
}
