// Package checkpoint layers an optional Redis warm-start cache on top of
// the technical-indicators service's topic-replay recovery (SPEC_FULL.md
// §3), adapted from the teacher's RedisPublisher
// (internal/publisher/redis.go): same client, health check and structured
// logging, repurposed from a pub/sub fan-out into a buffer snapshot store.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketpipeline/internal/model"
)

// BufferTTL bounds how long a snapshot is trusted as a warm-start hint
// before it is considered too stale to bother with.
const BufferTTL = 24 * time.Hour

// Store snapshots and restores per-pair candle buffers in Redis.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStore builds a Redis client for addr ("host:port"). An empty addr is
// not special-cased here (go-redis then uses its own localhost default);
// the cache stays disabled only when the caller skips constructing a Store.
func NewStore(addr string, logger *zap.Logger) *Store {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Store{client: client, logger: logger}
}

func bufferKey(pair string) string {
	return fmt.Sprintf("indicators:buffer:%s", pair)
}

// Save snapshots a pair's buffer to Redis, best-effort: failures are
// logged and swallowed, since this is an optimization layered on top of
// replay, never the system of record.
func (s *Store) Save(ctx context.Context, pair string, candles []model.Candle) {
	payload, err := json.Marshal(candles)
	if err != nil {
		s.logger.Warn("failed to encode buffer snapshot", zap.String("pair", pair), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, bufferKey(pair), payload, BufferTTL).Err(); err != nil {
		s.logger.Warn("failed to save buffer snapshot to redis", zap.String("pair", pair), zap.Error(err))
	}
}

// Load returns a pair's cached buffer, if present and still decodable.
// Callers MUST still validate the result against the incoming candle
// stream's window_start_ms rather than trusting it blindly (SPEC_FULL.md
// §3): a warm-start hint, not an authoritative checkpoint.
func (s *Store) Load(ctx context.Context, pair string) ([]model.Candle, bool) {
	payload, err := s.client.Get(ctx, bufferKey(pair)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("failed to load buffer snapshot from redis", zap.String("pair", pair), zap.Error(err))
		}
		return nil, false
	}
	var candles []model.Candle
	if err := json.Unmarshal(payload, &candles); err != nil {
		s.logger.Warn("failed to decode buffer snapshot", zap.String("pair", pair), zap.Error(err))
		return nil, false
	}
	return candles, true
}

// FilterStale drops any cached candle whose window is not strictly older
// than firstLiveWindowStartMs, the window_start_ms of the first candle
// observed on the live topic after restart. This is the validation step
// SPEC_FULL.md §3 requires before trusting a warm-start snapshot.
func FilterStale(candles []model.Candle, firstLiveWindowStartMs int64) []model.Candle {
	out := candles[:0:0]
	for _, c := range candles {
		if c.WindowStartMs < firstLiveWindowStartMs {
			out = append(out, c)
		}
	}
	return out
}

// Health reports whether the Redis connection is usable.
func (s *Store) Health(ctx context.Context) bool {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("redis health check failed", zap.Error(err))
		return false
	}
	return true
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
