// Command trades runs the Trades ingestion service (spec.md §4.1): it
// reads raw trades from Kraken (live WebSocket or historical REST
// backfill, selected by TRADES_PROCESSING_MODE) and emits validated
// model.Trade records to the trades Kafka topic, keyed by pair.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"marketpipeline/internal/config"
	"marketpipeline/internal/exchange/kraken"
	"marketpipeline/internal/logging"
	"marketpipeline/internal/metrics"
	"marketpipeline/internal/shutdown"
	"marketpipeline/internal/streaming"
)

// pollInterval paces the driver loop when a source returns no trades
// this round (e.g. the historical source between pagination pages),
// avoiding a busy spin while still reacting quickly to shutdown.
const pollInterval = 200 * time.Millisecond

func main() {
	cfg, err := config.LoadTradesConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "trades: configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trades: logging error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reg := metrics.New("trades", logger)
	_ = reg.Serve(cfg.MetricsAddr)
	defer reg.Stop()

	producer, err := streaming.NewProducer(cfg.KafkaBrokerAddress, cfg.KafkaOutputTopic, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	source, err := newSource(cfg, logger)
	if err != nil {
		// Subscription setup failure is fatal per spec.md §4.1.
		reg.SetExchangeStatus("kraken", false)
		logger.Fatal("failed to start trade source", zap.Error(err))
	}
	reg.SetExchangeStatus("kraken", true)

	run := func(ctx context.Context) error {
		return driveLoop(ctx, source, producer, reg, logger)
	}
	drain := func(ctx context.Context) error {
		reg.SetExchangeStatus("kraken", false)
		if err := source.Close(); err != nil {
			logger.Warn("error closing trade source", zap.Error(err))
		}
		producer.Flush(shutdown.Deadline)
		producer.Close()
		return nil
	}

	if err := shutdown.Run(logger, run, drain); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("trades service exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func newSource(cfg *config.TradesConfig, logger *zap.Logger) (kraken.TradeSource, error) {
	if cfg.Historical() {
		return kraken.NewRESTSource(cfg.ProductIDs, cfg.LastNDays, cfg.RESTRequestsPerSecond, logger), nil
	}
	return kraken.NewWebSocketSource(cfg.ProductIDs, logger)
}

// driveLoop is the single capability driver spec.md §9 calls for: it is
// identical regardless of which TradeSource variant is wired in. It ends
// on context cancellation (live mode runs forever) or when a historical
// source reports IsDone (backfill complete for every configured pair).
func driveLoop(ctx context.Context, source kraken.TradeSource, producer *streaming.Producer, reg *metrics.Registry, logger *zap.Logger) error {
	now := time.Now
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if source.IsDone() {
			logger.Info("trade source finished, stopping ingestion")
			return nil
		}

		trades, err := source.GetTrades(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			reg.SetExchangeStatus("kraken", false)
			return fmt.Errorf("trade source failed: %w", err)
		}

		for _, t := range trades {
			start := time.Now()
			if err := t.Validate(now()); err != nil {
				logger.Debug("dropping invalid trade", zap.String("pair", t.Pair), zap.Error(err))
				reg.RecordDropped("invalid_trade")
				continue
			}
			if err := producer.Produce(t.Pair, t); err != nil {
				logger.Error("failed to produce trade", zap.String("pair", t.Pair), zap.Error(err))
				reg.RecordProduceError("trades")
				continue
			}
			reg.RecordProcessed(t.Pair)
			reg.ObserveLatency(time.Since(start))
			logger.Debug("produced trade", zap.String("pair", t.Pair), zap.Int64("timestamp_ms", t.TimestampMs))
		}

		if len(trades) == 0 {
			select {
			case <-time.After(pollInterval):
			case <-ctx.Done():
				return nil
			}
		}
	}
}
