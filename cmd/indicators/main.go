// Command indicators runs the Technical Indicators service (spec.md
// §4.3): it consumes candles, maintains a bounded per-pair rolling
// buffer, recomputes SMA/EMA/RSI/MACD/OBV on every update, emits an
// IndicatorRecord, and mirrors the stream into a RisingWave table via a
// schema-on-write DDL issued at startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"marketpipeline/internal/checkpoint"
	"marketpipeline/internal/config"
	"marketpipeline/internal/indicator"
	"marketpipeline/internal/indicator/sink"
	"marketpipeline/internal/logging"
	"marketpipeline/internal/metrics"
	"marketpipeline/internal/model"
	"marketpipeline/internal/shutdown"
	"marketpipeline/internal/streaming"
)

func main() {
	cfg, err := config.LoadIndicatorsConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "indicators: configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "indicators: logging error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reg := metrics.New("technical_indicators", logger)
	_ = reg.Serve(cfg.MetricsAddr)
	defer reg.Stop()

	ddlCtx, ddlCancel := context.WithTimeout(context.Background(), 10*time.Second)
	ddlErr := sink.EnsureTable(ddlCtx, sink.Config{
		Host:             cfg.RisingwaveHost,
		Port:             cfg.RisingwavePort,
		User:             cfg.RisingwaveUser,
		Password:         cfg.RisingwavePassword,
		Database:         cfg.RisingwaveDatabase,
		TableName:        cfg.TableNameInRisingwave,
		KafkaTopic:       cfg.KafkaOutputTopic,
		KafkaBroker:      cfg.KafkaBrokerAddress,
		IndicatorPeriods: mergedPeriods(cfg),
	}, logger)
	ddlCancel()
	if ddlErr != nil {
		// Sink-store failure is logged and non-fatal (spec.md §4.3/§7):
		// the Kafka emission continues regardless.
		logger.Error("risingwave sink table setup failed, continuing without it", zap.Error(ddlErr))
		reg.RecordSinkWriteError("risingwave")
	}

	consumer, err := streaming.NewConsumer(cfg.KafkaBrokerAddress, cfg.KafkaInputTopic, cfg.KafkaConsumerGroup, cfg.Historical(), logger)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", zap.Error(err))
	}
	producer, err := streaming.NewProducer(cfg.KafkaBrokerAddress, cfg.KafkaOutputTopic, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	buffers := indicator.NewRegistry(cfg.MaxCandlesInState)

	var store *checkpoint.Store
	if cfg.RedisAddress != "" {
		store = checkpoint.NewStore(cfg.RedisAddress, logger)
		healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if !store.Health(healthCtx) {
			logger.Warn("redis warm-start cache is unreachable at startup, buffers will rebuild from topic replay only")
		}
		healthCancel()
	}

	periods := indicator.PeriodConfig{
		SMAPeriods: cfg.SMAPeriods,
		EMAPeriods: cfg.EMAPeriods,
		RSIPeriods: cfg.RSIPeriods,
	}

	run := func(ctx context.Context) error {
		return driveLoop(ctx, consumer, producer, buffers, store, periods, cfg.CandleSeconds, reg, logger)
	}
	drain := func(ctx context.Context) error {
		consumer.Close()
		producer.Flush(shutdown.Deadline)
		producer.Close()
		if store != nil {
			store.Close()
		}
		return nil
	}

	if err := shutdown.Run(logger, run, drain); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("indicators service exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func mergedPeriods(cfg *config.IndicatorsConfig) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, group := range [][]int{cfg.SMAPeriods, cfg.EMAPeriods, cfg.RSIPeriods} {
		for _, p := range group {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out
}

// driveLoop consumes candles, filters out any whose candle_seconds
// doesn't match this deployment's configured width (spec.md §4.3), warm
// starts a pair's buffer from Redis on first sight if configured, and
// emits a recomputed IndicatorRecord on every accepted candle.
func driveLoop(
	ctx context.Context,
	consumer *streaming.Consumer,
	producer *streaming.Producer,
	buffers *indicator.Registry,
	store *checkpoint.Store,
	periods indicator.PeriodConfig,
	candleSeconds int,
	reg *metrics.Registry,
	logger *zap.Logger,
) error {
	warmStarted := make(map[string]bool)

	for {
		rec, err := consumer.Poll(ctx)
		if err != nil {
			return err
		}
		start := time.Now()

		var candle model.Candle
		if err := rec.Decode(&candle); err != nil {
			logger.Warn("dropping malformed candle message", zap.Error(err))
			reg.RecordDropped("malformed")
			_ = consumer.CommitRecord(rec)
			continue
		}

		if candle.CandleSeconds != candleSeconds {
			logger.Debug("filtering out candle with mismatched candle_seconds",
				zap.String("pair", candle.Pair), zap.Int("candle_seconds", candle.CandleSeconds))
			_ = consumer.CommitRecord(rec)
			continue
		}

		buf := buffers.For(candle.Pair)
		if store != nil && !warmStarted[candle.Pair] {
			warmStarted[candle.Pair] = true
			if cached, ok := store.Load(ctx, candle.Pair); ok {
				fresh := checkpoint.FilterStale(cached, candle.WindowStartMs)
				buffers.Restore(candle.Pair, fresh)
				logger.Info("warm-started indicator buffer from redis",
					zap.String("pair", candle.Pair), zap.Int("candles", len(fresh)))
			}
		}

		buf.Append(candle)
		reg.SetBufferDepth(candle.Pair, buf.Len())
		if store != nil {
			store.Save(ctx, candle.Pair, buf.Snapshot())
		}

		record := indicator.Compute(buf.Snapshot(), periods)

		if err := producer.Produce(record.Pair, record); err != nil {
			logger.Error("failed to produce indicator record", zap.String("pair", record.Pair), zap.Error(err))
			reg.RecordProduceError("technical_indicators")
			continue
		}
		reg.RecordProcessed(record.Pair)
		reg.ObserveLatency(time.Since(start))
		logger.Debug("produced indicator record",
			zap.String("pair", record.Pair),
			zap.Int64("window_start_ms", record.WindowStartMs),
		)

		if err := consumer.CommitRecord(rec); err != nil {
			logger.Warn("failed to commit offset", zap.String("pair", record.Pair), zap.Error(err))
		}
	}
}
