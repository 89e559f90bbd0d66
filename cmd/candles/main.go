// Command candles runs the Candles windowed-aggregation service
// (spec.md §4.2): it consumes trades, folds each into a tumbling
// per-pair window bucket, and emits a "current" OHLCV snapshot after
// every update to the candles Kafka topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"marketpipeline/internal/config"
	"marketpipeline/internal/logging"
	"marketpipeline/internal/metrics"
	"marketpipeline/internal/model"
	"marketpipeline/internal/shutdown"
	"marketpipeline/internal/streaming"
	"marketpipeline/internal/windower"
)

func main() {
	cfg, err := config.LoadCandlesConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "candles: configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "candles: logging error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reg := metrics.New("candles", logger)
	_ = reg.Serve(cfg.MetricsAddr)
	defer reg.Stop()

	consumer, err := streaming.NewConsumer(cfg.KafkaBrokerAddress, cfg.KafkaInputTopic, cfg.KafkaConsumerGroup, cfg.Historical(), logger)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", zap.Error(err))
	}
	producer, err := streaming.NewProducer(cfg.KafkaBrokerAddress, cfg.KafkaOutputTopic, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	agg := windower.NewAggregator(cfg.CandleSeconds, logger)

	run := func(ctx context.Context) error {
		return driveLoop(ctx, consumer, producer, agg, reg, logger, cfg.KafkaOutputTopic)
	}
	drain := func(ctx context.Context) error {
		consumer.Close()
		producer.Flush(shutdown.Deadline)
		producer.Close()
		return nil
	}

	if err := shutdown.Run(logger, run, drain); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("candles service exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// driveLoop is the consume-transform-produce loop shared shape (spec.md
// §5): each record is folded into the aggregator, validated (graceful
// degradation: a failed validation is logged but never blocks emission),
// produced, and its offset committed only after the produce succeeds.
func driveLoop(ctx context.Context, consumer *streaming.Consumer, producer *streaming.Producer, agg *windower.Aggregator, reg *metrics.Registry, logger *zap.Logger, outputTopic string) error {
	for {
		rec, err := consumer.Poll(ctx)
		if err != nil {
			return err
		}
		start := time.Now()

		var trade model.Trade
		if err := rec.Decode(&trade); err != nil {
			logger.Warn("dropping malformed trade message", zap.Error(err))
			reg.RecordDropped("malformed")
			if cerr := consumer.CommitRecord(rec); cerr != nil {
				logger.Warn("failed to commit offset for dropped record", zap.Error(cerr))
			}
			continue
		}

		candle, ok := agg.Update(trade)
		if !ok {
			reg.RecordDropped("late_window")
			if cerr := consumer.CommitRecord(rec); cerr != nil {
				logger.Warn("failed to commit offset for late trade", zap.Error(cerr))
			}
			continue
		}

		if err := candle.Validate(); err != nil {
			logger.Warn("emitting candle that fails validation (graceful degradation)",
				zap.String("pair", candle.Pair), zap.Error(err))
		}

		if err := producer.Produce(candle.Pair, candle); err != nil {
			logger.Error("failed to produce candle", zap.String("pair", candle.Pair), zap.Error(err))
			reg.RecordProduceError(outputTopic)
			continue
		}
		reg.RecordProcessed(candle.Pair)
		reg.ObserveLatency(time.Since(start))
		logger.Debug("produced candle",
			zap.String("pair", candle.Pair),
			zap.Int64("window_start_ms", candle.WindowStartMs),
		)

		if err := consumer.CommitRecord(rec); err != nil {
			logger.Warn("failed to commit offset", zap.String("pair", candle.Pair), zap.Error(err))
		}
	}
}
