// Command predictions runs the Predictions service (spec.md §4.4): for
// each IndicatorRecord it invokes the configured pluggable model and
// emits a short-horizon Prediction, degrading gracefully (emit nothing,
// log an error) when the model fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketpipeline/internal/config"
	"marketpipeline/internal/logging"
	"marketpipeline/internal/metrics"
	"marketpipeline/internal/model"
	"marketpipeline/internal/predict"
	"marketpipeline/internal/shutdown"
	"marketpipeline/internal/streaming"
)

func main() {
	cfg, err := config.LoadPredictionsConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "predictions: configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "predictions: logging error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	reg := metrics.New("predictions", logger)
	_ = reg.Serve(cfg.MetricsAddr)
	defer reg.Stop()

	registry, err := predict.LoadRegistry(cfg.ModelRegistryPath)
	if err != nil {
		logger.Fatal("failed to load model registry", zap.Error(err))
	}
	m := registry.Resolve(cfg.ModelName, cfg.ModelVersion)

	consumer, err := streaming.NewConsumer(cfg.KafkaBrokerAddress, cfg.KafkaInputTopic, cfg.KafkaConsumerGroup, cfg.Historical(), logger)
	if err != nil {
		logger.Fatal("failed to create kafka consumer", zap.Error(err))
	}
	producer, err := streaming.NewProducer(cfg.KafkaBrokerAddress, cfg.KafkaOutputTopic, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}

	run := func(ctx context.Context) error {
		return driveLoop(ctx, consumer, producer, m, cfg.CandleSeconds, cfg.PredictionHorizonSeconds, reg, logger)
	}
	drain := func(ctx context.Context) error {
		consumer.Close()
		producer.Flush(shutdown.Deadline)
		producer.Close()
		return nil
	}

	if err := shutdown.Run(logger, run, drain); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("predictions service exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// driveLoop consumes IndicatorRecords, filters by candle_seconds, warns
// (never blocks) on missing required fields, and invokes the configured
// model. A model error means "emit nothing for this record, log an
// error" (spec.md §4.4/§7).
func driveLoop(
	ctx context.Context,
	consumer *streaming.Consumer,
	producer *streaming.Producer,
	m predict.Model,
	candleSeconds int,
	horizonSeconds int,
	reg *metrics.Registry,
	logger *zap.Logger,
) error {
	for {
		rec, err := consumer.Poll(ctx)
		if err != nil {
			return err
		}
		start := time.Now()

		var indicatorRecord model.IndicatorRecord
		if err := rec.Decode(&indicatorRecord); err != nil {
			logger.Warn("dropping malformed indicator message", zap.Error(err))
			reg.RecordDropped("malformed")
			_ = consumer.CommitRecord(rec)
			continue
		}

		if indicatorRecord.CandleSeconds != candleSeconds {
			_ = consumer.CommitRecord(rec)
			continue
		}

		warnMissingFields(indicatorRecord, logger)

		output, err := m.Predict(indicatorRecord)
		if err != nil {
			logger.Error("model failed to produce a prediction, emitting nothing",
				zap.String("pair", indicatorRecord.Pair), zap.String("model", m.Name()), zap.Error(err))
			reg.RecordDropped("model_error")
			_ = consumer.CommitRecord(rec)
			continue
		}

		prediction := model.Prediction{
			PredictionID:             uuid.NewString(),
			Pair:                     indicatorRecord.Pair,
			PredictionTimestampMs:    time.Now().UnixMilli(),
			PredictionValue:          output.PredictionValue,
			ConfidenceScore:          output.ConfidenceScore,
			ModelName:                output.ModelName,
			ModelVersion:             output.ModelVersion,
			PredictionHorizonMinutes: horizonSeconds / 60,
			FeaturesUsed:             output.FeaturesUsed,
			InputIndicators:          indicatorRecord,
			SignalStrength:           output.SignalStrength,
			PredictionType:           output.PredictionType,
			SchemaVersion:            model.SchemaVersion,
		}
		if prediction.PredictionHorizonMinutes <= 0 {
			prediction.PredictionHorizonMinutes = 1
		}

		if err := prediction.Validate(); err != nil {
			logger.Warn("emitting prediction that fails validation (graceful degradation)",
				zap.String("pair", prediction.Pair), zap.Error(err))
		}

		if err := producer.Produce(prediction.Pair, prediction); err != nil {
			logger.Error("failed to produce prediction", zap.String("pair", prediction.Pair), zap.Error(err))
			reg.RecordProduceError("predictions")
			continue
		}
		reg.RecordProcessed(prediction.Pair)
		reg.ObserveLatency(time.Since(start))
		logger.Debug("produced prediction",
			zap.String("pair", prediction.Pair),
			zap.String("model", prediction.ModelName),
		)

		if err := consumer.CommitRecord(rec); err != nil {
			logger.Warn("failed to commit offset", zap.String("pair", prediction.Pair), zap.Error(err))
		}
	}
}

// warnMissingFields logs (but never rejects) a record missing the
// fields spec.md §4.4 calls out for warning-only validation.
func warnMissingFields(r model.IndicatorRecord, logger *zap.Logger) {
	if r.Pair == "" {
		logger.Warn("indicator record missing pair")
	}
	if r.Close.IsZero() {
		logger.Warn("indicator record missing close", zap.String("pair", r.Pair))
	}
	if r.WindowStartMs == 0 || r.WindowEndMs == 0 {
		logger.Warn("indicator record missing window bounds", zap.String("pair", r.Pair))
	}
}
