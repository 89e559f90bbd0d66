// Package predict implements the pluggable prediction model contract
// (spec.md §4.4): a Model interface, the default deterministic
// RSI-threshold reference model, and a YAML-backed model registry.
package predict

import "marketpipeline/internal/model"

// Output is what a Model produces for one IndicatorRecord.
type Output struct {
	PredictionValue float64
	ConfidenceScore float64
	ModelName       string
	ModelVersion    string
	SignalStrength  *float64
	PredictionType  model.PredictionType
	FeaturesUsed    []string
}

// Model is the pluggable prediction strategy. Predict returning an error
// means "emit nothing for this record, log an error" (spec.md §4.4).
type Model interface {
	Name() string
	Version() string
	Predict(record model.IndicatorRecord) (Output, error)
}
