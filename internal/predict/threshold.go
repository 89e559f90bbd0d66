package predict

import "marketpipeline/internal/model"

// Threshold constants for the default reference model, translated from
// the original's predictions/utils/constants.py.
const (
	RSIOversold          = 30.0
	RSIOverbought        = 70.0
	OversoldMultiplier   = 1.02
	OverboughtMultiplier = 0.98
	ThresholdConfidence  = 0.7
	NeutralConfidence    = 0.5
	OversoldSignal       = 0.5
	OverboughtSignal     = -0.5
	NeutralSignal        = 0.0

	DefaultRSI14 = 50.0
)

// RSIThresholdModel is the deterministic placeholder model spec.md §4.4
// describes: a threshold policy on rsi_14.
type RSIThresholdModel struct {
	name, version string
}

// NewRSIThresholdModel builds the default reference model with the given
// registry-assigned name/version (falls back to "rsi_threshold"/"v1" when
// empty, matching MODEL_NAME/MODEL_VERSION defaults, spec.md §6).
func NewRSIThresholdModel(name, version string) *RSIThresholdModel {
	if name == "" {
		name = "rsi_threshold"
	}
	if version == "" {
		version = "v1"
	}
	return &RSIThresholdModel{name: name, version: version}
}

func (m *RSIThresholdModel) Name() string    { return m.name }
func (m *RSIThresholdModel) Version() string { return m.version }

// Predict applies the threshold policy from spec.md §4.4:
//
//	rsi_14 < 30: prediction_value = close*1.02, confidence 0.7, signal +0.5
//	rsi_14 > 70: prediction_value = close*0.98, confidence 0.7, signal -0.5
//	else:        prediction_value = close,      confidence 0.5, signal 0
//
// Missing rsi_14 defaults to 50.0, matching the original's dummy_model_prediction.
func (m *RSIThresholdModel) Predict(record model.IndicatorRecord) (Output, error) {
	return predictWithThresholds(record, ManifestEntry{
		Name:                 m.name,
		Version:              m.version,
		RSIOversold:          RSIOversold,
		RSIOverbought:        RSIOverbought,
		OversoldMultiplier:   OversoldMultiplier,
		OverboughtMultiplier: OverboughtMultiplier,
		ThresholdConfidence:  ThresholdConfidence,
		NeutralConfidence:    NeutralConfidence,
	})
}

// predictWithThresholds is the threshold policy shared by the compiled-in
// default model and any manifest-tuned variant resolved from the model
// registry: only the threshold/multiplier/confidence parameters vary.
func predictWithThresholds(record model.IndicatorRecord, params ManifestEntry) (Output, error) {
	rsi14 := DefaultRSI14
	if v := record.RSI[14]; v != nil {
		rsi14 = *v
	}
	closePrice, _ := record.Close.Float64()

	var value, confidence, signal float64
	switch {
	case rsi14 < params.RSIOversold:
		value = closePrice * params.OversoldMultiplier
		confidence = params.ThresholdConfidence
		signal = OversoldSignal
	case rsi14 > params.RSIOverbought:
		value = closePrice * params.OverboughtMultiplier
		confidence = params.ThresholdConfidence
		signal = OverboughtSignal
	default:
		value = closePrice
		confidence = params.NeutralConfidence
		signal = NeutralSignal
	}

	return Output{
		PredictionValue: value,
		ConfidenceScore: confidence,
		ModelName:       params.Name,
		ModelVersion:    params.Version,
		SignalStrength:  &signal,
		PredictionType:  model.PredictionTypePriceTarget,
		FeaturesUsed:    []string{"rsi_14", "close"},
	}, nil
}
