package predict

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"marketpipeline/internal/model"
)

// ManifestEntry describes one operator-tunable model variant in the
// models.yaml registry (SPEC_FULL.md §3), letting the RSI thresholds and
// multipliers be tuned without a rebuild.
type ManifestEntry struct {
	Name                 string  `yaml:"name"`
	Version              string  `yaml:"version"`
	RSIOversold          float64 `yaml:"rsi_oversold"`
	RSIOverbought        float64 `yaml:"rsi_overbought"`
	OversoldMultiplier   float64 `yaml:"oversold_multiplier"`
	OverboughtMultiplier float64 `yaml:"overbought_multiplier"`
	ThresholdConfidence  float64 `yaml:"threshold_confidence"`
	NeutralConfidence    float64 `yaml:"neutral_confidence"`
}

type manifest struct {
	Models []ManifestEntry `yaml:"models"`
}

// Registry resolves a (name, version) pair to a Model, falling back to
// the compiled-in default when no manifest is configured or the pair is
// absent from it (spec.md §4.4's "pluggable model, default placeholder").
type Registry struct {
	entries map[string]ManifestEntry
}

// LoadRegistry reads a models.yaml manifest from path. An empty path
// yields an empty registry (Resolve always falls back to the default).
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{entries: make(map[string]ManifestEntry)}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model registry %s: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing model registry %s: %w", path, err)
	}
	for _, e := range m.Models {
		r.entries[registryKey(e.Name, e.Version)] = e
	}
	return r, nil
}

func registryKey(name, version string) string {
	return name + "@" + version
}

// Resolve returns the Model for (name, version), or the compiled-in
// RSIThresholdModel default if the manifest has no matching entry.
func (r *Registry) Resolve(name, version string) Model {
	entry, ok := r.entries[registryKey(name, version)]
	if !ok {
		return NewRSIThresholdModel(name, version)
	}
	return &tunedThresholdModel{entry: entry}
}

// tunedThresholdModel applies the same policy as RSIThresholdModel but
// with manifest-supplied thresholds instead of the compiled-in defaults.
type tunedThresholdModel struct {
	entry ManifestEntry
}

func (m *tunedThresholdModel) Name() string    { return m.entry.Name }
func (m *tunedThresholdModel) Version() string { return m.entry.Version }

func (m *tunedThresholdModel) Predict(record model.IndicatorRecord) (Output, error) {
	return predictWithThresholds(record, m.entry)
}
