package inference

import (
	"encoding/json"
	"fmt"
)

// Scaler is a pre-fitted per-feature affine transform, (x - center) / scale.
type Scaler struct {
	FeatureNames []string
	Center       []float64
	Scale        []float64
}

type scalerParams struct {
	FeatureNames []string  `json:"feature_names"`
	Center       []float64 `json:"center"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// ParseScaler decodes a scaler artifact. "mean" is accepted in place of
// "center" since that is what a StandardScaler export calls it.
func ParseScaler(data []byte) (*Scaler, error) {
	var p scalerParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse scaler parameters: %w", err)
	}

	center := p.Center
	if center == nil {
		center = p.Mean
	}

	s := &Scaler{FeatureNames: p.FeatureNames, Center: center, Scale: p.Scale}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scaler) validate() error {
	if len(s.Center) == 0 {
		return fmt.Errorf("scaler has no center parameters")
	}
	if len(s.Scale) != len(s.Center) {
		return fmt.Errorf("scaler center/scale length mismatch: %d vs %d", len(s.Center), len(s.Scale))
	}
	if s.FeatureNames != nil && len(s.FeatureNames) != len(s.Center) {
		return fmt.Errorf("scaler has %d feature names for %d features", len(s.FeatureNames), len(s.Center))
	}
	return nil
}

func (s *Scaler) NumFeatures() int {
	return len(s.Center)
}

// Transform returns a new scaled vector; x is not modified.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Center) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Center), len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Center[i]) / scale
	}
	return out, nil
}
