package inference

import (
	"context"
	"fmt"

	"lrt-predictor/internal/domain/entity"
)

type Classifier interface {
	Predict(ctx context.Context, x []float64) (entity.Prediction, error)
}

// Pipeline scales one reading and classifies it. It holds no mutable state
// and is safe for concurrent use.
type Pipeline struct {
	scaler     *Scaler
	classifier Classifier
}

func NewPipeline(scaler *Scaler, classifier Classifier) (*Pipeline, error) {
	if scaler == nil || classifier == nil {
		return nil, fmt.Errorf("%w: pipeline needs both a scaler and a classifier", ErrArtifact)
	}
	if scaler.NumFeatures() != entity.NumFeatures {
		return nil, fmt.Errorf("%w: scaler has %d features, want %d", ErrArtifact, scaler.NumFeatures(), entity.NumFeatures)
	}
	if f, ok := classifier.(*Forest); ok && f.NFeatures != entity.NumFeatures {
		return nil, fmt.Errorf("%w: classifier has %d features, want %d", ErrArtifact, f.NFeatures, entity.NumFeatures)
	}
	return &Pipeline{scaler: scaler, classifier: classifier}, nil
}

func (p *Pipeline) Predict(ctx context.Context, r entity.Reading) (entity.Prediction, error) {
	scaled, err := p.scaler.Transform(r.Vector())
	if err != nil {
		return entity.NoFailure, fmt.Errorf("scale reading: %w", err)
	}
	pred, err := p.classifier.Predict(ctx, scaled)
	if err != nil {
		return entity.NoFailure, fmt.Errorf("classify reading: %w", err)
	}
	return pred, nil
}
