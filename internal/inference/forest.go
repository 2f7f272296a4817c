package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"lrt-predictor/internal/domain/entity"
)

const leaf = -1

// Tree holds the node arrays of one fitted decision tree, in the layout
// scikit-learn exposes on tree_.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a random forest classifier. The prediction is the class with
// the highest mean leaf probability across trees.
type Forest struct {
	Type      string `json:"type"`
	Classes   []int  `json:"classes"`
	NFeatures int    `json:"n_features"`
	Trees     []Tree `json:"trees"`
}

func ParseForest(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse classifier: %w", err)
	}
	if f.Type != "" && f.Type != BackendRandomForest {
		return nil, fmt.Errorf("unsupported classifier type %q", f.Type)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if len(f.Classes) != 2 || f.Classes[0] != 0 || f.Classes[1] != 1 {
		return fmt.Errorf("classifier classes must be [0 1], got %v", f.Classes)
	}
	if f.NFeatures <= 0 {
		return fmt.Errorf("classifier n_features must be positive")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("classifier has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NFeatures, len(f.Classes)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *Tree) validate(nFeatures, nClasses int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have different lengths")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			if r != leaf {
				return fmt.Errorf("node %d has only one child", i)
			}
			if len(t.Value[i]) != nClasses {
				return fmt.Errorf("leaf %d has %d class values, want %d", i, len(t.Value[i]), nClasses)
			}
			continue
		}
		// Children always come after their parent, so a walk cannot loop.
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has out of range children %d/%d", i, l, r)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, t.Feature[i])
		}
	}
	return nil
}

// leafProba walks the tree and returns the normalized class distribution at
// the reached leaf.
func (t *Tree) leafProba(x []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		// Trees are fit on float32 inputs.
		if float64(float32(x[t.Feature[node]])) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	counts := t.Value[node]
	var total float64
	for _, c := range counts {
		total += c
	}
	proba := make([]float64, len(counts))
	if total == 0 {
		return proba
	}
	for i, c := range counts {
		proba[i] = c / total
	}
	return proba
}

// Proba returns the mean class probabilities for x.
func (f *Forest) Proba(x []float64) ([]float64, error) {
	if len(x) != f.NFeatures {
		return nil, fmt.Errorf("classifier expects %d features, got %d", f.NFeatures, len(x))
	}

	mean := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for c, p := range f.Trees[i].leafProba(x) {
			mean[c] += p
		}
	}
	for c := range mean {
		mean[c] /= float64(len(f.Trees))
	}
	return mean, nil
}

func (f *Forest) Predict(_ context.Context, x []float64) (entity.Prediction, error) {
	proba, err := f.Proba(x)
	if err != nil {
		return entity.NoFailure, err
	}

	// First maximum wins, so ties go to the lower class.
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return entity.PredictionFromClass(f.Classes[best])
}
