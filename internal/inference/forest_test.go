package inference

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrt-predictor/internal/domain/entity"
)

func loadTestForest(t *testing.T) *Forest {
	t.Helper()
	data, err := os.ReadFile("testdata/forest.json")
	require.NoError(t, err)
	f, err := ParseForest(data)
	require.NoError(t, err)
	return f
}

func stump(left, right []float64) Tree {
	return Tree{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Feature:       []int{0, -2, -2},
		Threshold:     []float64{0, -2, -2},
		Value:         [][]float64{{1, 1}, left, right},
	}
}

func TestForestPredict(t *testing.T) {
	f := loadTestForest(t)

	tests := []struct {
		name string
		x    []float64
		want entity.Prediction
		prob []float64
	}{
		{"both trees say no", []float64{0, 0, 0, 0, -1.5}, entity.NoFailure, []float64{0.9, 0.1}},
		{"both trees say yes", []float64{0, 0, 0, 3, 2}, entity.Failure, []float64{0.05, 0.95}},
		{"trees disagree", []float64{0, 0, 0, 2, 0}, entity.Failure, []float64{0.45, 0.55}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proba, err := f.Proba(tt.x)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.prob, proba, 1e-12)

			got, err := f.Predict(context.Background(), tt.x)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForestThresholdIsInclusive(t *testing.T) {
	f := &Forest{
		Classes:   []int{0, 1},
		NFeatures: 1,
		Trees:     []Tree{stump([]float64{1, 0}, []float64{0, 1})},
	}

	got, err := f.Predict(context.Background(), []float64{0})
	require.NoError(t, err)
	assert.Equal(t, entity.NoFailure, got)

	got, err = f.Predict(context.Background(), []float64{1e-3})
	require.NoError(t, err)
	assert.Equal(t, entity.Failure, got)
}

func TestForestTieGoesToLowerClass(t *testing.T) {
	f := &Forest{
		Classes:   []int{0, 1},
		NFeatures: 1,
		Trees: []Tree{
			stump([]float64{1, 0}, []float64{1, 0}),
			stump([]float64{0, 1}, []float64{0, 1}),
		},
	}

	got, err := f.Predict(context.Background(), []float64{5})
	require.NoError(t, err)
	assert.Equal(t, entity.NoFailure, got)
}

func TestForestWrongFeatureCount(t *testing.T) {
	f := loadTestForest(t)
	_, err := f.Predict(context.Background(), []float64{1, 2})
	assert.ErrorContains(t, err, "expects 5 features")
}

func TestParseForestRejects(t *testing.T) {
	multi, err := os.ReadFile("testdata/forest_multiclass.json")
	require.NoError(t, err)

	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"multiclass", string(multi), "classes must be [0 1]"},
		{"swapped classes", `{"classes":[1,0],"n_features":1,"trees":[]}`, "classes must be [0 1]"},
		{"unknown type", `{"type":"svm","classes":[0,1]}`, "unsupported classifier type"},
		{"no trees", `{"classes":[0,1],"n_features":1,"trees":[]}`, "no trees"},
		{"zero features", `{"classes":[0,1],"n_features":0,"trees":[]}`, "n_features"},
		{
			"ragged arrays",
			`{"classes":[0,1],"n_features":1,"trees":[{"children_left":[-1],"children_right":[],"feature":[-2],"threshold":[0],"value":[[1,0]]}]}`,
			"different lengths",
		},
		{
			"backward child",
			`{"classes":[0,1],"n_features":1,"trees":[{"children_left":[0,-1],"children_right":[1,-1],"feature":[0,-2],"threshold":[0,0],"value":[[1,1],[1,0]]}]}`,
			"out of range children",
		},
		{
			"bad split feature",
			`{"classes":[0,1],"n_features":1,"trees":[{"children_left":[1,-1,-1],"children_right":[2,-1,-1],"feature":[3,-2,-2],"threshold":[0,0,0],"value":[[1,1],[1,0],[0,1]]}]}`,
			"splits on feature 3",
		},
		{
			"short leaf value",
			`{"classes":[0,1],"n_features":1,"trees":[{"children_left":[-1],"children_right":[-1],"feature":[-2],"threshold":[0],"value":[[1]]}]}`,
			"class values",
		},
		{"not json", `{`, "failed to parse classifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseForest([]byte(tt.data))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}
