package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrt-predictor/internal/domain/entity"
)

func useTestArtifacts(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CLASSIFIER_BACKEND", "random_forest")
	t.Setenv("HISTORY_STORE", "memory")
	t.Setenv("RATE_LIMIT", "0")
	t.Setenv("S3_HOST", "")
	t.Setenv("SCALER_PATH", "../inference/testdata/scaler.json")
	t.Setenv("MODEL_PATH", "../inference/testdata/forest.json")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	predictInput = entity.RawReading{}
	configPath = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPredictCommand(t *testing.T) {
	useTestArtifacts(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			"no failure",
			[]string{"--air-temp", "300.5", "--process-temp", "310.2", "--rotation-speed", "1500", "--torque", "40", "--tool-wear", "10"},
			"NO FAILURE\nFailure: No\n",
		},
		{
			"failure",
			[]string{"--air-temp", "303", "--process-temp", "312", "--rotation-speed", "1300", "--torque", "70", "--tool-wear", "220"},
			"FAILURE DETECTED\nFailure: Yes\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"predict"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPredictCommandRejectsBadInput(t *testing.T) {
	useTestArtifacts(t)

	out, errOut, err := run(t, "predict", "--air-temp", "", "--process-temp", "310.2", "--rotation-speed", "fast", "--torque", "40", "--tool-wear", "10")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Air temperature [K]: required")
	assert.Contains(t, errOut, "Rotational speed [rpm]: must be a number")
}

func TestPredictCommandMissingArtifact(t *testing.T) {
	useTestArtifacts(t)
	t.Setenv("MODEL_PATH", "../inference/testdata/missing.json")

	_, _, err := run(t, "predict", "--air-temp", "300", "--process-temp", "310", "--rotation-speed", "1500", "--torque", "40", "--tool-wear", "10")
	assert.ErrorContains(t, err, "artifact")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lrt-predictor version dev")
}
