package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lrt-predictor/internal/config"
	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/internal/domain/usecase"
)

var predictInput entity.RawReading

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict failure for a single reading",
	Long: `Validate one reading given as flags, run it through the configured scaler
and classifier and print the result. Artifacts are resolved from the same
configuration as the serve command.`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictInput.AirTemp, "air-temp", "", "Air temperature [K]")
	predictCmd.Flags().StringVar(&predictInput.ProcessTemp, "process-temp", "", "Process temperature [K]")
	predictCmd.Flags().StringVar(&predictInput.RotationSpeed, "rotation-speed", "", "Rotational speed [rpm]")
	predictCmd.Flags().StringVar(&predictInput.Torque, "torque", "", "Torque [Nm]")
	predictCmd.Flags().StringVar(&predictInput.ToolWear, "tool-wear", "", "Tool wear [min]")
}

func runPredict(cmd *cobra.Command, args []string) error {
	reading, err := usecase.Validate(predictInput)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Label, f.Message)
			}
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	s3Repo, err := newS3Repo(cfg)
	if err != nil {
		return err
	}
	pipeline, err := loadPipeline(cmd.Context(), cfg, s3Repo)
	if err != nil {
		return err
	}

	prediction, err := pipeline.Predict(cmd.Context(), reading)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), prediction.Message())
	fmt.Fprintf(cmd.OutOrStdout(), "Failure: %s\n", prediction.Label())
	return nil
}
