package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lrt-predictor",
	Short: "Predictive maintenance service for light rail transit components",
	Long: `lrt-predictor serves a form that collects five sensor readings, predicts
mechanical failure with a pre-trained classifier and keeps a per-session
history of predictions that can be exported as CSV.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (default: $CONFIG_FILE)")
}
