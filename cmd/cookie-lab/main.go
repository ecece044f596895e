package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	matrixPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cookie-lab",
	Short: "cookie-lab audits extension-driven cookie mutations during checkout",
	Long: `cookie-lab drives a browsers x extensions x links job matrix: for each job it
launches the browser with the extension loaded, snapshots cookies around the
operator's checkout action, watches for redirects and new tabs, diffs the
snapshots and appends the results to an xlsx report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&matrixPath, "matrix", "m", "matrix.yaml", "path to the job matrix YAML")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(singleCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
