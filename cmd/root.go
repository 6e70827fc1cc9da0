package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string // Log verbosity level, shared by every subcommand

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "forestc",
	Short: "Compile performance samples into a C++ tree-ensemble model",
	Long: "forestc aggregates benchmark samples per argument signature, trains a regression " +
		"tree ensemble on them and emits the ensemble as C++ sources plus a CMakeLists.txt.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
