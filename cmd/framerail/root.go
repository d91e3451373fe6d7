package main

import (
	"github.com/spf13/cobra"

	"github.com/ib-77/framerail/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "framerail",
	Short: "Ordered, backpressured camera frame pipelines",
	Long: "framerail chains processing nodes (readers, converters, debayer, writers)\n" +
		"into a concurrent pipeline whose side effects happen in frame order.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat, cmd.ErrOrStderr())
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&rootFlags.logFormat, "log-format", "auto", "text, json or auto (text on a terminal)")

	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(shadersCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.Version = version
}
