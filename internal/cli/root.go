package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/stride/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the stride CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stride",
		Short: "stride - work-stealing job scheduler for per-frame workloads",
		Long:  "stride runs flocking simulation demos and scheduler benchmarks on its work-stealing job system.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(flagLogLevel, flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newDemoCmd(),
		newBenchCmd(),
		newHistoryCmd(),
	)

	return root
}
