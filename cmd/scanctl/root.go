package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gabothefounder/scanscam/internal/config"
	"github.com/Gabothefounder/scanscam/internal/observability/logging"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanctl",
		Short: "Operator tool for the scam message scanner",
		Long: `scanctl runs a message through the analysis pipeline against the
configured model and reports on stored scan events.

Configuration is read from the same environment variables as the API,
with a .env file in the working directory loaded first.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "scanctl", level))
			return nil
		},
	}

	cmd.PersistentFlags().String("log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewEventsCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
