// Package cli wires the dashboard into cobra commands.
package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/config"
)

type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

// NewRootCommand builds the dashboard command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	serve := &serveOptions{}

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Live dashboard for the file behavior monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, serve)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	serve.bind(cmd)

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))
	cmd.AddCommand(newAnalyticsCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))

	return cmd
}

// operatorError reduces any failure to the message shown on the dashboard banner.
func operatorError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(backend.ErrorMessage(err))
}
