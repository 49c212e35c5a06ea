package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Control the backend directory watcher",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <directory>",
		Short: "Start watching a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := oneShotApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.commands.StartWatch(cmd.Context(), args[0])
			if err != nil {
				return operatorError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Message, resp.Directory)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := oneShotApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.commands.StopWatch(cmd.Context()); err != nil {
				return operatorError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show backend health, watcher and honeypot status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := oneShotApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			health, err := a.client.Health(ctx)
			if err != nil {
				return operatorError(err)
			}
			status, err := a.client.WatchStatus(ctx)
			if err != nil {
				return operatorError(err)
			}
			honeypot, err := a.client.HoneypotStatus(ctx)
			if err != nil {
				return operatorError(err)
			}

			fmt.Fprintf(out, "backend:   %s (%s)\n", health.Status, health.Service)
			fmt.Fprintf(out, "running:   %t\n", status.Running)
			fmt.Fprintf(out, "directory: %s\n", valueOr(status.Directory, "-"))
			fmt.Fprintf(out, "started:   %s\n", displayTime(valueOr(status.StartedAt, "-"), a.cfg.DisplayZone))
			fmt.Fprintf(out, "processed: %d\n", status.TotalEventsProcessed)
			fmt.Fprintf(out, "honeypot:  enabled=%t folder=%s deployed=%d\n",
				honeypot.Enabled, valueOr(honeypot.TrapFolderName, ".sys_trap"), honeypot.DeployedCount)
			for _, path := range honeypot.DeployedPaths {
				fmt.Fprintf(out, "  %s\n", path)
			}
			return nil
		},
	})

	return cmd
}

func valueOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}
