package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"file-monitor-dashboard/internal/analytics"
	"file-monitor-dashboard/internal/model"
	"file-monitor-dashboard/internal/store"
)

func newEventsCommand(opts *rootOptions) *cobra.Command {
	var filter model.FilterCriteria
	var output string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the current events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			a, err := oneShotApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.client.Events(cmd.Context())
			if err != nil {
				return operatorError(err)
			}
			shown := analytics.Filter(store.SortEvents(events), filter)

			return render(cmd.OutOrStdout(), output, shown, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TIME\tTYPE\tRISK\tSCORE\tHONEYPOT\tPATH\tNOTES")
				for _, event := range shown {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\t%s\t%s\n",
						displayTime(event.Timestamp, a.cfg.DisplayZone),
						event.EventType,
						event.RiskLevel,
						event.RiskScore,
						event.HoneypotTriggered,
						event.Path,
						strings.Join(event.Notes, ","),
					)
				}
				fmt.Fprintf(tw, "\n%d of %d events\n", len(shown), len(events))
			})
		},
	}

	cmd.Flags().BoolVar(&filter.HighRiskOnly, "high-risk", false, "only HIGH risk events")
	cmd.Flags().BoolVar(&filter.HoneypotOnly, "honeypot", false, "only honeypot-triggered events")
	cmd.Flags().StringVar(&filter.Search, "search", "", "case-insensitive path substring")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

func newAnalyticsCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print risk distribution, activity timeline and detected patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			a, err := oneShotApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.client.Events(cmd.Context())
			if err != nil {
				return operatorError(err)
			}
			summary := analytics.Summarize(store.SortEvents(events), a.cfg.DisplayZone)

			return render(cmd.OutOrStdout(), output, summary, func(tw *tabwriter.Writer) {
				dist := summary.Distribution
				fmt.Fprintf(tw, "TOTAL\tLOW\tMEDIUM\tHIGH\tHONEYPOT\n%d\t%d\t%d\t%d\t%d\n\n",
					dist.Total, dist.Low, dist.Medium, dist.High, dist.Honeypot)
				fmt.Fprintln(tw, "MINUTE\tEVENTS")
				for _, bucket := range summary.Timeline {
					fmt.Fprintf(tw, "%s\t%d\n", bucket.Label, bucket.Count)
				}
				fmt.Fprintln(tw, "\nPATTERN\tCOUNT\tSEVERITY")
				for _, pattern := range summary.Patterns {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", pattern.Pattern, pattern.Count, pattern.Severity)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}

// displayTime renders a backend timestamp in loc, or as received when it
// cannot be parsed.
func displayTime(raw string, loc *time.Location) string {
	parsed, ok := model.ParseTimestamp(raw)
	if !ok {
		return raw
	}
	return parsed.In(loc).Format("2006-01-02 15:04:05")
}
