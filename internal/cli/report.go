package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"file-monitor-dashboard/internal/backend"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var pdf, excel bool
	var outDir, output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the behavior report or download it as PDF/Excel",
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

			if outDir == "" {
				outDir = a.cfg.ExportDir
			}

			var kinds []backend.ExportKind
			if pdf {
				kinds = append(kinds, backend.ExportPDF)
			}
			if excel {
				kinds = append(kinds, backend.ExportExcel)
			}
			if len(kinds) > 0 {
				for _, kind := range kinds {
					target, err := a.commands.SaveReport(cmd.Context(), kind, outDir)
					if err != nil {
						return operatorError(err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
				}
				return nil
			}

			report, err := a.commands.RefreshReport(cmd.Context())
			if err != nil {
				return operatorError(err)
			}
			return render(cmd.OutOrStdout(), output, report, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Directory\t%s\n", valueOr(report.Directory, "-"))
				fmt.Fprintf(tw, "Generated\t%s\n", displayTime(report.GeneratedAt, a.cfg.DisplayZone))
				fmt.Fprintf(tw, "Monitoring since\t%s\n", displayTime(valueOr(report.MonitoringStartedAt, "-"), a.cfg.DisplayZone))
				fmt.Fprintf(tw, "Total events\t%d\n", report.TotalEvents)
				fmt.Fprintf(tw, "Honeypot triggers\t%d\n", report.HoneypotTriggers)
				fmt.Fprintf(tw, "Risk low/medium/high\t%d/%d/%d\n", report.LowRiskCount, report.MediumRiskCount, report.HighRiskCount)
				for _, pattern := range report.DetectedPatterns {
					fmt.Fprintf(tw, "Pattern\t%s\n", pattern)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&pdf, "pdf", false, "download the PDF report")
	cmd.Flags().BoolVar(&excel, "excel", false, "download the Excel report")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for downloaded reports (default: export.dir)")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}
