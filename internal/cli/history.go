package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"file-monitor-dashboard/internal/repository"
)

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	var output string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent operator commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(output); err != nil {
				return err
			}
			db, err := repository.Open(opts.cfg.DBPath)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			records, err := repository.NewCommandRepository(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, records, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TIME\tCOMMAND\tARGUMENT\tOK\tDURATION\tERROR")
				for _, record := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%dms\t%s\n",
						record.CreatedAt.In(opts.cfg.DisplayZone).Format("2006-01-02 15:04:05"),
						record.Command,
						record.Argument,
						record.Success,
						record.DurationMs,
						record.Error,
					)
				}
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of records to show")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}
