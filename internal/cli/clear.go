package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCommand(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every event on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := oneShotApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.commands.ClearEvents(cmd.Context(), yes); err != nil {
				return operatorError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Events cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting all events")
	return cmd
}
