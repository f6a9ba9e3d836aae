package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/authority"
	"github.com/tallied-dev/tallied/internal/obligations"
)

func newObligationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "obligations",
		Short: "Track submission obligations",
	}
	cmd.AddCommand(newObligationsListCommand())
	cmd.AddCommand(newObligationsSyncCommand())
	return cmd
}

func newObligationsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open obligations due now, earliest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			tracker, err := obligations.NewTracker(cmd.Context(), app.store)
			if err != nil {
				return err
			}

			for _, o := range tracker.ListOpen(time.Now()) {
				fmt.Printf("%-10s due %s  %s to %s\n", o.PeriodKey,
					o.Due.Format("2006-01-02"),
					o.Start.Format("2006-01-02"), o.End.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func newObligationsSyncCommand() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh obligations from the authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			fromDate, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("invalid from date %q: %w", from, err)
			}
			toDate, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("invalid to date %q: %w", to, err)
			}

			tracker, err := obligations.NewTracker(cmd.Context(), app.store)
			if err != nil {
				return err
			}

			client := authority.New(app.cfg.HMRC.Endpoint, app.session(), nil)
			remote, err := client.Obligations(cmd.Context(), app.cfg.HMRC.VRN, fromDate, toDate, "")
			if err != nil {
				return err
			}

			if err := tracker.SyncFromAuthority(cmd.Context(), remote); err != nil {
				return err
			}

			fmt.Printf("Synced %d obligations\n", len(remote))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "window start YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&to, "to", "", "window end YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
