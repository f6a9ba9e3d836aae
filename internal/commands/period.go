package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/periodkey"
)

func newPeriodCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Manage tax periods",
	}
	cmd.AddCommand(newPeriodCreateCommand())
	cmd.AddCommand(newPeriodTransitionCommand("close", "Close a period, freezing its transactions"))
	cmd.AddCommand(newPeriodTransitionCommand("reopen", "Reopen a closed period for recomputation"))
	cmd.AddCommand(newPeriodListCommand())
	return cmd
}

func newPeriodCreateCommand() *cobra.Command {
	var kind, start, end string

	cmd := &cobra.Command{
		Use:   "create <key>",
		Short: "Create an open period",
		Long: "Create an open period. For standard keys like 2025-Q1 (VAT) or " +
			"2024-25 (income tax) the date window is derived from the key; " +
			"--start/--end override it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			startDate, endDate, err := periodWindow(args[0], model.TaxKind(kind), start, end)
			if err != nil {
				return err
			}

			// Periods cover whole days; the end date is inclusive.
			return app.ledger.CreatePeriod(cmd.Context(), model.Period{
				Key:   args[0],
				Kind:  model.TaxKind(kind),
				Start: startDate,
				End:   endDate.Add(24*time.Hour - time.Nanosecond),
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.TaxKindVAT), "vat|income-tax")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (default: derived from key)")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD inclusive (default: derived from key)")

	return cmd
}

// periodWindow resolves the period's date window from explicit flags, or
// from the key itself for standard quarter and tax-year keys.
func periodWindow(key string, kind model.TaxKind, start, end string) (time.Time, time.Time, error) {
	if start != "" || end != "" {
		if start == "" || end == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--start and --end must be given together")
		}
		startDate, err := time.Parse("2006-01-02", start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		endDate, err := time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		return startDate, endDate, nil
	}

	switch kind {
	case model.TaxKindVAT:
		year, quarter, err := periodkey.ParseQuarter(key)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("cannot derive dates from key: %w", err)
		}
		startDate := time.Date(year, time.Month(3*quarter-2), 1, 0, 0, 0, 0, time.UTC)
		return startDate, startDate.AddDate(0, 3, -1), nil
	case model.TaxKindIncomeTax:
		year, err := periodkey.ParseTaxYear(key)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("cannot derive dates from key: %w", err)
		}
		startDate := time.Date(year, time.April, 6, 0, 0, 0, 0, time.UTC)
		return startDate, startDate.AddDate(1, 0, -1), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown tax kind %q", kind)
	}
}

func newPeriodTransitionCommand(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <key>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			if verb == "close" {
				return app.ledger.ClosePeriod(cmd.Context(), args[0])
			}
			return app.ledger.ReopenPeriod(cmd.Context(), args[0])
		},
	}
}

func newPeriodListCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			for _, p := range app.ledger.Periods(model.TaxKind(kind)) {
				fmt.Printf("%-10s %-10s %s to %s  %s\n", p.Key, p.Kind,
					p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), p.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.TaxKindVAT), "vat|income-tax")

	return cmd
}
