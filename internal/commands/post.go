package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/model"
)

func newPostCommand() *cobra.Command {
	var date, description string
	var debits, credits []string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a balanced transaction to the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			ts, err := time.Parse("2006-01-02", date)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", date, err)
			}

			var postings []model.Posting
			for _, spec := range debits {
				p, err := parsePosting(spec, model.SideDebit)
				if err != nil {
					return err
				}
				postings = append(postings, p)
			}
			for _, spec := range credits {
				p, err := parsePosting(spec, model.SideCredit)
				if err != nil {
					return err
				}
				postings = append(postings, p)
			}

			tx, err := app.ledger.Post(cmd.Context(), model.Transaction{
				Timestamp:   ts,
				Description: description,
				Postings:    postings,
				Currency:    app.cfg.Business.Currency,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Posted %s\n", tx.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "transaction date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("date")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit posting CODE:AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit posting CODE:AMOUNT (repeatable)")

	return cmd
}

// parsePosting parses "1010:1200.00" into a posting on the given side.
func parsePosting(spec string, side model.Side) (model.Posting, error) {
	code, amount, ok := strings.Cut(spec, ":")
	if !ok {
		return model.Posting{}, fmt.Errorf("invalid posting %q, want CODE:AMOUNT", spec)
	}
	minor, err := parseAmount(amount)
	if err != nil {
		return model.Posting{}, err
	}
	return model.Posting{AccountCode: code, Amount: minor, Side: side}, nil
}

func newVoidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "void <transaction-id>",
		Short: "Void a posted transaction with an automatic reversal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid transaction ID %q: %w", args[0], err)
			}

			reversal, err := app.ledger.Void(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("Voided %s, reversal %s\n", id, reversal.ID)
			return nil
		},
	}
}

func newBalanceCommand() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance <account-code>",
		Short: "Show an account balance as of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			date := time.Now()
			if asOf != "" {
				date, err = time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", asOf, err)
				}
			}

			acct, err := app.plan.Get(args[0])
			if err != nil {
				return err
			}

			minor := app.ledger.BalanceAsOf(acct, date)
			fmt.Printf("%s %s: %s %s\n", acct.Code, acct.Name,
				decimal.New(minor, -2).StringFixed(2), app.cfg.Business.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date YYYY-MM-DD (default today)")

	return cmd
}
