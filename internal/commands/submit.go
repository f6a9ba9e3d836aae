package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/authority"
	"github.com/tallied-dev/tallied/internal/ledger"
	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/obligations"
	"github.com/tallied-dev/tallied/internal/submission"
	"github.com/tallied-dev/tallied/internal/taxengine"
)

// pipeline wires the submission stack over the app's store and HMRC
// registration.
func (a *app) pipeline(cmd *cobra.Command) (*submission.Pipeline, *obligations.Tracker, error) {
	tracker, err := obligations.NewTracker(cmd.Context(), a.store)
	if err != nil {
		return nil, nil, err
	}

	session := a.session()
	client := authority.New(a.cfg.HMRC.Endpoint, session, nil)
	return submission.New(a.store, tracker, session, client, a.cfg.HMRC.VRN, slog.Default()), tracker, nil
}

func newSubmitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <period-key>",
		Short: "Compute and submit the VAT return for a closed period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, ".")
			if err != nil {
				return err
			}
			defer app.Close()

			cfg, err := app.taxConfig()
			if err != nil {
				return err
			}
			ret, err := taxengine.New(app.ledger, app.plan, cfg).ComputeVAT(args[0])
			if err != nil {
				return err
			}

			pipeline, _, err := app.pipeline(cmd)
			if err != nil {
				return err
			}

			record, err := pipeline.Submit(ctx, ret)
			if err != nil {
				return err
			}

			// The accepted period is frozen against reopening.
			if err := app.ledger.MarkSubmitted(ctx, args[0]); err != nil &&
				!errors.Is(err, ledger.ErrPeriodState) {
				return err
			}

			fmt.Printf("Accepted, authority reference %s (%d attempts)\n",
				record.AuthorityRef, record.AttemptCount)
			return nil
		},
	}
}

func newResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume submission retries left outstanding by a previous run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			pipeline, _, err := app.pipeline(cmd)
			if err != nil {
				return err
			}
			return pipeline.Resume(cmd.Context())
		},
	}
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <period-key>",
		Short: "Resolve an unknown-outcome submission against the authority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := openApp(ctx, ".")
			if err != nil {
				return err
			}
			defer app.Close()

			pipeline, _, err := app.pipeline(cmd)
			if err != nil {
				return err
			}

			records, err := pipeline.Records(ctx)
			if err != nil {
				return err
			}
			var pending *model.SubmissionRecord
			for i := range records {
				if records[i].PeriodKey == args[0] && records[i].NeedsReconciliation {
					pending = &records[i]
				}
			}
			if pending == nil {
				return fmt.Errorf("no submission for period %s needs reconciliation", args[0])
			}

			resolved, err := pipeline.Reconcile(ctx, *pending)
			if err != nil {
				return err
			}
			if resolved {
				fmt.Printf("Period %s was received by the authority; obligation marked fulfilled\n", args[0])
			} else {
				fmt.Printf("Period %s not found at the authority; safe to resubmit\n", args[0])
			}
			return nil
		},
	}
}
