package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/accountplan"
	"github.com/tallied-dev/tallied/internal/config"
	"github.com/tallied-dev/tallied/internal/store/sqlite"
)

func newInitCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new books directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), absDir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(ctx context.Context, dir, name string) error {
	cfg := config.Default(name)
	if err := config.Save(filepath.Join(dir, configFile), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	st, err := sqlite.New(filepath.Join(dir, cfg.Data.Path))
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer st.Close()

	plan, err := accountplan.NewService(ctx, st)
	if err != nil {
		return fmt.Errorf("opening chart of accounts: %w", err)
	}
	for _, a := range accountplan.DefaultChart() {
		if err := plan.Create(ctx, a); err != nil {
			return fmt.Errorf("seeding chart of accounts: %w", err)
		}
	}

	fmt.Printf("Initialized %s in %s\n", name, dir)
	return nil
}
