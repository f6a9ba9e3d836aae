package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/model"
)

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(newAccountsListCommand())
	cmd.AddCommand(newAccountsAddCommand())
	return cmd
}

func newAccountsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			for _, a := range app.plan.All() {
				fmt.Printf("%-6s %-10s %s\n", a.Code, a.Type, a.Name)
			}
			return nil
		},
	}
}

func newAccountsAddCommand() *cobra.Command {
	var name, acctType, taxLine string

	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			return app.plan.Create(cmd.Context(), model.Account{
				Code:    args[0],
				Name:    name,
				Type:    model.AccountType(acctType),
				TaxLine: taxLine,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&acctType, "type", "", "asset|liability|equity|income|expense (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&taxLine, "tax-line", "", "statutory line tag")

	return cmd
}
