package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tallied-dev/tallied/internal/model"
	"github.com/tallied-dev/tallied/internal/taxengine"
)

func newComputeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compute <vat|income-tax> <period-key>",
		Short: "Compute a tax return for a closed period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), ".")
			if err != nil {
				return err
			}
			defer app.Close()

			cfg, err := app.taxConfig()
			if err != nil {
				return err
			}
			engine := taxengine.New(app.ledger, app.plan, cfg)

			var ret model.TaxReturn
			switch args[0] {
			case "vat":
				ret, err = engine.ComputeVAT(args[1])
			case "income-tax":
				ret, err = engine.ComputeIncomeTax(args[1])
			default:
				return fmt.Errorf("unknown tax kind %q", args[0])
			}
			if err != nil {
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(ret, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			ids := make([]string, 0, len(ret.Lines))
			for id := range ret.Lines {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Printf("%-30s %s\n", id, ret.Lines[id].StringFixed(2))
			}
			fmt.Printf("checksum: %s\n", ret.Checksum)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the return as JSON")

	return cmd
}
