package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/beekhof/calendar-hub/internal/app"

	"github.com/spf13/cobra"
)

func newAccountsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the accounts known to the account service",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.New(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			m.LoadClient(cmd.Context())
			m.LoadAccounts(cmd.Context())

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tACCOUNT")
			for _, a := range m.Accounts() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Provider, a.Label())
			}
			return tw.Flush()
		},
	}
}
