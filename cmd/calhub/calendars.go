package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/beekhof/calendar-hub/internal/aggregate"
	"github.com/beekhof/calendar-hub/internal/app"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newCalendarsCmd(g *globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "Load and print the calendars of every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "table" && output != "json" {
				return fmt.Errorf("--output must be 'table' or 'json', got '%s'", output)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m, err := app.New(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			loadAndReport(ctx, m, cmd.ErrOrStderr())

			if output == "json" {
				return printJSON(cmd.OutOrStdout(), m.Store().Snapshot())
			}
			return printTable(cmd.OutOrStdout(), m.Store().Snapshot())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

// loadAndReport runs one full load and writes a line per account as it
// resolves.
func loadAndReport(ctx context.Context, m *app.Manager, w io.Writer) {
	for u := range m.LoadAll(ctx) {
		if u.Err != nil {
			fmt.Fprintf(w, "%s: failed: %v\n", u.Account.Label(), u.Err)
			continue
		}
		fmt.Fprintf(w, "%s: %d calendars\n", u.Account.Label(), len(u.Calendars))
	}
}

func printJSON(w io.Writer, entries []aggregate.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calendars: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printTable(w io.Writer, entries []aggregate.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tPROVIDER\tCALENDAR\tACCESS\tCOLOR\tTIMEZONE")
	for _, e := range entries {
		for _, c := range e.Calendars {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.Account.Label(), c.Provider, c.DisplayName(), c.AccessRole, orDash(c.Color), orDash(c.Timezone))
		}
	}
	return tw.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
