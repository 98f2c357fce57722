package main

import (
	"fmt"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/app"
	"github.com/beekhof/calendar-hub/internal/auth"
	"github.com/beekhof/calendar-hub/internal/config"

	"github.com/spf13/cobra"
)

func newAuthorizeCmd(g *globals) *cobra.Command {
	var (
		noBrowser bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "authorize <account-id>",
		Short: "Authorize a file-backed account and store its OAuth token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.cfg.AccountService != config.AccountServiceFile {
				return fmt.Errorf("authorize only applies to account_service 'file', got '%s'", g.cfg.AccountService)
			}

			acct, ok := g.cfg.Account(args[0])
			if !ok {
				return fmt.Errorf("account '%s' is not configured", args[0])
			}
			provider, err := accounts.ParseProvider(acct.Provider)
			if err != nil {
				return err
			}
			oauthConfig, err := app.OAuthConfig(g.cfg, provider)
			if err != nil {
				return err
			}

			store := accounts.NewFileTokenStore(acct.TokenPath)
			if !force {
				token, err := store.LoadToken()
				if err != nil {
					return fmt.Errorf("failed to load token: %w", err)
				}
				if token != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Account %s is already authorized (use --force to authorize again).\n", acct.ID)
					return nil
				}
			}

			out := cmd.OutOrStdout()
			if noBrowser {
				_, err = auth.AuthorizeWithReader(cmd.Context(), provider, oauthConfig, store, cmd.InOrStdin(), out)
			} else {
				_, err = auth.Authorize(cmd.Context(), provider, oauthConfig, store, out)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Token for %s saved to %s\n", acct.ID, acct.TokenPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Paste the authorization code instead of using a local callback server")
	cmd.Flags().BoolVar(&force, "force", false, "Authorize again even if a token is stored")
	return cmd
}
