package main

import (
	"fmt"
	"os"

	"github.com/beekhof/calendar-hub/internal/config"
	"github.com/beekhof/calendar-hub/internal/logging"

	"github.com/go-kit/log"
	"github.com/spf13/cobra"
)

// globals are the values shared by every subcommand, resolved once the
// command line has been parsed.
type globals struct {
	configFile string
	flags      config.Flags
	verbose    bool

	cfg    *config.Config
	logger log.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "calhub",
		Short: "Aggregate calendars from Google and Microsoft accounts",
		Long: `calhub lists the calendars of every account known to the account service
(Google and Microsoft) and shows them as one aggregate, grouped by account.

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (CALHUB_ACCOUNT_SERVICE, CALHUB_HTTP_TIMEOUT, ...)
    3. Config file (--config, JSON or YAML)
    4. Defaults`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Path to a JSON or YAML config file")
	pf.StringVar(&g.flags.AccountService, "account-service", "", "Account service backend: dbus or file")
	pf.StringVar(&g.flags.GoogleCredentialsPath, "google-credentials-path", "", "Path to Google OAuth credentials JSON file")
	pf.StringVar(&g.flags.HTTPTimeout, "http-timeout", "", "Timeout for every provider request (e.g. 30s)")
	pf.StringVar(&g.flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&g.flags.LogFormat, "log-format", "", "Log format: logfmt or json")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose output (same as --log-level=debug)")

	rootCmd.AddCommand(
		newCalendarsCmd(g),
		newAccountsCmd(g),
		newWatchCmd(g),
		newAuthorizeCmd(g),
		newDraftCmd(g),
	)
	return rootCmd
}

func (g *globals) load(cmd *cobra.Command) error {
	if g.verbose && g.flags.LogLevel == "" {
		g.flags.LogLevel = "debug"
	}

	cfg, err := config.LoadConfig(g.configFile, g.flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}

	g.cfg = cfg
	g.logger = logger
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
