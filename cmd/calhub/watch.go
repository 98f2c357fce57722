package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/beekhof/calendar-hub/internal/app"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newWatchCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload every account's calendars on the refresh schedule",
		Long: `watch loads every account's calendars once, then reloads them on the
refresh_schedule cron expression until interrupted. Each reload replaces an
account's calendars only when its fetch succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m, err := app.New(g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			reload := func() {
				loadAndReport(ctx, m, cmd.ErrOrStderr())
				if err := printTable(cmd.OutOrStdout(), m.Store().Snapshot()); err != nil {
					level.Error(g.logger).Log("msg", "failed to print calendars", "err", err)
				}
			}

			cl := cronLogger{g.logger}
			c := cron.New(
				cron.WithLogger(cl),
				cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			)
			if _, err := c.AddFunc(g.cfg.RefreshSchedule, reload); err != nil {
				return fmt.Errorf("invalid refresh schedule: %w", err)
			}

			reload()
			c.Start()
			level.Info(g.logger).Log("msg", "watching calendars", "schedule", g.cfg.RefreshSchedule)

			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		},
	}
	return cmd
}

// cronLogger adapts a go-kit logger to cron.Logger.
type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Debug(l.logger).Log(append([]interface{}{"msg", msg, "component", "cron"}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(l.logger).Log(append([]interface{}{"msg", msg, "component", "cron", "err", err}, keysAndValues...)...)
}

var _ cron.Logger = cronLogger{}
