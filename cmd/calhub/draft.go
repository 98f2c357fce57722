package main

import (
	"fmt"
	"time"

	"github.com/beekhof/calendar-hub/internal/draft"

	"github.com/spf13/cobra"
)

func newDraftCmd(g *globals) *cobra.Command {
	var (
		event    draft.Event
		start    string
		end      string
		date     string
		duration time.Duration
		days     int
	)

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Print a new event as iCalendar without saving it anywhere",
		Long: `draft validates the event's date range and prints it as an iCalendar
VEVENT. Nothing is written to any calendar.

Without --start or --date the event starts at the next full hour.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			e, err := buildDraft(event, start, end, date, duration, days, now)
			if err != nil {
				return err
			}
			return e.Write(cmd.OutOrStdout(), now)
		},
	}

	f := cmd.Flags()
	f.StringVar(&event.Summary, "summary", "", "Event title")
	f.StringVar(&event.Description, "description", "", "Event description")
	f.StringVar(&event.Location, "location", "", "Event location")
	f.StringVar(&start, "start", "", "Start time (RFC 3339)")
	f.StringVar(&end, "end", "", "End time (RFC 3339); defaults to start plus --duration")
	f.DurationVar(&duration, "duration", time.Hour, "Event length when --end is not given")
	f.StringVar(&date, "date", "", "Create an all-day event on this date (YYYY-MM-DD)")
	f.IntVar(&days, "days", 1, "Number of days for an all-day event")
	cmd.MarkFlagsMutuallyExclusive("date", "start")
	return cmd
}

func buildDraft(e draft.Event, start, end, date string, duration time.Duration, days int, now time.Time) (draft.Event, error) {
	if date != "" {
		d, err := draft.ParseDate(date, now.Location())
		if err != nil {
			return e, err
		}
		e.Start, e.End, e.AllDay = d, d.AddDate(0, 0, days), true
		return e, nil
	}

	def := draft.Default(now)
	e.Start = def.Start
	if start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return e, fmt.Errorf("invalid --start value: %w", err)
		}
		e.Start = t
	}

	e.End = e.Start.Add(duration)
	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return e, fmt.Errorf("invalid --end value: %w", err)
		}
		e.End = t
	}
	return e, nil
}
