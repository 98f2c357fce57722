// Package draft builds new events as iCalendar documents. Drafts are never
// written back to a provider.
package draft

import (
	"fmt"
	"io"
	"time"

	"github.com/beekhof/calendar-hub/internal/errs"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//Calendar Hub//EN"

// dateLayout is the layout accepted for all-day events.
const dateLayout = "2006-01-02"

// Event describes the event to draft. For all-day events only the date part
// of Start and End is used and End is exclusive.
type Event struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Default returns an hour-long event starting at the next full hour after now.
func Default(now time.Time) Event {
	start := now.Truncate(time.Hour).Add(time.Hour)
	return Event{Start: start, End: start.Add(time.Hour)}
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, errs.E(errs.DateRange, "parse date", err)
	}
	return t, nil
}

// Validate reports a DateRange error if the event has no positive duration.
func (e Event) Validate() error {
	if e.Start.IsZero() {
		return errs.E(errs.DateRange, "validate event", fmt.Errorf("start is not set"))
	}
	start, end := e.Start, e.End
	if e.AllDay {
		start, end = day(start), day(end)
	}
	if !end.After(start) {
		return errs.E(errs.DateRange, "validate event", fmt.Errorf("end %s is not after start %s", e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339)))
	}
	return nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Calendar validates e and returns it as a VCALENDAR with one VEVENT.
func (e Event) Calendar(now time.Time) (*ical.Calendar, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uuid.NewString())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())

	if e.AllDay {
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(e.Start)
		vevent.Props.Set(dtstart)
		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(e.End)
		vevent.Props.Set(dtend)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, e.Start)
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.End)
	}

	if e.Summary != "" {
		vevent.Props.SetText(ical.PropSummary, e.Summary)
	}
	if e.Description != "" {
		vevent.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		vevent.Props.SetText(ical.PropLocation, e.Location)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal, nil
}

// Write encodes the drafted event to w.
func (e Event) Write(w io.Writer, now time.Time) error {
	cal, err := e.Calendar(now)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}
