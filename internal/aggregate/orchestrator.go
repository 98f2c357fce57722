package aggregate

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/calendar"
	"github.com/beekhof/calendar-hub/internal/errs"
	"github.com/beekhof/calendar-hub/internal/logging"
	"github.com/beekhof/calendar-hub/internal/services"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// ServiceFactory builds the calendar service for one account.
type ServiceFactory interface {
	NewService(ctx context.Context, account accounts.Account) (services.CalendarService, error)
}

// Result is the outcome of fetching one account's calendars. Calendars is
// nil when Err is set.
type Result struct {
	LoadID    uuid.UUID
	Account   accounts.Account
	Calendars []calendar.Calendar
	Err       error
}

// Orchestrator fetches calendars for many accounts concurrently.
type Orchestrator struct {
	factory ServiceFactory
	logger  log.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(factory ServiceFactory, logger log.Logger) *Orchestrator {
	return &Orchestrator{factory: factory, logger: logging.OrNop(logger)}
}

// Load starts one fetch per account and returns a channel that yields each
// result as it completes. The channel is closed once every fetch has
// settled. A failing account only affects its own result.
func (o *Orchestrator) Load(ctx context.Context, accts []accounts.Account) <-chan Result {
	loadID := uuid.New()
	results := make(chan Result, len(accts))
	logger := log.With(o.logger, "load", loadID)

	level.Info(logger).Log("msg", "loading calendars", "accounts", len(accts))

	var wg sync.WaitGroup
	for _, account := range accts {
		wg.Add(1)
		go func(account accounts.Account) {
			defer wg.Done()
			r := o.fetch(ctx, account)
			r.LoadID = loadID
			if r.Err != nil {
				level.Error(logger).Log("msg", "failed to load calendars", "account", account.ID, "provider", account.Provider, "err", r.Err)
			} else {
				level.Debug(logger).Log("msg", "loaded calendars", "account", account.ID, "count", len(r.Calendars))
			}
			results <- r
		}(account)
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

func (o *Orchestrator) fetch(ctx context.Context, account accounts.Account) (r Result) {
	r.Account = account
	defer func() {
		if p := recover(); p != nil {
			r.Calendars = nil
			r.Err = errs.E(errs.Unknown, "fetch calendars", fmt.Errorf("panic: %v", p))
		}
	}()

	svc, err := o.factory.NewService(ctx, account)
	if err != nil {
		r.Err = err
		return r
	}
	if c, ok := svc.(io.Closer); ok {
		defer c.Close()
	}

	cals, err := svc.FetchCalendars(ctx)
	if err != nil {
		r.Err = err
		return r
	}
	r.Calendars = cals
	return r
}
