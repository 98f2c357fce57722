// Package services holds the per-provider calendar services and the factory
// that picks one for an account.
package services

import (
	"context"
	"net/http"
	"time"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/calendar"
	"github.com/beekhof/calendar-hub/internal/errs"
	"github.com/beekhof/calendar-hub/internal/logging"

	"github.com/go-kit/log"
	"golang.org/x/oauth2"
)

// CalendarService fetches every calendar visible to one account.
type CalendarService interface {
	FetchCalendars(ctx context.Context) ([]calendar.Calendar, error)
}

// Options configures the provider HTTP clients.
type Options struct {
	// HTTPClient supplies the base transport. Nil means http.DefaultClient.
	HTTPClient *http.Client
	// Timeout bounds every provider request. Zero means no timeout.
	Timeout time.Duration
	// GoogleEndpoint overrides the Google Calendar API base URL.
	GoogleEndpoint string
	// GraphEndpoint overrides the Microsoft Graph base URL.
	GraphEndpoint string
	Logger        log.Logger
}

// client returns an HTTP client that authenticates with token.
func (o Options) client(ctx context.Context, token *oauth2.Token) *http.Client {
	if o.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	hc.Timeout = o.Timeout
	return hc
}

// Factory builds the calendar service matching an account's provider.
type Factory struct {
	connect accounts.Connector
	opts    Options
}

// NewFactory creates a Factory. Every service it builds gets its own
// account service client from connect.
func NewFactory(connect accounts.Connector, opts Options) *Factory {
	opts.Logger = logging.OrNop(opts.Logger)
	return &Factory{connect: connect, opts: opts}
}

// NewService connects to the account service and returns the calendar
// service for account. The returned service owns the account client and
// releases it on Close.
func (f *Factory) NewService(ctx context.Context, account accounts.Account) (CalendarService, error) {
	client, err := f.connect(ctx)
	if err != nil {
		return nil, errs.E(errs.AccountService, "connect to account service", err)
	}

	svc, err := accounts.Dispatch[CalendarService](account.Provider, serviceSwitch{
		ctx:     ctx,
		account: account,
		client:  client,
		opts:    f.opts,
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return svc, nil
}

type serviceSwitch struct {
	ctx     context.Context
	account accounts.Account
	client  accounts.Client
	opts    Options
}

func (s serviceSwitch) Google() (CalendarService, error) {
	svc, err := NewGoogleService(s.ctx, s.account, s.client, s.opts)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s serviceSwitch) Microsoft() (CalendarService, error) {
	svc, err := NewMicrosoftService(s.ctx, s.account, s.client, s.opts)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
