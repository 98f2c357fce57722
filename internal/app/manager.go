// Package app drives the account and calendar lifecycle: connect to the
// account service, list accounts, fetch every account's calendars and fold
// the results into the aggregate store.
package app

import (
	"context"
	"sync"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/aggregate"
	"github.com/beekhof/calendar-hub/internal/calendar"
	"github.com/beekhof/calendar-hub/internal/logging"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// State is where the manager is in the load progression.
type State int

const (
	NoClient State = iota
	ClientReady
	AccountsListed
	CalendarsLoading
	CalendarsLoaded
)

func (s State) String() string {
	switch s {
	case NoClient:
		return "no-client"
	case ClientReady:
		return "client-ready"
	case AccountsListed:
		return "accounts-listed"
	case CalendarsLoading:
		return "calendars-loading"
	case CalendarsLoaded:
		return "calendars-loaded"
	default:
		return "unknown"
	}
}

// Update reports one account's calendars after they were applied to the
// store. Err is set when the fetch failed; the store then still holds the
// account's previous calendars, if any.
type Update struct {
	LoadID    uuid.UUID
	Account   accounts.Account
	Calendars []calendar.Calendar
	Err       error
}

// Manager owns the account service client, the account list and the
// aggregate store.
type Manager struct {
	connect accounts.Connector
	orch    *aggregate.Orchestrator
	store   *aggregate.Store
	logger  log.Logger

	mu       sync.Mutex
	state    State
	client   accounts.Client
	accounts []accounts.Account
}

// NewManager creates a Manager that lists accounts through connect and
// fetches calendars through factory.
func NewManager(connect accounts.Connector, factory aggregate.ServiceFactory, logger log.Logger) *Manager {
	logger = logging.OrNop(logger)
	return &Manager{
		connect: connect,
		orch:    aggregate.NewOrchestrator(factory, logger),
		store:   aggregate.NewStore(),
		logger:  logger,
	}
}

// LoadClient connects to the account service unless a client is already
// held. A failed connection is logged and leaves the manager without a
// client; it is retried on the next call.
func (m *Manager) LoadClient(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return
	}
	client, err := m.connect(ctx)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to connect to account service", "err", err)
		m.state = NoClient
		return
	}
	m.client = client
	m.state = ClientReady
}

// LoadAccounts lists the accounts known to the account service. Without a
// client, or when listing fails, the account list is empty.
func (m *Manager) LoadAccounts(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts = nil
	if m.client == nil {
		level.Warn(m.logger).Log("msg", "no account service client, skipping account listing")
		return
	}

	accts, err := m.client.ListAccounts(ctx)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to list accounts", "err", err)
	} else {
		m.accounts = accts
	}
	m.state = AccountsListed
	level.Info(m.logger).Log("msg", "listed accounts", "count", len(m.accounts))
}

// LoadCalendars starts fetching calendars for every listed account. The
// results are not applied to the store; LoadAll does that.
func (m *Manager) LoadCalendars(ctx context.Context) <-chan aggregate.Result {
	m.mu.Lock()
	accts := append([]accounts.Account(nil), m.accounts...)
	if m.client != nil {
		m.state = CalendarsLoading
	}
	m.mu.Unlock()

	return m.orch.Load(ctx, accts)
}

// LoadAll connects, lists accounts and fetches every account's calendars in
// the background. Each result is applied to the store and then sent on the
// returned channel, in completion order. The channel is closed when every
// account has settled or ctx is done.
//
// Calling LoadAll again reloads: accounts are listed anew and each
// successful fetch replaces that account's calendars.
func (m *Manager) LoadAll(ctx context.Context) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		m.LoadClient(ctx)
		m.LoadAccounts(ctx)
		results := m.LoadCalendars(ctx)

		for r := range results {
			m.store.Apply(r)
			select {
			case updates <- Update(r):
			case <-ctx.Done():
				level.Warn(m.logger).Log("msg", "calendar load abandoned", "load", r.LoadID, "err", ctx.Err())
				return
			}
		}

		m.mu.Lock()
		if m.client != nil {
			m.state = CalendarsLoaded
		}
		m.mu.Unlock()
	}()

	return updates
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Accounts returns the accounts from the last listing.
func (m *Manager) Accounts() []accounts.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]accounts.Account(nil), m.accounts...)
}

// Store returns the aggregate store.
func (m *Manager) Store() *aggregate.Store {
	return m.store
}

// Close releases the account service client.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	m.state = NoClient
	return err
}
