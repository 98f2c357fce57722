// Package aggregate fans calendar fetches out across accounts and folds the
// results into a per-account store.
package aggregate

import (
	"sync"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/calendar"
)

// Store maps each account to the calendars last fetched for it. Accounts keep
// the order in which they were first stored.
type Store struct {
	mu        sync.RWMutex
	order     []accounts.Account
	calendars map[string][]calendar.Calendar
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{calendars: make(map[string][]calendar.Calendar)}
}

// Apply folds one fetch result into the store. Failed results leave the
// account's previous calendars untouched. It reports whether the store changed.
func (s *Store) Apply(r Result) bool {
	if r.Err != nil {
		return false
	}
	s.Put(r.Account, r.Calendars)
	return true
}

// Put replaces the calendars stored for account.
func (s *Store) Put(account accounts.Account, cals []calendar.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calendars[account.ID]; !ok {
		s.order = append(s.order, account)
	} else {
		for i, a := range s.order {
			if a.ID == account.ID {
				s.order[i] = account
				break
			}
		}
	}
	s.calendars[account.ID] = append([]calendar.Calendar(nil), cals...)
}

// Get returns the calendars stored for an account id.
func (s *Store) Get(accountID string) ([]calendar.Calendar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cals, ok := s.calendars[accountID]
	if !ok {
		return nil, false
	}
	return append([]calendar.Calendar(nil), cals...), true
}

// Accounts returns the stored accounts in insertion order.
func (s *Store) Accounts() []accounts.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]accounts.Account(nil), s.order...)
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Entry is one account and its calendars.
type Entry struct {
	Account   accounts.Account    `json:"account"`
	Calendars []calendar.Calendar `json:"calendars"`
}

// Snapshot returns a copy of the store in account insertion order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.order))
	for _, a := range s.order {
		entries = append(entries, Entry{
			Account:   a,
			Calendars: append([]calendar.Calendar(nil), s.calendars[a.ID]...),
		})
	}
	return entries
}
