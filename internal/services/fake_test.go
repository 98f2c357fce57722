package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/beekhof/calendar-hub/internal/accounts"
)

// fakeAccounts is an accounts.Client that hands out numbered access tokens
// and records every call in order.
type fakeAccounts struct {
	mu           sync.Mutex
	calls        []string
	accessCalls  int
	refreshToken string
	// failAccessAt makes the n-th AccessToken call (1-based) fail.
	failAccessAt int
	closed       bool
}

func (f *fakeAccounts) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAccounts) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAccounts) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) AccessToken(ctx context.Context, accountID string) (string, error) {
	f.mu.Lock()
	f.accessCalls++
	n := f.accessCalls
	f.mu.Unlock()

	f.record("access")
	if f.failAccessAt == n {
		return "", fmt.Errorf("account service unavailable")
	}
	return fmt.Sprintf("token-%d", n), nil
}

func (f *fakeAccounts) RefreshToken(ctx context.Context, accountID string) (string, error) {
	f.record("refresh")
	return f.refreshToken, nil
}

func (f *fakeAccounts) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
