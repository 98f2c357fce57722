// Package accounts talks to the account service, the system of record for
// connected user accounts and their OAuth credentials.
package accounts

import (
	"context"
	"fmt"
	"strings"
)

// Provider identifies the remote calendar backend an account belongs to.
type Provider string

const (
	Google    Provider = "google"
	Microsoft Provider = "microsoft"
)

// Providers returns every provider the core knows about.
func Providers() []Provider {
	return []Provider{Google, Microsoft}
}

// ParseProvider parses a provider tag case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Google):
		return Google, nil
	case string(Microsoft):
		return Microsoft, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// ProviderSwitch has one case per provider. Anything that dispatches on a
// Provider implements it, so adding a provider here breaks the build until
// every dispatcher handles it.
type ProviderSwitch[T any] interface {
	Google() (T, error)
	Microsoft() (T, error)
}

// Dispatch calls the case of s matching p. Tags outside the known set fail.
func Dispatch[T any](p Provider, s ProviderSwitch[T]) (T, error) {
	switch p {
	case Google:
		return s.Google()
	case Microsoft:
		return s.Microsoft()
	}
	var zero T
	return zero, fmt.Errorf("no calendar service for provider %q", p)
}

// Account is a connected user account as reported by the account service.
type Account struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
}

// Label returns the name to show for the account.
func (a Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}

func (a Account) String() string {
	return fmt.Sprintf("%s (%s)", a.Label(), a.Provider)
}

// Client is a connection to the account service.
type Client interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	AccessToken(ctx context.Context, accountID string) (string, error)
	RefreshToken(ctx context.Context, accountID string) (string, error)
	Close() error
}

// Connector constructs a new account service client.
type Connector func(ctx context.Context) (Client, error)
