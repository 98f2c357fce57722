package accounts

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/oauth2"
)

// FileAccount is an account declared in configuration whose tokens live in
// a TokenStore.
type FileAccount struct {
	Account Account
	Store   TokenStore
	// OAuth refreshes expired tokens. When nil the stored access token is
	// handed out as is.
	OAuth *oauth2.Config
}

// FileClient is an account service backed by configuration and token files.
type FileClient struct {
	accounts []FileAccount
	byID     map[string]int
	logger   log.Logger
}

// NewFileClient creates a FileClient. Account ids must be unique.
func NewFileClient(entries []FileAccount, logger log.Logger) (*FileClient, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &FileClient{
		accounts: make([]FileAccount, 0, len(entries)),
		byID:     make(map[string]int, len(entries)),
		logger:   logger,
	}
	for _, e := range entries {
		if _, dup := c.byID[e.Account.ID]; dup {
			return nil, fmt.Errorf("duplicate account id %q", e.Account.ID)
		}
		if e.Store == nil {
			return nil, fmt.Errorf("account %q has no token store", e.Account.ID)
		}
		c.byID[e.Account.ID] = len(c.accounts)
		c.accounts = append(c.accounts, e)
	}
	return c, nil
}

// Connector returns a Connector that always yields c.
func (c *FileClient) Connector() Connector {
	return func(context.Context) (Client, error) {
		return c, nil
	}
}

// ListAccounts returns the configured accounts in declaration order.
func (c *FileClient) ListAccounts(ctx context.Context) ([]Account, error) {
	out := make([]Account, len(c.accounts))
	for i, e := range c.accounts {
		out[i] = e.Account
	}
	return out, nil
}

// AccessToken returns a valid access token, refreshing and saving it first
// when the stored one has expired.
func (c *FileClient) AccessToken(ctx context.Context, accountID string) (string, error) {
	entry, token, err := c.load(accountID)
	if err != nil {
		return "", err
	}
	if entry.OAuth == nil {
		return token.AccessToken, nil
	}

	source := &autoSaveTokenSource{
		source:     entry.OAuth.TokenSource(ctx, token),
		tokenStore: entry.Store,
		lastToken:  token,
	}
	fresh, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh token for account %s: %w", accountID, err)
	}
	if fresh.AccessToken != token.AccessToken {
		level.Debug(c.logger).Log("msg", "refreshed access token", "account", accountID)
	}
	return fresh.AccessToken, nil
}

// RefreshToken returns the stored refresh token, which may be empty.
func (c *FileClient) RefreshToken(ctx context.Context, accountID string) (string, error) {
	_, token, err := c.load(accountID)
	if err != nil {
		return "", err
	}
	return token.RefreshToken, nil
}

// Close is a no-op; the client holds no connection.
func (c *FileClient) Close() error {
	return nil
}

func (c *FileClient) load(accountID string) (FileAccount, *oauth2.Token, error) {
	i, ok := c.byID[accountID]
	if !ok {
		return FileAccount{}, nil, fmt.Errorf("unknown account %q", accountID)
	}
	entry := c.accounts[i]
	token, err := entry.Store.LoadToken()
	if err != nil {
		return entry, nil, fmt.Errorf("failed to load token for account %s: %w", accountID, err)
	}
	if token == nil {
		return entry, nil, fmt.Errorf("no token stored for account %s, run authorize first", accountID)
	}
	return entry, token, nil
}
