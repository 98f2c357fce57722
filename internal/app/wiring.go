package app

import (
	"fmt"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/auth"
	"github.com/beekhof/calendar-hub/internal/config"
	"github.com/beekhof/calendar-hub/internal/services"

	"github.com/go-kit/log"
	"golang.org/x/oauth2"
)

// New builds a Manager from configuration.
func New(cfg *config.Config, logger log.Logger) (*Manager, error) {
	connect, err := Connector(cfg, logger)
	if err != nil {
		return nil, err
	}
	factory := services.NewFactory(connect, ServiceOptions(cfg, logger))
	return NewManager(connect, factory, logger), nil
}

// ServiceOptions returns the provider client options for cfg.
func ServiceOptions(cfg *config.Config, logger log.Logger) services.Options {
	return services.Options{
		Timeout:        cfg.Timeout(),
		GoogleEndpoint: cfg.GoogleEndpoint,
		GraphEndpoint:  cfg.GraphEndpoint,
		Logger:         logger,
	}
}

// Connector returns the account service connector selected by
// cfg.AccountService.
func Connector(cfg *config.Config, logger log.Logger) (accounts.Connector, error) {
	switch cfg.AccountService {
	case config.AccountServiceDBus:
		return accounts.DBusConnector(accounts.DBusConfig{
			BusName:    cfg.DBus.BusName,
			ObjectPath: cfg.DBus.ObjectPath,
			Interface:  cfg.DBus.Interface,
		}, logger), nil
	case config.AccountServiceFile:
		client, err := FileClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client.Connector(), nil
	default:
		return nil, fmt.Errorf("unknown account service %q", cfg.AccountService)
	}
}

// FileClient builds the file-backed account service from cfg.Accounts.
func FileClient(cfg *config.Config, logger log.Logger) (*accounts.FileClient, error) {
	entries := make([]accounts.FileAccount, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		entry, err := fileAccount(cfg, a)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return accounts.NewFileClient(entries, logger)
}

func fileAccount(cfg *config.Config, a config.Account) (accounts.FileAccount, error) {
	provider, err := accounts.ParseProvider(a.Provider)
	if err != nil {
		return accounts.FileAccount{}, fmt.Errorf("account %s: %w", a.ID, err)
	}
	oauthConfig, err := OAuthConfig(cfg, provider)
	if err != nil {
		return accounts.FileAccount{}, fmt.Errorf("account %s: %w", a.ID, err)
	}
	return accounts.FileAccount{
		Account: accounts.Account{
			ID:          a.ID,
			Provider:    provider,
			Username:    a.Username,
			DisplayName: a.DisplayName,
		},
		Store: accounts.NewFileTokenStore(a.TokenPath),
		OAuth: oauthConfig,
	}, nil
}

// OAuthConfig returns the OAuth application configured for provider.
func OAuthConfig(cfg *config.Config, provider accounts.Provider) (*oauth2.Config, error) {
	return accounts.Dispatch[*oauth2.Config](provider, oauthSwitch{cfg: cfg})
}

type oauthSwitch struct {
	cfg *config.Config
}

func (s oauthSwitch) Google() (*oauth2.Config, error) {
	clientID, clientSecret, err := config.LoadGoogleCredentials(s.cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}
	return auth.GoogleConfig(clientID, clientSecret), nil
}

func (s oauthSwitch) Microsoft() (*oauth2.Config, error) {
	if s.cfg.Microsoft.ClientID == "" {
		return nil, fmt.Errorf("microsoft.client_id is not configured")
	}
	return auth.MicrosoftConfig(s.cfg.Microsoft.ClientID, s.cfg.Microsoft.ClientSecret, s.cfg.Microsoft.Tenant), nil
}
