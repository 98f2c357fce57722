package accounts

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/godbus/dbus/v5"
)

// Default D-Bus coordinates of the account service.
const (
	DefaultBusName    = "dev.edfloreshz.Accounts"
	DefaultObjectPath = "/dev/edfloreshz/Accounts"
	DefaultInterface  = "dev.edfloreshz.Accounts"
)

// DBusConfig locates the account service on the session bus.
type DBusConfig struct {
	BusName    string
	ObjectPath string
	Interface  string
}

func (c DBusConfig) withDefaults() DBusConfig {
	if c.BusName == "" {
		c.BusName = DefaultBusName
	}
	if c.ObjectPath == "" {
		c.ObjectPath = DefaultObjectPath
	}
	if c.Interface == "" {
		c.Interface = DefaultInterface
	}
	return c
}

// dbusAccount is the wire shape of one account, signature (ssss).
type dbusAccount struct {
	ID          string
	Provider    string
	Username    string
	DisplayName string
}

// DBusClient is an account service client over the session bus.
type DBusClient struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	iface  string
	logger log.Logger
}

// DBusConnector returns a Connector that opens a new DBusClient per call.
func DBusConnector(cfg DBusConfig, logger log.Logger) Connector {
	return func(ctx context.Context) (Client, error) {
		c, err := NewDBusClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// NewDBusClient connects to the session bus and checks that the account
// service answers.
func NewDBusClient(ctx context.Context, cfg DBusConfig, logger log.Logger) (*DBusClient, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg = cfg.withDefaults()

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	obj := conn.Object(cfg.BusName, dbus.ObjectPath(cfg.ObjectPath))
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Peer.Ping", 0).Err; err != nil {
		conn.Close()
		return nil, fmt.Errorf("account service %s is not reachable: %w", cfg.BusName, err)
	}

	return &DBusClient{conn: conn, obj: obj, iface: cfg.Interface, logger: logger}, nil
}

// ListAccounts returns the accounts known to the service. Accounts with a
// provider this build does not support are skipped.
func (c *DBusClient) ListAccounts(ctx context.Context) ([]Account, error) {
	var records []dbusAccount
	if err := c.obj.CallWithContext(ctx, c.iface+".ListAccounts", 0).Store(&records); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return decodeAccounts(records, c.logger), nil
}

// AccessToken asks the service for the current access token of an account.
func (c *DBusClient) AccessToken(ctx context.Context, accountID string) (string, error) {
	var token string
	if err := c.obj.CallWithContext(ctx, c.iface+".GetAccessToken", 0, accountID).Store(&token); err != nil {
		return "", fmt.Errorf("failed to get access token for account %s: %w", accountID, err)
	}
	return token, nil
}

// RefreshToken asks the service for the refresh token of an account.
func (c *DBusClient) RefreshToken(ctx context.Context, accountID string) (string, error) {
	var token string
	if err := c.obj.CallWithContext(ctx, c.iface+".GetRefreshToken", 0, accountID).Store(&token); err != nil {
		return "", fmt.Errorf("failed to get refresh token for account %s: %w", accountID, err)
	}
	return token, nil
}

// Close closes the bus connection.
func (c *DBusClient) Close() error {
	return c.conn.Close()
}

func decodeAccounts(records []dbusAccount, logger log.Logger) []Account {
	out := make([]Account, 0, len(records))
	for _, r := range records {
		provider, err := ParseProvider(r.Provider)
		if err != nil {
			level.Warn(logger).Log("msg", "skipping account", "account", r.ID, "err", err)
			continue
		}
		out = append(out, Account{
			ID:          r.ID,
			Provider:    provider,
			Username:    r.Username,
			DisplayName: r.DisplayName,
		})
	}
	return out
}
