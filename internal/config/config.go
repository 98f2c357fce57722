package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beekhof/calendar-hub/internal/accounts"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Account service backends.
const (
	AccountServiceDBus = "dbus"
	AccountServiceFile = "file"
)

// Defaults applied when a value is not configured anywhere.
const (
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultRefreshSchedule = "*/15 * * * *"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "logfmt"
)

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Desktop apps use "installed", server apps "web".
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Duration is a time.Duration written as a Go duration string ("30s") in
// config files.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string such as \"30s\": %w", err)
	}
	return d.set(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DBus names the account service on the session bus. Empty fields fall back
// to the accounts package defaults.
type DBus struct {
	BusName    string `json:"bus_name,omitempty" yaml:"bus_name,omitempty"`
	ObjectPath string `json:"object_path,omitempty" yaml:"object_path,omitempty"`
	Interface  string `json:"interface,omitempty" yaml:"interface,omitempty"`
}

// Account is an account served by the file-backed account service.
type Account struct {
	ID          string `json:"id" yaml:"id"`
	Provider    string `json:"provider" yaml:"provider"` // "google" or "microsoft"
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	TokenPath   string `json:"token_path" yaml:"token_path"` // Path to the OAuth token file
}

// Microsoft holds the Azure AD application used for Microsoft accounts.
type Microsoft struct {
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	Tenant       string `json:"tenant,omitempty" yaml:"tenant,omitempty"` // Defaults to "common"
}

// Config holds the configuration for calhub.
type Config struct {
	AccountService        string    `json:"account_service,omitempty" yaml:"account_service,omitempty"`
	DBus                  DBus      `json:"dbus,omitempty" yaml:"dbus,omitempty"`
	Accounts              []Account `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	GoogleCredentialsPath string    `json:"google_credentials_path,omitempty" yaml:"google_credentials_path,omitempty"`
	Microsoft             Microsoft `json:"microsoft,omitempty" yaml:"microsoft,omitempty"`

	HTTPTimeout    Duration `json:"http_timeout,omitempty" yaml:"http_timeout,omitempty"`
	GoogleEndpoint string   `json:"google_endpoint,omitempty" yaml:"google_endpoint,omitempty"`
	GraphEndpoint  string   `json:"graph_endpoint,omitempty" yaml:"graph_endpoint,omitempty"`

	RefreshSchedule string `json:"refresh_schedule,omitempty" yaml:"refresh_schedule,omitempty"` // Standard 5-field cron spec for "watch"

	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty"`
}

// Timeout returns the HTTP timeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout)
}

// Account returns the file-backed account with the given id.
func (c *Config) Account(id string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Flags carries the command-line values that override everything else.
// Empty fields are ignored.
type Flags struct {
	AccountService        string
	GoogleCredentialsPath string
	HTTPTimeout           string
	RefreshSchedule       string
	LogLevel              string
	LogFormat             string
}

// LoadConfigFromFile loads configuration from a JSON or YAML file, chosen by
// extension.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any value is missing or invalid.
func LoadConfig(configFile string, flags Flags) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	for env, dst := range map[string]*string{
		"CALHUB_ACCOUNT_SERVICE":         &config.AccountService,
		"CALHUB_DBUS_BUS_NAME":           &config.DBus.BusName,
		"CALHUB_DBUS_OBJECT_PATH":        &config.DBus.ObjectPath,
		"CALHUB_DBUS_INTERFACE":          &config.DBus.Interface,
		"CALHUB_GOOGLE_CREDENTIALS_PATH": &config.GoogleCredentialsPath,
		"CALHUB_MICROSOFT_CLIENT_ID":     &config.Microsoft.ClientID,
		"CALHUB_MICROSOFT_CLIENT_SECRET": &config.Microsoft.ClientSecret,
		"CALHUB_MICROSOFT_TENANT":        &config.Microsoft.Tenant,
		"CALHUB_GOOGLE_ENDPOINT":         &config.GoogleEndpoint,
		"CALHUB_GRAPH_ENDPOINT":          &config.GraphEndpoint,
		"CALHUB_REFRESH_SCHEDULE":        &config.RefreshSchedule,
		"CALHUB_LOG_LEVEL":               &config.LogLevel,
		"CALHUB_LOG_FORMAT":              &config.LogFormat,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("CALHUB_HTTP_TIMEOUT"); v != "" {
		if err := config.HTTPTimeout.set(v); err != nil {
			return nil, fmt.Errorf("invalid CALHUB_HTTP_TIMEOUT value: %w", err)
		}
	}

	// Step 3: Override with command-line flags (highest priority)
	if flags.AccountService != "" {
		config.AccountService = flags.AccountService
	}
	if flags.GoogleCredentialsPath != "" {
		config.GoogleCredentialsPath = flags.GoogleCredentialsPath
	}
	if flags.HTTPTimeout != "" {
		if err := config.HTTPTimeout.set(flags.HTTPTimeout); err != nil {
			return nil, fmt.Errorf("invalid --http-timeout value: %w", err)
		}
	}
	if flags.RefreshSchedule != "" {
		config.RefreshSchedule = flags.RefreshSchedule
	}
	if flags.LogLevel != "" {
		config.LogLevel = flags.LogLevel
	}
	if flags.LogFormat != "" {
		config.LogFormat = flags.LogFormat
	}

	// Step 4: Apply defaults and validate
	applyDefaults(&config)
	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.AccountService == "" {
		config.AccountService = AccountServiceDBus
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = Duration(DefaultHTTPTimeout)
	}
	if config.RefreshSchedule == "" {
		config.RefreshSchedule = DefaultRefreshSchedule
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.LogFormat == "" {
		config.LogFormat = DefaultLogFormat
	}
	if config.Microsoft.Tenant == "" {
		config.Microsoft.Tenant = "common"
	}
	for i := range config.Accounts {
		if config.Accounts[i].DisplayName == "" {
			config.Accounts[i].DisplayName = config.Accounts[i].Username
		}
	}
}

func validate(config *Config) error {
	switch config.AccountService {
	case AccountServiceDBus, AccountServiceFile:
	default:
		return fmt.Errorf("account_service must be 'dbus' or 'file', got '%s'", config.AccountService)
	}

	if config.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %s", config.Timeout())
	}

	if _, err := cron.ParseStandard(config.RefreshSchedule); err != nil {
		return fmt.Errorf("refresh_schedule '%s' is not a valid cron expression: %w", config.RefreshSchedule, err)
	}

	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn or error, got '%s'", config.LogLevel)
	}
	switch config.LogFormat {
	case "logfmt", "json":
	default:
		return fmt.Errorf("log_format must be 'logfmt' or 'json', got '%s'", config.LogFormat)
	}

	if config.AccountService != AccountServiceFile {
		return nil
	}

	if len(config.Accounts) == 0 {
		return fmt.Errorf("accounts array must be provided in config file when account_service is 'file'. At least one account is required")
	}

	seen := make(map[string]bool)
	for i, acct := range config.Accounts {
		if acct.ID == "" {
			return fmt.Errorf("accounts[%d].id must be provided", i)
		}
		if seen[acct.ID] {
			return fmt.Errorf("accounts[%d]: duplicate account id '%s'", i, acct.ID)
		}
		seen[acct.ID] = true

		provider, err := accounts.ParseProvider(acct.Provider)
		if err != nil {
			return fmt.Errorf("accounts[%d] (id: %s): provider must be 'google' or 'microsoft', got '%s'", i, acct.ID, acct.Provider)
		}
		config.Accounts[i].Provider = string(provider)

		if acct.TokenPath == "" {
			return fmt.Errorf("accounts[%d] (id: %s): token_path must be provided", i, acct.ID)
		}

		switch provider {
		case accounts.Google:
			if config.GoogleCredentialsPath == "" {
				return fmt.Errorf("google_credentials_path must be provided via --google-credentials-path flag, CALHUB_GOOGLE_CREDENTIALS_PATH environment variable, or config file")
			}
		case accounts.Microsoft:
			if config.Microsoft.ClientID == "" {
				return fmt.Errorf("microsoft.client_id must be provided via CALHUB_MICROSOFT_CLIENT_ID environment variable or config file")
			}
		}
	}

	return nil
}
