package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("", Flags{})
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.AccountService != AccountServiceDBus {
		t.Errorf("Expected AccountService to default to 'dbus', got '%s'", config.AccountService)
	}
	if config.Timeout() != 30*time.Second {
		t.Errorf("Expected HTTPTimeout to default to 30s, got %s", config.Timeout())
	}
	if config.RefreshSchedule != "*/15 * * * *" {
		t.Errorf("Expected RefreshSchedule to default to '*/15 * * * *', got '%s'", config.RefreshSchedule)
	}
	if config.LogLevel != "info" || config.LogFormat != "logfmt" {
		t.Errorf("Expected logging to default to info/logfmt, got %s/%s", config.LogLevel, config.LogFormat)
	}
	if config.Microsoft.Tenant != "common" {
		t.Errorf("Expected Microsoft tenant to default to 'common', got '%s'", config.Microsoft.Tenant)
	}
}

func TestLoadConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("CALHUB_HTTP_TIMEOUT", "5s")
	t.Setenv("CALHUB_LOG_LEVEL", "debug")
	t.Setenv("CALHUB_DBUS_BUS_NAME", "org.example.Accounts")
	t.Setenv("CALHUB_GRAPH_ENDPOINT", "http://localhost:9999")

	config, err := LoadConfig("", Flags{})
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.Timeout() != 5*time.Second {
		t.Errorf("Expected HTTPTimeout to be 5s, got %s", config.Timeout())
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected LogLevel to be 'debug', got '%s'", config.LogLevel)
	}
	if config.DBus.BusName != "org.example.Accounts" {
		t.Errorf("Expected DBus.BusName to be 'org.example.Accounts', got '%s'", config.DBus.BusName)
	}
	if config.GraphEndpoint != "http://localhost:9999" {
		t.Errorf("Expected GraphEndpoint to be 'http://localhost:9999', got '%s'", config.GraphEndpoint)
	}
}

func TestLoadConfig_CommandLineFlags(t *testing.T) {
	// Flags override environment variables
	t.Setenv("CALHUB_HTTP_TIMEOUT", "5s")
	t.Setenv("CALHUB_LOG_FORMAT", "logfmt")

	config, err := LoadConfig("", Flags{HTTPTimeout: "1m", LogFormat: "json"})
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.Timeout() != time.Minute {
		t.Errorf("Expected HTTPTimeout to be 1m, got %s", config.Timeout())
	}
	if config.LogFormat != "json" {
		t.Errorf("Expected LogFormat to be 'json', got '%s'", config.LogFormat)
	}
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	credsPath := writeFile(t, "credentials.json", `{"installed":{"client_id":"id","client_secret":"secret"}}`)
	configPath := writeFile(t, "config.json", `{
		"account_service": "file",
		"google_credentials_path": "`+credsPath+`",
		"microsoft": {"client_id": "ms-app"},
		"http_timeout": "10s",
		"accounts": [
			{"id": "work", "provider": "Microsoft", "username": "me@contoso.com", "token_path": "/config/work.json"},
			{"id": "home", "provider": "google", "username": "me@gmail.com", "display_name": "Home", "token_path": "/config/home.json"}
		]
	}`)

	config, err := LoadConfig(configPath, Flags{})
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.AccountService != AccountServiceFile {
		t.Errorf("Expected AccountService to be 'file', got '%s'", config.AccountService)
	}
	if config.Timeout() != 10*time.Second {
		t.Errorf("Expected HTTPTimeout to be 10s, got %s", config.Timeout())
	}
	if len(config.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(config.Accounts))
	}

	work, ok := config.Account("work")
	if !ok {
		t.Fatal("Expected account 'work' to be found")
	}
	if work.Provider != "microsoft" {
		t.Errorf("Expected provider to be normalized to 'microsoft', got '%s'", work.Provider)
	}
	if work.DisplayName != "me@contoso.com" {
		t.Errorf("Expected DisplayName to default to the username, got '%s'", work.DisplayName)
	}
	if home, _ := config.Account("home"); home.DisplayName != "Home" {
		t.Errorf("Expected DisplayName to be 'Home', got '%s'", home.DisplayName)
	}
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	configPath := writeFile(t, "config.yaml", `
account_service: dbus
dbus:
  object_path: /org/example/Accounts
http_timeout: 45s
refresh_schedule: "0 * * * *"
log_format: json
`)

	config, err := LoadConfig(configPath, Flags{})
	if err != nil {
		t.Fatalf("LoadConfig() returned an error: %v", err)
	}

	if config.DBus.ObjectPath != "/org/example/Accounts" {
		t.Errorf("Expected DBus.ObjectPath to be '/org/example/Accounts', got '%s'", config.DBus.ObjectPath)
	}
	if config.Timeout() != 45*time.Second {
		t.Errorf("Expected HTTPTimeout to be 45s, got %s", config.Timeout())
	}
	if config.RefreshSchedule != "0 * * * *" {
		t.Errorf("Expected RefreshSchedule to be '0 * * * *', got '%s'", config.RefreshSchedule)
	}
	if config.LogFormat != "json" {
		t.Errorf("Expected LogFormat to be 'json', got '%s'", config.LogFormat)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		flags   Flags
		wantErr string
	}{
		{
			name:    "unknown account service",
			config:  `{"account_service": "ldap"}`,
			wantErr: "account_service",
		},
		{
			name:    "invalid cron schedule",
			flags:   Flags{RefreshSchedule: "every minute"},
			wantErr: "refresh_schedule",
		},
		{
			name:    "invalid log level",
			flags:   Flags{LogLevel: "verbose"},
			wantErr: "log_level",
		},
		{
			name:    "negative timeout",
			flags:   Flags{HTTPTimeout: "-1s"},
			wantErr: "http_timeout",
		},
		{
			name:    "file service without accounts",
			config:  `{"account_service": "file"}`,
			wantErr: "accounts array must be provided",
		},
		{
			name:    "unknown provider",
			config:  `{"account_service": "file", "accounts": [{"id": "a", "provider": "caldav", "token_path": "/t"}]}`,
			wantErr: "provider must be 'google' or 'microsoft'",
		},
		{
			name:    "duplicate account id",
			config:  `{"account_service": "file", "microsoft": {"client_id": "x"}, "accounts": [{"id": "a", "provider": "microsoft", "token_path": "/t"}, {"id": "a", "provider": "microsoft", "token_path": "/u"}]}`,
			wantErr: "duplicate account id",
		},
		{
			name:    "missing token path",
			config:  `{"account_service": "file", "accounts": [{"id": "a", "provider": "google"}]}`,
			wantErr: "token_path must be provided",
		},
		{
			name:    "google account without credentials",
			config:  `{"account_service": "file", "accounts": [{"id": "a", "provider": "google", "token_path": "/t"}]}`,
			wantErr: "google_credentials_path must be provided",
		},
		{
			name:    "microsoft account without client id",
			config:  `{"account_service": "file", "accounts": [{"id": "a", "provider": "microsoft", "token_path": "/t"}]}`,
			wantErr: "microsoft.client_id must be provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := ""
			if tt.config != "" {
				configPath = writeFile(t, "config.json", tt.config)
			}
			_, err := LoadConfig(configPath, tt.flags)
			if err == nil {
				t.Fatalf("Expected an error containing '%s', got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error to contain '%s', got '%v'", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_InvalidTimeoutEnv(t *testing.T) {
	t.Setenv("CALHUB_HTTP_TIMEOUT", "soon")

	if _, err := LoadConfig("", Flags{}); err == nil {
		t.Fatal("Expected an error for an unparsable CALHUB_HTTP_TIMEOUT")
	}
}

func TestLoadGoogleCredentials(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantID     string
		wantSecret string
		wantErr    bool
	}{
		{
			name:       "installed app",
			content:    `{"installed":{"client_id":"installed-id","client_secret":"installed-secret"}}`,
			wantID:     "installed-id",
			wantSecret: "installed-secret",
		},
		{
			name:       "web app",
			content:    `{"web":{"client_id":"web-id","client_secret":"web-secret"}}`,
			wantID:     "web-id",
			wantSecret: "web-secret",
		},
		{
			name:    "no client id",
			content: `{"other":{}}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			content: `{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "credentials.json", tt.content)
			id, secret, err := LoadGoogleCredentials(path)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadGoogleCredentials() returned an error: %v", err)
			}
			if id != tt.wantID || secret != tt.wantSecret {
				t.Errorf("Expected (%s, %s), got (%s, %s)", tt.wantID, tt.wantSecret, id, secret)
			}
		})
	}
}

func TestLoadGoogleCredentials_MissingFile(t *testing.T) {
	if _, _, err := LoadGoogleCredentials(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected an error for a missing credentials file")
	}
}
