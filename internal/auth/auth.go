// Package auth runs the interactive OAuth authorization for file-backed
// accounts and builds the provider OAuth configurations.
package auth

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/beekhof/calendar-hub/internal/accounts"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	gcal "google.golang.org/api/calendar/v3"
)

// Scopes requested for each provider. Both are read-only; offline_access
// makes Azure AD issue a refresh token.
var (
	GoogleScopes    = []string{gcal.CalendarReadonlyScope}
	MicrosoftScopes = []string{"offline_access", "Calendars.Read"}
)

// authTimeout bounds how long Authorize waits for the browser callback.
var authTimeout = 5 * time.Minute

// GoogleConfig returns the OAuth configuration for Google accounts.
func GoogleConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       GoogleScopes,
	}
}

// MicrosoftConfig returns the OAuth configuration for Microsoft accounts in
// the given Azure AD tenant ("common" when empty).
func MicrosoftConfig(clientID, clientSecret, tenant string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       MicrosoftScopes,
	}
}

// authCodeOptions returns the provider-specific parameters that make the
// authorization server return a refresh token.
func authCodeOptions(p accounts.Provider) ([]oauth2.AuthCodeOption, error) {
	return accounts.Dispatch[[]oauth2.AuthCodeOption](p, authCodeSwitch{})
}

type authCodeSwitch struct{}

func (authCodeSwitch) Google() ([]oauth2.AuthCodeOption, error) {
	return []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}, nil
}

func (authCodeSwitch) Microsoft() ([]oauth2.AuthCodeOption, error) {
	return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "select_account")}, nil
}

// callback is what the local server received on its redirect URL.
type callback struct {
	code  string
	state string
}

// startLocalServer starts a local HTTP server to receive the OAuth callback.
// Returns the redirect URL, a channel for the callback, a channel for errors
// and a function that stops the server.
// Uses port 8080 by default, or a random port if 8080 is unavailable.
func startLocalServer() (string, <-chan callback, <-chan error, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:8080")
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return "", nil, nil, nil, fmt.Errorf("failed to start local server: %w", err)
		}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	callbackChan := make(chan callback, 1)
	errorChan := make(chan error, 1)

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if code := query.Get("code"); code != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
			select {
			case callbackChan <- callback{code: code, state: query.Get("state")}:
			default:
			}
			return
		}

		err := fmt.Errorf("no authorization code received")
		if errMsg := query.Get("error"); errMsg != "" {
			err = fmt.Errorf("authorization error: %s", errMsg)
			if desc := query.Get("error_description"); desc != "" {
				err = fmt.Errorf("authorization error: %s: %s", errMsg, desc)
			}
		}
		fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>", err)
		select {
		case errorChan <- err:
		default:
		}
	})
	server.Handler = mux

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errorChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
	return redirectURL, callbackChan, errorChan, stop, nil
}

// Authorize runs the browser-based OAuth flow for one account: it prints the
// authorization URL to out, waits for the callback on a loopback server,
// exchanges the code and saves the token to store.
func Authorize(ctx context.Context, provider accounts.Provider, oauthConfig *oauth2.Config, store accounts.TokenStore, out io.Writer) (*oauth2.Token, error) {
	opts, err := authCodeOptions(provider)
	if err != nil {
		return nil, err
	}

	redirectURL, callbackChan, errorChan, stop, err := startLocalServer()
	if err != nil {
		return nil, err
	}
	defer stop()

	// Copy so the caller's config keeps its redirect URL.
	cfg := *oauthConfig
	cfg.RedirectURL = redirectURL

	state := uuid.NewString()
	authURL := cfg.AuthCodeURL(state, opts...)

	fmt.Fprintf(out, "Starting local server on %s\n", redirectURL)
	if redirectURL != "http://127.0.0.1:8080" {
		fmt.Fprintf(out, "Note: Port 8080 was unavailable. Make sure %s is an authorized redirect URI for the application.\n", redirectURL)
	}
	fmt.Fprintln(out, "\nPlease visit the following URL to authorize the application:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "\nWaiting for authorization...")

	var cb callback
	select {
	case cb = <-callbackChan:
	case err := <-errorChan:
		return nil, fmt.Errorf("failed to receive authorization code: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timeout: no response received within %s", authTimeout)
	}

	if cb.state != state {
		return nil, fmt.Errorf("authorization state mismatch")
	}

	token, err := exchange(ctx, &cfg, store, cb.code)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(out, "Authorization successful!")
	return token, nil
}

// AuthorizeWithReader runs the OAuth flow without a local server: the user
// pastes the authorization code, which is read from in.
func AuthorizeWithReader(ctx context.Context, provider accounts.Provider, oauthConfig *oauth2.Config, store accounts.TokenStore, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	opts, err := authCodeOptions(provider)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out, "Please visit the following URL to authorize the application:")
	fmt.Fprintln(out, oauthConfig.AuthCodeURL(uuid.NewString(), opts...))
	fmt.Fprint(out, "Enter the authorization code: ")

	var code string
	if _, err := fmt.Fscanln(in, &code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	return exchange(ctx, oauthConfig, store, code)
}

func exchange(ctx context.Context, oauthConfig *oauth2.Config, store accounts.TokenStore, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("no authorization code received")
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := store.SaveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}
