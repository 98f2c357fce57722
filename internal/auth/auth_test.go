package auth

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/beekhof/calendar-hub/internal/accounts"

	"golang.org/x/oauth2"
)

// mockTokenStore is a mock implementation of TokenStore for testing.
type mockTokenStore struct {
	token       *oauth2.Token
	savedTokens []*oauth2.Token
}

func (m *mockTokenStore) SaveToken(token *oauth2.Token) error {
	m.savedTokens = append(m.savedTokens, token)
	m.token = token
	return nil
}

func (m *mockTokenStore) LoadToken() (*oauth2.Token, error) {
	return m.token, nil
}

// newTokenServer fakes a token endpoint that only accepts wantCode. Any
// other code is rejected the way a real server does, with invalid_grant,
// so callers assert on the exchange result rather than on the request.
func newTokenServer(t *testing.T, wantCode string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != wantCode {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"authorization code is invalid"}`))
			return
		}
		w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","refresh_token":"new-refresh","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://auth.example.com/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestStartLocalServer_ReceivesCode(t *testing.T) {
	redirectURL, callbackChan, _, stop, err := startLocalServer()
	if err != nil {
		t.Fatalf("startLocalServer() returned an error: %v", err)
	}
	defer stop()

	resp, err := http.Get(redirectURL + "/?code=abc&state=xyz")
	if err != nil {
		t.Fatalf("Callback request failed: %v", err)
	}
	resp.Body.Close()

	select {
	case cb := <-callbackChan:
		if cb.code != "abc" || cb.state != "xyz" {
			t.Errorf("Expected code 'abc' and state 'xyz', got %+v", cb)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the callback")
	}
}

func TestStartLocalServer_ReportsError(t *testing.T) {
	redirectURL, _, errorChan, stop, err := startLocalServer()
	if err != nil {
		t.Fatalf("startLocalServer() returned an error: %v", err)
	}
	defer stop()

	resp, err := http.Get(redirectURL + "/?error=access_denied")
	if err != nil {
		t.Fatalf("Callback request failed: %v", err)
	}
	resp.Body.Close()

	select {
	case err := <-errorChan:
		if !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("Expected error to mention 'access_denied', got '%v'", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the error")
	}
}

func TestAuthorize_LoopbackFlow(t *testing.T) {
	tokenSrv := newTokenServer(t, "loopback-code")
	store := &mockTokenStore{}

	pr, pw := io.Pipe()
	defer pr.Close()

	// Play the browser: find the authorization URL and call the redirect.
	go func() {
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "https://auth.example.com/") {
				continue
			}
			u, err := url.Parse(line)
			if err != nil {
				t.Errorf("Failed to parse authorization URL: %v", err)
				return
			}
			q := u.Query()
			resp, err := http.Get(q.Get("redirect_uri") + "/?code=loopback-code&state=" + url.QueryEscape(q.Get("state")))
			if err != nil {
				t.Errorf("Callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}
	}()

	token, err := Authorize(context.Background(), accounts.Google, testConfig(tokenSrv.URL), store, pw)
	pw.Close()
	if err != nil {
		t.Fatalf("Authorize() returned an error: %v", err)
	}

	if token.AccessToken != "new-access" || token.RefreshToken != "new-refresh" {
		t.Errorf("Unexpected token: %+v", token)
	}
	if len(store.savedTokens) != 1 {
		t.Errorf("Expected the token to be saved once, got %d saves", len(store.savedTokens))
	}
}

func TestAuthorize_UnknownProvider(t *testing.T) {
	_, err := Authorize(context.Background(), "caldav", testConfig("http://unused"), &mockTokenStore{}, io.Discard)
	if err == nil {
		t.Fatal("Expected an error for an unknown provider")
	}
}

func TestAuthorizeWithReader(t *testing.T) {
	tokenSrv := newTokenServer(t, "pasted-code")
	store := &mockTokenStore{}

	var out strings.Builder
	token, err := AuthorizeWithReader(context.Background(), accounts.Microsoft, testConfig(tokenSrv.URL), store, strings.NewReader("pasted-code\n"), &out)
	if err != nil {
		t.Fatalf("AuthorizeWithReader() returned an error: %v", err)
	}

	if token.AccessToken != "new-access" {
		t.Errorf("Expected access token 'new-access', got '%s'", token.AccessToken)
	}
	if store.token == nil || store.token.RefreshToken != "new-refresh" {
		t.Errorf("Expected the token to be saved, got %+v", store.token)
	}
	if !strings.Contains(out.String(), "prompt=select_account") {
		t.Errorf("Expected the Microsoft authorization URL to ask for account selection, got:\n%s", out.String())
	}
}

func TestAuthorizeWithReader_ExchangeFails(t *testing.T) {
	tokenSrv := newTokenServer(t, "expected-code")
	store := &mockTokenStore{}

	_, err := AuthorizeWithReader(context.Background(), accounts.Google, testConfig(tokenSrv.URL), store, strings.NewReader("wrong-code\n"), io.Discard)
	if err == nil {
		t.Fatal("Expected an error when the exchange is rejected")
	}
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) || retrieveErr.ErrorCode != "invalid_grant" {
		t.Errorf("Expected an invalid_grant error from the token endpoint, got %v", err)
	}
	if len(store.savedTokens) != 0 {
		t.Error("Expected no token to be saved")
	}
}

func TestProviderConfigs(t *testing.T) {
	g := GoogleConfig("gid", "gsecret")
	if g.Endpoint.TokenURL == "" || len(g.Scopes) != 1 {
		t.Errorf("Unexpected Google config: %+v", g)
	}

	m := MicrosoftConfig("mid", "", "contoso")
	if !strings.Contains(m.Endpoint.AuthURL, "/contoso/") {
		t.Errorf("Expected the tenant in the Microsoft auth URL, got '%s'", m.Endpoint.AuthURL)
	}
	if m.Scopes[0] != "offline_access" {
		t.Errorf("Expected offline_access to be requested, got %v", m.Scopes)
	}
}
