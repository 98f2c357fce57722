package accounts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("Expected grant_type=refresh_token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFileClient_ListAccounts(t *testing.T) {
	client, err := NewFileClient([]FileAccount{
		{Account: Account{ID: "work", Provider: Microsoft}, Store: &mockTokenStore{}},
		{Account: Account{ID: "home", Provider: Google}, Store: &mockTokenStore{}},
	}, nil)
	if err != nil {
		t.Fatalf("NewFileClient() returned an error: %v", err)
	}

	got, err := client.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() returned an error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "work" || got[1].ID != "home" {
		t.Errorf("Expected accounts in declaration order, got %+v", got)
	}
}

func TestFileClient_DuplicateIDs(t *testing.T) {
	_, err := NewFileClient([]FileAccount{
		{Account: Account{ID: "x", Provider: Google}, Store: &mockTokenStore{}},
		{Account: Account{ID: "x", Provider: Microsoft}, Store: &mockTokenStore{}},
	}, nil)
	if err == nil {
		t.Error("Expected an error for duplicate account ids")
	}
}

func TestFileClient_ValidTokenIsReturnedAsIs(t *testing.T) {
	store := &mockTokenStore{token: &oauth2.Token{
		AccessToken:  "still-valid",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}}
	client, err := NewFileClient([]FileAccount{{
		Account: Account{ID: "a", Provider: Google},
		Store:   store,
		OAuth:   &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: "http://127.0.0.1:1/unused"}},
	}}, nil)
	if err != nil {
		t.Fatalf("NewFileClient() returned an error: %v", err)
	}

	got, err := client.AccessToken(context.Background(), "a")
	if err != nil {
		t.Fatalf("AccessToken() returned an error: %v", err)
	}
	if got != "still-valid" {
		t.Errorf("Expected stored token, got %q", got)
	}
	if len(store.savedTokens) != 0 {
		t.Errorf("Expected no token to be saved, got %d", len(store.savedTokens))
	}

	refresh, err := client.RefreshToken(context.Background(), "a")
	if err != nil {
		t.Fatalf("RefreshToken() returned an error: %v", err)
	}
	if refresh != "refresh" {
		t.Errorf("Expected refresh token 'refresh', got %q", refresh)
	}
}

func TestFileClient_ExpiredTokenIsRefreshedAndSaved(t *testing.T) {
	srv := newTokenServer(t, "fresh-token")

	tokenPath := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(tokenPath)
	if err := store.SaveToken(&oauth2.Token{
		AccessToken:  "expired",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("SaveToken() returned an error: %v", err)
	}

	client, err := NewFileClient([]FileAccount{{
		Account: Account{ID: "a", Provider: Microsoft},
		Store:   store,
		OAuth: &oauth2.Config{
			ClientID: "client",
			Endpoint: oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
		},
	}}, nil)
	if err != nil {
		t.Fatalf("NewFileClient() returned an error: %v", err)
	}

	got, err := client.AccessToken(context.Background(), "a")
	if err != nil {
		t.Fatalf("AccessToken() returned an error: %v", err)
	}
	if got != "fresh-token" {
		t.Errorf("Expected refreshed token, got %q", got)
	}

	saved, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() returned an error: %v", err)
	}
	if saved.AccessToken != "fresh-token" {
		t.Errorf("Expected refreshed token to be saved, got %q", saved.AccessToken)
	}
	if saved.RefreshToken != "refresh" {
		t.Errorf("Expected refresh token to be kept, got %q", saved.RefreshToken)
	}
}

func TestFileClient_MissingToken(t *testing.T) {
	client, err := NewFileClient([]FileAccount{
		{Account: Account{ID: "a", Provider: Google}, Store: &mockTokenStore{}},
	}, nil)
	if err != nil {
		t.Fatalf("NewFileClient() returned an error: %v", err)
	}

	if _, err := client.AccessToken(context.Background(), "a"); err == nil {
		t.Error("Expected an error when no token is stored")
	}
	if _, err := client.AccessToken(context.Background(), "nope"); err == nil {
		t.Error("Expected an error for an unknown account")
	}
}
