package accounts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// TokenStore persists one account's OAuth token between runs.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// FileTokenStore keeps one file-backed account's OAuth token as a JSON
// document at Path, written by the authorize command and read by FileClient
// whenever it hands out or refreshes the account's access token.
type FileTokenStore struct {
	Path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// SaveToken writes token with owner-only permissions. Providers do not
// always repeat the refresh token on re-authorization, so a token without
// one keeps the refresh token already on disk.
func (s *FileTokenStore) SaveToken(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("no token to save to %s", s.Path)
	}
	if token.RefreshToken == "" {
		if prev, err := s.LoadToken(); err == nil && prev != nil && prev.RefreshToken != "" {
			t := *token
			t.RefreshToken = prev.RefreshToken
			token = &t
		}
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token for %s: %w", s.Path, err)
	}
	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken returns nil, nil when the account has not been authorized yet,
// that is when the file is missing or empty.
func (s *FileTokenStore) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", s.Path, err)
	}
	return &token, nil
}

// autoSaveTokenSource wraps an oauth2.TokenSource and saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	lastToken  *oauth2.Token
}

// Token implements oauth2.TokenSource and saves the token if it was refreshed.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}
