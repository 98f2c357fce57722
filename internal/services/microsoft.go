package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/calendar"
	"github.com/beekhof/calendar-hub/internal/errs"
	"github.com/beekhof/calendar-hub/internal/graph"
	"github.com/beekhof/calendar-hub/internal/logging"

	"github.com/go-kit/log/level"
	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

// DefaultGraphEndpoint is the Microsoft Graph v1.0 base URL.
const DefaultGraphEndpoint = "https://graph.microsoft.com/v1.0"

// MicrosoftService lists calendars through Microsoft Graph.
type MicrosoftService struct {
	account accounts.Account
	client  accounts.Client
	opts    Options
	graph   *http.Client
}

// NewMicrosoftService fetches the account's bearer token and builds the
// Graph client.
func NewMicrosoftService(ctx context.Context, account accounts.Account, client accounts.Client, opts Options) (*MicrosoftService, error) {
	accessToken, err := client.AccessToken(ctx, account.ID)
	if err != nil {
		return nil, errs.E(errs.AccountService, "get access token", err)
	}

	opts.Logger = logging.OrNop(opts.Logger)
	if opts.GraphEndpoint == "" {
		opts.GraphEndpoint = DefaultGraphEndpoint
	}
	s := &MicrosoftService{
		account: account,
		client:  client,
		opts:    opts,
	}
	s.setToken(ctx, accessToken)
	return s, nil
}

// RefreshAccessToken re-derives the bearer token from the account service
// and rebuilds the Graph client with it.
func (s *MicrosoftService) RefreshAccessToken(ctx context.Context) error {
	accessToken, err := s.client.AccessToken(ctx, s.account.ID)
	if err != nil {
		return errs.E(errs.AccountService, "refresh access token", err)
	}
	s.setToken(ctx, accessToken)
	return nil
}

func (s *MicrosoftService) setToken(ctx context.Context, accessToken string) {
	s.graph = s.opts.client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

// FetchCalendars refreshes the bearer token, then lists the user's
// calendars, following @odata.nextLink.
func (s *MicrosoftService) FetchCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	if err := s.RefreshAccessToken(ctx); err != nil {
		return nil, err
	}

	var calendars []calendar.Calendar
	next := strings.TrimSuffix(s.opts.GraphEndpoint, "/") + "/me/calendars"
	seen := make(map[string]bool)
	for next != "" && !seen[next] {
		seen[next] = true
		page, err := s.listCalendars(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, mc := range page.Value {
			calendars = append(calendars, calendar.FromMicrosoft(mc))
		}
		next = page.ODataNextLink
	}

	level.Debug(s.opts.Logger).Log("msg", "listed calendars", "provider", accounts.Microsoft, "account", s.account.ID, "count", len(calendars))
	return calendars, nil
}

func (s *MicrosoftService) listCalendars(ctx context.Context, url string) (*graph.CalendarsResponse, error) {
	const op = "list calendars"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.E(errs.Unknown, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.graph.Do(req)
	if err != nil {
		return nil, errs.E(errs.RemoteHTTP, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.E(errs.RemoteHTTP, op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Remote(op, resp.StatusCode, string(body))
	}

	var page graph.CalendarsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errs.E(errs.Decode, op, err)
	}
	return &page, nil
}

// Close releases the account service client.
func (s *MicrosoftService) Close() error {
	return s.client.Close()
}
