package services

import (
	"context"
	"errors"
	"net/url"

	"github.com/beekhof/calendar-hub/internal/accounts"
	"github.com/beekhof/calendar-hub/internal/calendar"
	"github.com/beekhof/calendar-hub/internal/errs"
	"github.com/beekhof/calendar-hub/internal/logging"

	"github.com/go-kit/log/level"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleService lists calendars through the Google Calendar API.
type GoogleService struct {
	account accounts.Account
	client  accounts.Client
	opts    Options
	token   *oauth2.Token
	google  *gcal.Service
}

// NewGoogleService fetches the account's tokens and builds the API client.
func NewGoogleService(ctx context.Context, account accounts.Account, client accounts.Client, opts Options) (*GoogleService, error) {
	accessToken, err := client.AccessToken(ctx, account.ID)
	if err != nil {
		return nil, errs.E(errs.AccountService, "get access token", err)
	}
	refreshToken, err := client.RefreshToken(ctx, account.ID)
	if err != nil {
		return nil, errs.E(errs.AccountService, "get refresh token", err)
	}

	opts.Logger = logging.OrNop(opts.Logger)
	s := &GoogleService{
		account: account,
		client:  client,
		opts:    opts,
	}
	if err := s.setToken(ctx, &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// RefreshAccessToken re-derives the access token from the account service
// and rebuilds the API client with it.
func (s *GoogleService) RefreshAccessToken(ctx context.Context) error {
	accessToken, err := s.client.AccessToken(ctx, s.account.ID)
	if err != nil {
		return errs.E(errs.AccountService, "refresh access token", err)
	}
	return s.setToken(ctx, &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: s.token.RefreshToken,
		TokenType:    "Bearer",
	})
}

func (s *GoogleService) setToken(ctx context.Context, token *oauth2.Token) error {
	opts := []option.ClientOption{option.WithHTTPClient(s.opts.client(ctx, token))}
	if s.opts.GoogleEndpoint != "" {
		opts = append(opts, option.WithEndpoint(s.opts.GoogleEndpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return errs.E(errs.Unknown, "create calendar service", err)
	}
	s.token = token
	s.google = svc
	return nil
}

// FetchCalendars refreshes the access token, then lists every calendar that
// is not deleted, following all result pages.
func (s *GoogleService) FetchCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	if err := s.RefreshAccessToken(ctx); err != nil {
		return nil, err
	}

	var calendars []calendar.Calendar
	err := s.google.CalendarList.List().ShowDeleted(false).Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			calendars = append(calendars, calendar.FromGoogle(item))
		}
		return nil
	})
	if err != nil {
		return nil, googleError("list calendars", err)
	}

	level.Debug(s.opts.Logger).Log("msg", "listed calendars", "provider", accounts.Google, "account", s.account.ID, "count", len(calendars))
	return calendars, nil
}

// Close releases the account service client.
func (s *GoogleService) Close() error {
	return s.client.Close()
}

func googleError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		body := apiErr.Body
		if body == "" {
			body = apiErr.Message
		}
		return errs.Remote(op, apiErr.Code, body)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return errs.E(errs.RemoteHTTP, op, err)
	}
	return errs.E(errs.Unknown, op, err)
}
