// Package authsession implements the server side of the OAuth2
// authorization-code flow: per-session CSRF tokens, the provider redirect,
// and verified exchange of the returned code for an access token.
package authsession

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// csrfTokenBytes is the number of random bytes in a CSRF token.
const csrfTokenBytes = 16

// Config describes the OAuth2 client registered with the provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthorizeURL string
	TokenURL     string
}

// Callback holds the query parameters the provider redirects back with.
type Callback struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// Manager drives the authorization flow for sessions held in a Store.
type Manager struct {
	oauth      *oauth2.Config
	store      *Store
	httpClient *http.Client
	logger     *slog.Logger

	// randRead fills b with random bytes. Tests override it.
	randRead func(b []byte) (int, error)
}

// NewManager creates a Manager. httpClient is used for the token exchange;
// nil means http.DefaultClient.
func NewManager(cfg Config, store *Store, httpClient *http.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:      store,
		httpClient: httpClient,
		logger:     logger,
		randRead:   rand.Read,
	}
}

// Begin returns the session (created if sessionID is unknown) and the
// provider authorization URL to redirect to. The CSRF token is minted on
// first use and reused afterwards, so repeated calls yield the same state.
func (m *Manager) Begin(sessionID string) (Session, string, error) {
	sess, err := m.store.Upsert(sessionID, func(s *Session) error {
		if s.CSRFToken == "" {
			tok, err := m.newCSRFToken()
			if err != nil {
				return err
			}

			s.CSRFToken = tok
		}

		s.State = Authorizing

		return nil
	})
	if err != nil {
		return Session{}, "", fmt.Errorf("authsession: generating state token: %w", err)
	}

	m.logger.Info("authorization started", slog.String("session", shortID(sess.ID)))

	return sess, m.oauth.AuthCodeURL(sess.CSRFToken), nil
}

// Complete verifies the callback against the session and exchanges the
// code for an access token. The session is marked Completed whatever the
// outcome. The token is returned for display and never stored.
func (m *Manager) Complete(ctx context.Context, sessionID string, cb Callback) (string, error) {
	var valid bool

	_, err := m.store.Update(sessionID, func(s *Session) error {
		valid = s.State == Authorizing && s.CSRFToken != "" && cb.State != "" &&
			subtle.ConstantTimeCompare([]byte(cb.State), []byte(s.CSRFToken)) == 1
		s.State = Completed

		return nil
	})
	if err != nil || !valid {
		m.logger.Warn("authorization callback rejected: state mismatch",
			slog.String("session", shortID(sessionID)),
		)

		return "", ErrStateMismatch
	}

	if cb.Error != "" {
		m.logger.Info("authorization denied by provider",
			slog.String("session", shortID(sessionID)),
			slog.String("error", cb.Error),
		)

		return "", &ProviderDeniedError{Code: cb.Error, Description: cb.ErrorDescription}
	}

	if cb.Code == "" {
		return "", ErrMissingCode
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.oauth.Exchange(ctx, cb.Code)
	if err != nil {
		m.logger.Error("token exchange failed",
			slog.String("session", shortID(sessionID)),
			slog.String("error", err.Error()),
		)

		return "", fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	m.logger.Info("authorization completed", slog.String("session", shortID(sessionID)))

	return tok.AccessToken, nil
}

// newCSRFToken produces a cryptographically random hex string.
func (m *Manager) newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := m.randRead(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
