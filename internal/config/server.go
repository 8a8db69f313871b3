package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tonimelisma/shotty/internal/logging"
)

// Validation bounds for server durations.
const (
	minSessionTTL      = 1 * time.Minute
	minExchangeTimeout = 1 * time.Second
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// reservedServerPaths are served by the auth server itself and cannot
// double as the OAuth2 callback.
var reservedServerPaths = []string{"/", "/authorize", "/healthz"}

// serverKeys are the valid keys in the server config file.
var serverKeys = []string{
	"authorize_url", "client_id", "client_secret", "cookie_secure", "exchange_timeout",
	"listen_addr", "log_format", "log_level", "redirect_url", "session_ttl", "token_url",
}

// LoadServer reads the TOML server config at path if it exists, applies
// environment overrides, and validates the result. Unknown keys are fatal.
func LoadServer(path string, env EnvOverrides) (*Server, error) {
	cfg := DefaultServer()

	if _, err := os.Stat(path); err == nil {
		md, decErr := toml.DecodeFile(path, cfg)
		if decErr != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfigInvalid, path, decErr)
		}

		if err := checkUnknownKeys(&md, serverKeys); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
		}
	}

	if env.ServerListen != "" {
		cfg.ListenAddr = env.ServerListen
	}

	if env.ServerClientID != "" {
		cfg.ClientID = env.ServerClientID
	}

	if env.ServerClientSecret != "" {
		cfg.ClientSecret = env.ServerClientSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Validate checks all server values and returns every error found.
func (s *Server) Validate() error {
	var errs []error

	if s.ClientID == "" {
		errs = append(errs, errors.New("client_id is required"))
	}

	if s.ClientSecret == "" {
		errs = append(errs, errors.New("client_secret is required"))
	}

	if s.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr must not be empty"))
	}

	if err := validateAbsURL("redirect_url", s.RedirectURL); err != nil {
		errs = append(errs, err)
	} else if p := s.CallbackPath(); slices.Contains(reservedServerPaths, p) {
		errs = append(errs, fmt.Errorf("redirect_url path %q is reserved; use a dedicated path such as /callback", p))
	}

	errs = append(errs, validateAbsURL("authorize_url", s.AuthorizeURL))
	errs = append(errs, validateAbsURL("token_url", s.TokenURL))

	if s.SessionTTL < minSessionTTL {
		errs = append(errs, fmt.Errorf("session_ttl must be at least %s, got %s", minSessionTTL, s.SessionTTL))
	}

	if s.ExchangeTimeout < minExchangeTimeout {
		errs = append(errs, fmt.Errorf("exchange_timeout must be at least %s, got %s",
			minExchangeTimeout, s.ExchangeTimeout))
	}

	if !validLogLevels[strings.ToLower(s.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", s.LogLevel))
	}

	if _, err := logging.ParseFormat(s.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("log_format: %w", err))
	}

	return errors.Join(errs...)
}

// CallbackPath is the request path of the redirect URL, where the
// provider sends the browser back. A URL without a path yields "/".
func (s *Server) CallbackPath() string {
	u, err := url.Parse(s.RedirectURL)
	if err != nil || u.Path == "" {
		return "/"
	}

	return u.Path
}

func validateAbsURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}

	return nil
}
