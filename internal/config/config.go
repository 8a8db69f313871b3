// Package config loads, validates, and writes configuration for shotty:
// the JSON client file read by the CLI and the TOML file read by the
// authorization server. Platform-specific default paths live here too.
package config

import (
	"errors"
	"time"
)

// ErrConfigInvalid wraps every configuration problem: unreadable or
// malformed files, missing required keys, and inconsistent paths.
var ErrConfigInvalid = errors.New("config: invalid configuration")

// Client is the CLI configuration stored as JSON. Paths are absolute after
// loading; the on-disk file may use "~" and may omit the optional keys.
type Client struct {
	Token               string `json:"token"`
	DropboxRoot         string `json:"dropbox_root,omitempty"`
	ScreenshotDirectory string `json:"screenshot_directory,omitempty"`
}

// Server is the authorization server configuration stored as TOML.
type Server struct {
	ListenAddr      string        `toml:"listen_addr"`
	ClientID        string        `toml:"client_id"`
	ClientSecret    string        `toml:"client_secret"`
	RedirectURL     string        `toml:"redirect_url"`
	AuthorizeURL    string        `toml:"authorize_url"`
	TokenURL        string        `toml:"token_url"`
	SessionTTL      time.Duration `toml:"session_ttl"`
	CookieSecure    bool          `toml:"cookie_secure"`
	ExchangeTimeout time.Duration `toml:"exchange_timeout"`
	LogLevel        string        `toml:"log_level"`
	LogFormat       string        `toml:"log_format"`
}
