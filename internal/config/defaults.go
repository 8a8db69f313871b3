package config

import "time"

// Default values for configuration options.
const (
	defaultDropboxRoot     = "~/Dropbox"
	defaultScreenshotDir   = "Screenshots"
	defaultListenAddr      = ":8080"
	defaultRedirectURL     = "http://localhost:8080/callback"
	defaultAuthorizeURL    = "https://www.dropbox.com/oauth2/authorize"
	defaultTokenURL        = "https://api.dropboxapi.com/oauth2/token"
	defaultSessionTTL      = 900 * time.Second
	defaultExchangeTimeout = 30 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// DefaultServer returns a Server populated with all default values. It is
// the starting point for TOML decoding so unset keys keep their defaults.
func DefaultServer() *Server {
	return &Server{
		ListenAddr:      defaultListenAddr,
		RedirectURL:     defaultRedirectURL,
		AuthorizeURL:    defaultAuthorizeURL,
		TokenURL:        defaultTokenURL,
		SessionTTL:      defaultSessionTTL,
		ExchangeTimeout: defaultExchangeTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}
