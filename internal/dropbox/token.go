package dropbox

import (
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// StaticToken returns a TokenSource serving a long-lived access token
// issued by the authorization server.
func StaticToken(accessToken string, logger *slog.Logger) TokenSource {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	return &tokenBridge{src: src, logger: logger}
}

// tokenBridge adapts oauth2.TokenSource to dropbox.TokenSource.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	t, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("dropbox: obtaining token: %w", err)
	}

	if t.AccessToken == "" {
		return "", fmt.Errorf("dropbox: empty access token")
	}

	return t.AccessToken, nil
}
