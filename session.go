package main

import (
	"context"
	"net/http"

	"github.com/tonimelisma/shotty/internal/desktop"
	"github.com/tonimelisma/shotty/internal/dropbox"
	"github.com/tonimelisma/shotty/internal/links"
)

// Session holds the provider clients and collaborators for one command.
type Session struct {
	Client   *dropbox.Client // metadata calls, bounded by --timeout
	Transfer *dropbox.Client // uploads, no overall timeout
	Desktop  *desktop.Desktop
	Resolver *links.Resolver
}

// NewSession builds the clients for the loaded config. ctx bounds the
// sync-agent process checks made while waiting for a file to sync.
func NewSession(ctx context.Context, cc *CLIContext) *Session {
	token := dropbox.StaticToken(cc.Cfg.Token, cc.Logger)

	client := dropbox.NewClient(dropboxAPIURL, dropboxContentURL, cc.httpClient(), token, cc.Logger)
	transfer := dropbox.NewClient(dropboxAPIURL, dropboxContentURL, &http.Client{}, token, cc.Logger)

	d := desktop.New(cc.Logger)

	api := &sessionAPI{meta: client, transfer: transfer}
	resolver := links.NewResolver(api, cc.Cfg.DropboxRoot, cc.Cfg.ScreenshotDirectory,
		d.SyncAgent(ctx), cc.Logger)

	return &Session{
		Client:   client,
		Transfer: transfer,
		Desktop:  d,
		Resolver: resolver,
	}
}

// sessionAPI routes link calls to the metadata client and uploads to the
// transfer client.
type sessionAPI struct {
	meta     *dropbox.Client
	transfer *dropbox.Client
}

func (a *sessionAPI) ListSharedLinks(ctx context.Context, path string) ([]dropbox.SharedLink, error) {
	return a.meta.ListSharedLinks(ctx, path)
}

func (a *sessionAPI) CreateSharedLink(ctx context.Context, path string) (*dropbox.SharedLink, error) {
	return a.meta.CreateSharedLink(ctx, path)
}

func (a *sessionAPI) Upload(ctx context.Context, path string, data []byte) (*dropbox.FileMetadata, error) {
	return a.transfer.Upload(ctx, path, data)
}
