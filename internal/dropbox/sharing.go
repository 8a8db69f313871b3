package dropbox

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	pathListSharedLinks  = "/2/sharing/list_shared_links"
	pathCreateSharedLink = "/2/sharing/create_shared_link_with_settings"
	visibilityPublic     = "public"
)

type listSharedLinksArg struct {
	Path       string `json:"path"`
	DirectOnly bool   `json:"direct_only"`
}

type listSharedLinksResult struct {
	Links   []SharedLink `json:"links"`
	HasMore bool         `json:"has_more"`
}

type createSharedLinkArg struct {
	Path     string             `json:"path"`
	Settings sharedLinkSettings `json:"settings"`
}

type sharedLinkSettings struct {
	RequestedVisibility string `json:"requested_visibility"`
}

// ListSharedLinks returns the shared links that point directly at path.
// An empty slice means the file exists but has no link yet.
func (c *Client) ListSharedLinks(ctx context.Context, path string) ([]SharedLink, error) {
	var res listSharedLinksResult

	arg := listSharedLinksArg{Path: path, DirectOnly: true}
	if err := c.rpc(ctx, pathListSharedLinks, arg, &res); err != nil {
		return nil, fmt.Errorf("listing shared links for %s: %w", path, err)
	}

	c.logger.Debug("listed shared links",
		slog.String("path", path),
		slog.Int("count", len(res.Links)),
	)

	return res.Links, nil
}

// CreateSharedLink creates a public shared link for path. The provider
// rejects the call with shared_link_already_exists if one exists.
func (c *Client) CreateSharedLink(ctx context.Context, path string) (*SharedLink, error) {
	var link SharedLink

	arg := createSharedLinkArg{
		Path:     path,
		Settings: sharedLinkSettings{RequestedVisibility: visibilityPublic},
	}
	if err := c.rpc(ctx, pathCreateSharedLink, arg, &link); err != nil {
		return nil, fmt.Errorf("creating shared link for %s: %w", path, err)
	}

	c.logger.Info("created shared link", slog.String("path", path))

	return &link, nil
}
