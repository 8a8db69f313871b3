// Package links maps local files inside the Dropbox folder to their remote
// paths and finds or creates public shared links for them, waiting for the
// desktop sync agent when the provider has not seen a file yet.
package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/shotty/internal/dropbox"
	"github.com/tonimelisma/shotty/pkg/contenthash"
)

// DefaultRetryDelay is the fixed wait between not-found retries.
const DefaultRetryDelay = 2 * time.Second

// Shared-link hosts. Preview links are rewritten to the host that serves
// raw file bytes.
const (
	previewHost = "www.dropbox.com"
	directHost  = "dl.dropboxusercontent.com"
)

// monthLayout keys upload destinations by calendar month.
const monthLayout = "2006-01"

var (
	ErrNoSharedLink     = errors.New("links: no shared link exists")
	ErrLocalFileMissing = errors.New("links: local file does not exist")
	ErrRetriesExhausted = errors.New("links: gave up waiting for file to sync")
	ErrContentMismatch  = errors.New("links: uploaded content hash does not match local file")
)

// Mode selects how SharedLink obtains a link.
type Mode int

const (
	// FindOnly returns an existing link and fails if there is none.
	FindOnly Mode = iota
	// CreateOnly creates a link; the provider rejects it if one exists.
	CreateOnly
	// FindThenCreate returns an existing link or creates one.
	FindThenCreate
)

func (m Mode) String() string {
	switch m {
	case FindOnly:
		return "find"
	case CreateOnly:
		return "create"
	case FindThenCreate:
		return "find-or-create"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// API is the subset of the Dropbox client the resolver needs.
type API interface {
	ListSharedLinks(ctx context.Context, path string) ([]dropbox.SharedLink, error)
	CreateSharedLink(ctx context.Context, path string) (*dropbox.SharedLink, error)
	Upload(ctx context.Context, path string, data []byte) (*dropbox.FileMetadata, error)
}

// SyncAgent reports whether the desktop sync client is running. Not-found
// errors are only worth waiting out while it is.
type SyncAgent interface {
	Running() bool
}

// Reference ties a local file to its remote path and shared link.
type Reference struct {
	LocalPath  string
	RemotePath string
	URL        string
}

// Resolver resolves remote paths and shared links for local files.
type Resolver struct {
	api        API
	root       string
	captureDir string
	agent      SyncAgent
	logger     *slog.Logger

	// RetryDelay is the wait between not-found retries.
	RetryDelay time.Duration

	sleepFunc func(ctx context.Context, d time.Duration) error
	nowFunc   func() time.Time
}

// NewResolver creates a Resolver. root is the local Dropbox folder and
// captureDir the folder uploads are filed under; both are absolute paths.
func NewResolver(api API, root, captureDir string, agent SyncAgent, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		api:        api,
		root:       filepath.Clean(root),
		captureDir: filepath.Clean(captureDir),
		agent:      agent,
		logger:     logger,
		RetryDelay: DefaultRetryDelay,
		sleepFunc:  timeSleep,
		nowFunc:    time.Now,
	}
}

// ResolveRemotePath returns the provider path for a local path: the
// absolute path with the root prefix removed, slash separated and NFC
// normalized. Paths outside the root are returned unchanged.
func (r *Resolver) ResolveRemotePath(localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("links: resolving %s: %w", localPath, err)
	}

	rel := abs
	if abs == r.root {
		rel = ""
	} else if strings.HasPrefix(abs, r.root+string(filepath.Separator)) {
		rel = strings.TrimPrefix(abs, r.root)
	}

	return norm.NFC.String(filepath.ToSlash(rel)), nil
}

// SharedLink returns a normalized shared link for localPath using mode.
// When the provider reports the path as not found, the call is repeated
// up to maxRetries times, RetryDelay apart, as long as the local file
// exists and the sync agent is running.
func (r *Resolver) SharedLink(ctx context.Context, localPath string, mode Mode, maxRetries int) (*Reference, error) {
	remote, err := r.ResolveRemotePath(localPath)
	if err != nil {
		return nil, err
	}

	return r.linkWithRetry(ctx, localPath, remote, mode, maxRetries)
}

// Upload stores localPath under the capture directory in a per-month
// folder and creates a shared link for the uploaded file.
func (r *Resolver) Upload(ctx context.Context, localPath string) (*Reference, error) {
	if !fileExists(localPath) {
		return nil, fmt.Errorf("%w: %s", ErrLocalFileMissing, localPath)
	}

	captureRemote, err := r.ResolveRemotePath(r.captureDir)
	if err != nil {
		return nil, err
	}

	name := norm.NFC.String(filepath.Base(localPath))
	dest := path.Join("/", captureRemote, r.nowFunc().Format(monthLayout), name)

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("links: reading %s: %w", localPath, err)
	}

	r.logger.Info("uploading file",
		slog.String("local", localPath),
		slog.String("remote", dest),
		slog.Int("bytes", len(data)),
	)

	meta, err := r.api.Upload(ctx, dest, data)
	if err != nil {
		return nil, err
	}

	// The provider may omit the hash; only a reported one is checked.
	if meta.ContentHash != "" {
		if local := contenthash.Sum(data); local != meta.ContentHash {
			return nil, fmt.Errorf("%w: %s (local %s, remote %s)",
				ErrContentMismatch, meta.PathDisplay, local, meta.ContentHash)
		}
	}

	return r.linkWithRetry(ctx, localPath, meta.PathDisplay, CreateOnly, 0)
}

// linkWithRetry is the bounded retry loop around a single link lookup.
func (r *Resolver) linkWithRetry(
	ctx context.Context, localPath, remote string, mode Mode, maxRetries int,
) (*Reference, error) {
	for attempt := 0; ; attempt++ {
		link, err := r.link(ctx, remote, mode)
		if err == nil {
			return &Reference{LocalPath: localPath, RemotePath: remote, URL: link}, nil
		}

		if !errors.Is(err, dropbox.ErrNotFound) || maxRetries <= 0 {
			return nil, err
		}

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, maxRetries, err)
		}

		if !fileExists(localPath) || r.agent == nil || !r.agent.Running() {
			return nil, err
		}

		r.logger.Warn("file not on server yet, retrying",
			slog.String("path", remote),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", maxRetries),
			slog.Duration("delay", r.RetryDelay),
		)

		if sleepErr := r.sleepFunc(ctx, r.RetryDelay); sleepErr != nil {
			return nil, fmt.Errorf("links: retry canceled: %w", sleepErr)
		}
	}
}

// link performs one lookup for remote according to mode.
func (r *Resolver) link(ctx context.Context, remote string, mode Mode) (string, error) {
	var raw string

	switch mode {
	case FindOnly, FindThenCreate:
		existing, err := r.api.ListSharedLinks(ctx, remote)
		if err != nil {
			return "", err
		}

		if len(existing) > 0 {
			raw = existing[0].URL
			break
		}

		if mode == FindOnly {
			return "", fmt.Errorf("%w for %s", ErrNoSharedLink, remote)
		}

		fallthrough
	case CreateOnly:
		created, err := r.api.CreateSharedLink(ctx, remote)
		if err != nil {
			return "", err
		}

		raw = created.URL
	default:
		return "", fmt.Errorf("links: unknown mode %v", mode)
	}

	return NormalizeURL(raw)
}

// NormalizeURL rewrites a preview link to the direct-content host and
// drops the query string. Normalizing a normalized URL is a no-op.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("links: parsing shared link %q: %w", raw, err)
	}

	if strings.EqualFold(u.Host, previewHost) {
		u.Host = directHost
	}

	u.RawQuery = ""
	u.ForceQuery = false

	return u.String(), nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)

	return err == nil && !info.IsDir()
}

// timeSleep waits for the given duration or until the context is canceled.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
