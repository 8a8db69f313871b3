package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File and directory permissions for the client config file, which holds
// the access token.
const (
	FilePerms = 0o600
	DirPerms  = 0o700
)

// clientKeys are the valid keys in the client config file.
var clientKeys = []string{"dropbox_root", "screenshot_directory", "token"}

// LoadClient reads the JSON client config at path, applies environment
// overrides and defaults, and validates the result. A missing file is only
// acceptable when the token comes from the environment.
func LoadClient(path string, env EnvOverrides) (*Client, error) {
	cfg := &Client{}

	data, err := os.ReadFile(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		if env.Token == "" {
			return nil, fmt.Errorf("%w: config file %s not found", ErrConfigInvalid, path)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfigInvalid, path, err)
	default:
		if err := decodeClient(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
		}
	}

	if env.Token != "" {
		cfg.Token = env.Token
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}

	return cfg, nil
}

// decodeClient strictly decodes data. Unknown keys are fatal, with a
// "did you mean?" suggestion when one is close.
func decodeClient(data []byte, cfg *Client) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	err := dec.Decode(cfg)
	if err == nil {
		return nil
	}

	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return unknownKeyError(strings.Trim(field, `"`), clientKeys)
	}

	return fmt.Errorf("parsing JSON: %w", err)
}

// applyDefaults fills optional keys and makes paths absolute. A relative
// screenshot_directory is taken relative to dropbox_root.
func (c *Client) applyDefaults() {
	if c.DropboxRoot == "" {
		c.DropboxRoot = defaultDropboxRoot
	}

	c.DropboxRoot = absPath(ExpandHome(c.DropboxRoot))

	dir := ExpandHome(c.ScreenshotDirectory)

	switch {
	case dir == "":
		dir = filepath.Join(c.DropboxRoot, defaultScreenshotDir)
	case !filepath.IsAbs(dir):
		dir = filepath.Join(c.DropboxRoot, dir)
	}

	c.ScreenshotDirectory = filepath.Clean(dir)
}

// Validate checks required keys and that the screenshot directory lies
// inside the Dropbox root. All problems are reported together.
func (c *Client) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Token) == "" {
		errs = append(errs, errors.New("token is required"))
	}

	if !isWithin(c.ScreenshotDirectory, c.DropboxRoot) {
		errs = append(errs, fmt.Errorf("screenshot_directory %s is not inside dropbox_root %s",
			c.ScreenshotDirectory, c.DropboxRoot))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to print: the token is masked except for
// its last four characters.
func (c *Client) Redacted() Client {
	out := *c

	const visible = 4
	if len(out.Token) > visible {
		out.Token = strings.Repeat("*", len(out.Token)-visible) + out.Token[len(out.Token)-visible:]
	} else if out.Token != "" {
		out.Token = "****"
	}

	return out
}

// SaveClient writes cfg to path atomically (write-to-temp + rename) with
// 0600 permissions, since the file holds the access token.
func SaveClient(path string, cfg *Client) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}

	data = append(data, '\n')

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("config: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("config: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("config: renaming: %w", err)
	}

	success = true

	return nil
}

// ReadClientFile decodes the client file at path without defaults or
// validation, for read-modify-write edits. A missing file yields an empty
// config.
func ReadClientFile(path string) (*Client, error) {
	cfg := &Client{}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := decodeClient(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}

	return cfg, nil
}

// Set assigns a client config key by its JSON name.
func (c *Client) Set(key, value string) error {
	switch key {
	case "token":
		c.Token = value
	case "dropbox_root":
		c.DropboxRoot = value
	case "screenshot_directory":
		c.ScreenshotDirectory = value
	default:
		return unknownKeyError(key, clientKeys)
	}

	return nil
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}

	return abs
}
