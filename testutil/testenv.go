// Package testutil provides test environment helpers for the E2E tests.
// It depends only on stdlib so that E2E tests, which build and run the
// binary, stay outside internal/.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the E2E tests.
const (
	EnvE2EToken = "SHOTTY_E2E_TOKEN"
	EnvE2ERoot  = "SHOTTY_E2E_DROPBOX_ROOT"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// A missing file is not an error. Existing env vars take precedence.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// RequireEnv returns the value of each named variable, or reports the
// missing ones so the caller can skip.
func RequireEnv(names ...string) (map[string]string, error) {
	values := make(map[string]string, len(names))

	var missing []string

	for _, n := range names {
		v := os.Getenv(n)
		if v == "" {
			missing = append(missing, n)
			continue
		}

		values[n] = v
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing environment: %s", strings.Join(missing, ", "))
	}

	return values, nil
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// WriteClientConfig writes a shotty client config for the E2E account.
func WriteClientConfig(path, token, dropboxRoot string) error {
	body := fmt.Sprintf("{\n  %q: %q,\n  %q: %q\n}\n", "token", token, "dropbox_root", dropboxRoot)

	return os.WriteFile(path, []byte(body), 0o600)
}
