package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/shotty/internal/config"
)

// testEnv is an isolated config file, Dropbox folder, history ledger, and
// fake provider for one test.
type testEnv struct {
	cfgPath string
	root    string
	calls   []string
	mu      sync.Mutex
	api     *httptest.Server
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		cfgPath: filepath.Join(dir, "config.json"),
		root:    filepath.Join(dir, "Dropbox"),
	}

	require.NoError(t, os.MkdirAll(env.root, 0o755))
	require.NoError(t, config.SaveClient(env.cfgPath, &config.Client{
		Token:       "secret-token-1234",
		DropboxRoot: env.root,
	}))

	env.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.calls = append(env.calls, r.URL.Path)
		env.mu.Unlock()

		assert.Equal(t, "Bearer secret-token-1234", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(env.api.Close)

	oldAPI, oldContent, oldHistory := dropboxAPIURL, dropboxContentURL, historyPath
	t.Cleanup(func() {
		dropboxAPIURL, dropboxContentURL, historyPath = oldAPI, oldContent, oldHistory
	})

	dropboxAPIURL = env.api.URL
	dropboxContentURL = env.api.URL
	historyPath = func() string { return filepath.Join(dir, "history.db") }

	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvToken, "")

	return env
}

// run executes the root command with args and returns stdout.
func (env *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", env.cfgPath, "--quiet"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func (env *testEnv) writeFile(t *testing.T, rel string) string {
	t.Helper()

	p := filepath.Join(env.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("png"), 0o644))

	return p
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{
		"authorize", "config", "config-file", "create-url", "dropbox-status", "get-url",
		"history", "mv-last-screenshot", "plist", "plist-file", "upload", "url", "usage",
		"version", "watch",
	}

	var got []string
	for _, c := range cmd.Commands() {
		got = append(got, c.Name())
	}

	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestNeedsConfig(t *testing.T) {
	root := newRootCmd()

	tests := map[string]bool{
		"url":            true,
		"upload":         true,
		"usage":          true,
		"watch":          true,
		"config":         true,
		"config set":     false,
		"config-file":    false,
		"authorize":      false,
		"dropbox-status": false,
		"history":        false,
		"plist":          false,
		"plist-file":     false,
		"version":        false,
	}

	for args, want := range tests {
		c, _, err := root.Find(strings.Fields(args))
		require.NoError(t, err, args)
		assert.Equal(t, want, needsConfig(c), args)
	}
}

func TestHelpAndCompletionWithoutConfig(t *testing.T) {
	env := newTestEnv(t, nil)
	env.cfgPath = filepath.Join(t.TempDir(), "missing.json")

	for _, args := range [][]string{
		{"help"},
		{"help", "url"},
		{"completion", "bash"},
	} {
		out, err := env.run(t, args...)
		require.NoError(t, err, args)
		assert.NotEmpty(t, out, args)
	}
}

func TestUnknownLogFormatFails(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.run(t, "--log-format", "bogus", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "bogus"`)
}

func TestBuildLogger_Levels(t *testing.T) {
	ctx := context.Background()

	logger := buildLogger(CLIFlags{LogFormat: "text"})
	assert.True(t, logger.Handler().Enabled(ctx, slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(ctx, slog.LevelInfo))

	logger = buildLogger(CLIFlags{Verbose: true, LogFormat: "text"})
	assert.True(t, logger.Handler().Enabled(ctx, slog.LevelDebug))

	logger = buildLogger(CLIFlags{Quiet: true, LogFormat: "json"})
	assert.False(t, logger.Handler().Enabled(ctx, slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(ctx, slog.LevelError))
}

func TestVersionCmd(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "shotty dev\n", out)
}

func TestMissingConfigFails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.cfgPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := env.run(t, "url", "x.png")
	require.ErrorIs(t, err, config.ErrConfigInvalid)
}

func TestConfigCmd_RedactsToken(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run(t, "config", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "*************1234", got["token"])
	assert.Equal(t, env.root, got["dropbox_root"])
	assert.Equal(t, filepath.Join(env.root, "Screenshots"), got["screenshot_directory"])

	out, err = env.run(t, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret-token")
	assert.Contains(t, out, "dropbox_root")
}

func TestConfigSetAndConfigFile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.cfgPath = filepath.Join(t.TempDir(), "fresh", "config.json")

	out, err := env.run(t, "config-file")
	require.NoError(t, err)
	assert.Equal(t, env.cfgPath+"\n", out)

	_, err = env.run(t, "config", "set", "token", "new-token")
	require.NoError(t, err)

	cfg, err := config.ReadClientFile(env.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "new-token", cfg.Token)

	_, err = env.run(t, "config", "set", "tokn", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "token"`)
}

func TestAuthorizeURL(t *testing.T) {
	got, err := authorizeURL("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/authorize", got)

	got, err = authorizeURL("https://auth.example.com/shotty?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/shotty/authorize", got)

	_, err = authorizeURL("localhost")
	assert.Error(t, err)
}

func TestAcquireLock_SecondFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", watchLockName)

	release, err := acquireLock(path)
	require.NoError(t, err)

	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	_, err = acquireLock(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	release()
	assert.NoFileExists(t, path)

	release, err = acquireLock(path)
	require.NoError(t, err)
	release()
}

func TestAcquireLock_EmptyPath(t *testing.T) {
	_, err := acquireLock("")
	assert.Error(t, err)
}

func TestPlistFileCmd(t *testing.T) {
	env := newTestEnv(t, nil)
	t.Setenv("HOME", "/home/tester")

	out, err := env.run(t, "plist-file")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Library/LaunchAgents/com.github.tonimelisma.shotty.plist"))

	out, err = env.run(t, "plist", "--source", "/tmp/shots")
	require.NoError(t, err)
	assert.Contains(t, out, "<string>/tmp/shots</string>")
	assert.Contains(t, out, "<string>mv-last-screenshot</string>")
}
