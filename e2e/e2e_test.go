//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/shotty/testutil"
)

var (
	binaryPath string
	configPath string
	envErr     error
)

func TestMain(m *testing.M) {
	root := testutil.FindModuleRoot("..")
	testutil.LoadDotEnv(filepath.Join(root, ".env"))

	tmpDir, err := os.MkdirTemp("", "shotty-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "shotty")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	env, err := testutil.RequireEnv(testutil.EnvE2EToken, testutil.EnvE2ERoot)
	if err != nil {
		envErr = err
	} else {
		configPath = filepath.Join(tmpDir, "config.json")
		envErr = testutil.WriteClientConfig(configPath, env[testutil.EnvE2EToken], env[testutil.EnvE2ERoot])
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func requireAccount(t *testing.T) {
	t.Helper()

	if envErr != nil {
		t.Skipf("live Dropbox account not configured: %v", envErr)
	}
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()

	fullArgs := append([]string{"--config", configPath, "--quiet"}, args...)
	cmd := exec.Command(binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "XDG_DATA_HOME="+t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("shotty %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout.String(), stderr.String())
	}

	return stdout.String()
}

func TestE2E_Version(t *testing.T) {
	out, err := exec.Command(binaryPath, "version").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "shotty ")
}

func TestE2E_Usage(t *testing.T) {
	requireAccount(t)

	var got struct {
		Used      int64 `json:"used"`
		Allocated int64 `json:"allocated"`
	}
	require.NoError(t, json.Unmarshal([]byte(runCLI(t, "usage", "--json")), &got))
	assert.Positive(t, got.Allocated)
}

func TestE2E_UploadProducesDirectLink(t *testing.T) {
	requireAccount(t)

	name := fmt.Sprintf("shotty-e2e-%d.txt", time.Now().UnixNano())
	local := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(local, []byte("Hello from the shotty E2E test!\n"), 0o644))

	out := runCLI(t, "upload", "--no-copy", local)

	u, err := url.Parse(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "dl.dropboxusercontent.com", u.Host)
	assert.Empty(t, u.RawQuery)
	assert.Equal(t, name, filepath.Base(u.Path))
}
