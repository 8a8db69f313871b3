// Package desktop wraps the OS collaborators the CLI leans on: the
// clipboard, user notifications, the browser, and the Dropbox sync agent.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
)

// AgentProcess is the process name of the Dropbox desktop client.
const AgentProcess = "Dropbox"

// runFunc runs an external command. Tests replace it.
type runFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Desktop performs side effects on the user's machine.
type Desktop struct {
	logger  *slog.Logger
	goos    string
	run     runFunc
	copyFn  func(string) error
	process string
}

// New returns a Desktop for the current OS.
func New(logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Desktop{
		logger:  logger,
		goos:    runtime.GOOS,
		run:     runCommand,
		copyFn:  clipboard.WriteAll,
		process: AgentProcess,
	}
}

// CopyToClipboard places text on the system clipboard.
func (d *Desktop) CopyToClipboard(text string) error {
	if err := d.copyFn(text); err != nil {
		return fmt.Errorf("desktop: copying to clipboard: %w", err)
	}

	d.logger.Debug("copied to clipboard", slog.Int("bytes", len(text)))

	return nil
}

// Notify shows a desktop notification. Failures are logged, not returned:
// a missing notifier never fails the operation that triggered it.
func (d *Desktop) Notify(ctx context.Context, title, message string) {
	var err error

	switch d.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			strconv.Quote(message), strconv.Quote(title))
		err = d.run(ctx, "osascript", "-e", script)
	case "linux":
		err = d.run(ctx, "notify-send", title, message)
	default:
		err = fmt.Errorf("notifications unsupported on %s", d.goos)
	}

	if err != nil {
		d.logger.Debug("notification not shown", slog.String("error", err.Error()))
	}
}

// OpenURL opens url in the default browser.
func (d *Desktop) OpenURL(ctx context.Context, url string) error {
	var err error

	switch d.goos {
	case "darwin":
		err = d.run(ctx, "open", url)
	case "windows":
		err = d.run(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		err = d.run(ctx, "xdg-open", url)
	}

	if err != nil {
		return fmt.Errorf("desktop: opening browser: %w", err)
	}

	return nil
}

// SyncAgent reports whether the Dropbox desktop client is running.
type SyncAgent struct {
	ctx context.Context
	d   *Desktop
}

// SyncAgent returns a checker bound to ctx for process lookups.
func (d *Desktop) SyncAgent(ctx context.Context) *SyncAgent {
	return &SyncAgent{ctx: ctx, d: d}
}

// Running reports whether the agent process exists. Lookup failures count
// as not running.
func (a *SyncAgent) Running() bool {
	running, err := a.d.ProcessRunning(a.ctx, a.d.process)
	if err != nil {
		a.d.logger.Debug("process check failed", slog.String("error", err.Error()))
		return false
	}

	return running
}

// ProcessRunning reports whether a process with exactly this name exists.
func (d *Desktop) ProcessRunning(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, errors.New("desktop: empty process name")
	}

	err := d.run(ctx, "pgrep", "-x", name)
	if err == nil {
		return true, nil
	}

	// pgrep exits 1 when nothing matched.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}

	return false, fmt.Errorf("desktop: checking for %s: %w", name, err)
}
