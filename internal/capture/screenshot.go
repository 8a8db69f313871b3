// Package capture finds freshly taken screenshots, files them into the
// dated capture directory, and watches the source directory for new ones.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoScreenshot is returned when the source directory holds no screenshot.
var ErrNoScreenshot = errors.New("capture: no screenshot found")

// MonthLayout names the per-month subdirectory (YYYY-MM).
const MonthLayout = "2006-01"

// maxNameAttempts bounds the search for a free destination name.
const maxNameAttempts = 1000

var screenshotPrefixes = []string{"Screen Shot", "Screenshot", "Screen Recording"}

var screenshotExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".heic": true,
	".tiff": true, ".gif": true, ".mov": true,
}

// IsScreenshot reports whether name looks like a file the OS screenshot
// tool saves. Hidden files (in-progress writes) never match.
func IsScreenshot(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	if !screenshotExts[strings.ToLower(filepath.Ext(base))] {
		return false
	}

	for _, p := range screenshotPrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}

	return false
}

// FindLatest returns the most recently modified screenshot in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("capture: reading %s: %w", dir, err)
	}

	var (
		latest  string
		latestT time.Time
	)

	for _, e := range entries {
		if !e.Type().IsRegular() || !IsScreenshot(e.Name()) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		if latest == "" || info.ModTime().After(latestT) {
			latest = filepath.Join(dir, e.Name())
			latestT = info.ModTime()
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoScreenshot, dir)
	}

	return latest, nil
}

// MonthDir is the dated subdirectory of captureDir for t.
func MonthDir(captureDir string, t time.Time) string {
	return filepath.Join(captureDir, t.Format(MonthLayout))
}

// MoveToCapture moves src into the month directory of captureDir for now
// and returns the new path. An existing file is never overwritten; a
// numbered name is chosen instead.
func MoveToCapture(src, captureDir string, now time.Time) (string, error) {
	dir := MonthDir(captureDir, now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("capture: creating %s: %w", dir, err)
	}

	dst, err := freeName(dir, filepath.Base(src))
	if err != nil {
		return "", err
	}

	if err := os.Rename(src, dst); err != nil {
		// Rename fails across filesystems; fall back to copy and remove.
		if copyErr := copyFile(src, dst); copyErr != nil {
			return "", fmt.Errorf("capture: moving %s: %w", src, errors.Join(err, copyErr))
		}

		if err := os.Remove(src); err != nil {
			return "", fmt.Errorf("capture: removing %s after copy: %w", src, err)
		}
	}

	return dst, nil
}

// freeName returns dir/name, or dir/"stem (n)ext" if that is taken.
func freeName(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; i < maxNameAttempts; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("capture: no free name for %s in %s", name, dir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)

		return err
	}

	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
