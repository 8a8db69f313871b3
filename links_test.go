package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/shotty/internal/dropbox"
	"github.com/tonimelisma/shotty/internal/history"
	"github.com/tonimelisma/shotty/internal/links"
)

func TestURLCmd_FindsExistingLink(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path       string `json:"path"`
			DirectOnly bool   `json:"direct_only"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&arg))
		assert.Equal(t, "/pics/cat.png", arg.Path)
		assert.True(t, arg.DirectOnly)

		writeJSON(w, http.StatusOK, `{"links":[{"url":"https://www.dropbox.com/s/abc/cat.png?dl=0"}],"has_more":false}`)
	})
	file := env.writeFile(t, "pics/cat.png")

	out, err := env.run(t, "url", "--no-copy", file)
	require.NoError(t, err)
	assert.Equal(t, "https://dl.dropboxusercontent.com/s/abc/cat.png\n", out)
	assert.Equal(t, []string{"/2/sharing/list_shared_links"}, env.calls)

	store, err := history.Open(context.Background(), historyPath(), nil)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionLink, entries[0].Action)
	assert.Equal(t, "/pics/cat.png", entries[0].RemotePath)
}

func TestURLCmd_CreatesWhenNoneExists(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/sharing/list_shared_links":
			writeJSON(w, http.StatusOK, `{"links":[]}`)
		case "/2/sharing/create_shared_link_with_settings":
			writeJSON(w, http.StatusOK, `{"url":"https://www.dropbox.com/s/new/cat.png?dl=0"}`)
		}
	})
	file := env.writeFile(t, "cat.png")

	out, err := env.run(t, "url", "--no-copy", file)
	require.NoError(t, err)
	assert.Equal(t, "https://dl.dropboxusercontent.com/s/new/cat.png\n", out)
	assert.Equal(t, []string{
		"/2/sharing/list_shared_links",
		"/2/sharing/create_shared_link_with_settings",
	}, env.calls)
}

func TestGetURLCmd_NoLink(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"links":[]}`)
	})
	file := env.writeFile(t, "cat.png")

	_, err := env.run(t, "get-url", "--no-copy", file)
	require.ErrorIs(t, err, links.ErrNoSharedLink)
	assert.Len(t, env.calls, 1)
}

func TestCreateURLCmd_AlreadyExists(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error_summary":"shared_link_already_exists/metadata/.."}`)
	})
	file := env.writeFile(t, "cat.png")

	_, err := env.run(t, "create-url", "--no-copy", file)
	require.ErrorIs(t, err, dropbox.ErrSharedLinkExists)
}

func TestURLCmd_NotFoundWithoutRetries(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error_summary":"path/not_found/.."}`)
	})
	file := env.writeFile(t, "cat.png")

	_, err := env.run(t, "url", "--no-copy", "--retries", "0", file)
	require.ErrorIs(t, err, dropbox.ErrNotFound)
	assert.Len(t, env.calls, 1)
}

func TestUploadCmd(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/files/upload":
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "png", string(body))

			var arg map[string]any
			assert.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
			assert.Equal(t, "add", arg["mode"])
			assert.Equal(t, false, arg["autorename"])

			writeJSON(w, http.StatusOK, `{"name":"shot.png","path_display":"`+arg["path"].(string)+`"}`)
		case "/2/sharing/create_shared_link_with_settings":
			writeJSON(w, http.StatusOK, `{"url":"https://www.dropbox.com/s/up/shot.png?dl=0"}`)
		}
	})

	outside := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(outside, []byte("png"), 0o644))

	out, err := env.run(t, "upload", "--no-copy", outside)
	require.NoError(t, err)
	assert.Equal(t, "https://dl.dropboxusercontent.com/s/up/shot.png\n", out)
	assert.Equal(t, []string{"/2/files/upload", "/2/sharing/create_shared_link_with_settings"}, env.calls)
}

func TestUploadCmd_MissingFile(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.run(t, "upload", filepath.Join(t.TempDir(), "nope.png"))
	require.ErrorIs(t, err, links.ErrLocalFileMissing)
	assert.Empty(t, env.calls)
}

func TestMvLastScreenshotCmd(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&arg))

		month := time.Now().Format("2006-01")
		assert.Equal(t, "/Screenshots/"+month+"/Screenshot 1.png", arg.Path)

		writeJSON(w, http.StatusOK, `{"links":[{"url":"https://www.dropbox.com/s/m/Screenshot%201.png?dl=0"}]}`)
	})

	desktopDir := t.TempDir()
	src := filepath.Join(desktopDir, "Screenshot 1.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))

	out, err := env.run(t, "mv-last-screenshot", "--no-copy", "--source", desktopDir)
	require.NoError(t, err)
	assert.Equal(t, "https://dl.dropboxusercontent.com/s/m/Screenshot%201.png\n", out)
	assert.NoFileExists(t, src)
}

func TestUsageCmd(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "null", string(body))

		writeJSON(w, http.StatusOK, `{"used":1073741824,"allocation":{".tag":"individual","allocated":4294967296}}`)
	})

	out, err := env.run(t, "usage")
	require.NoError(t, err)
	assert.Equal(t, "1.0 GB of 4.0 GB used (25.0%)\n", out)

	out, err = env.run(t, "usage", "--json")
	require.NoError(t, err)

	var got usageJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, usageJSON{Used: 1 << 30, Allocated: 4 << 30, Percent: 25}, got)
}

func TestHistoryCmd(t *testing.T) {
	env := newTestEnv(t, nil)

	store, err := history.Open(context.Background(), historyPath(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), history.Entry{
		Action:     history.ActionUpload,
		RemotePath: "/Screenshots/2024-01/a.png",
		URL:        "https://dl.dropboxusercontent.com/s/a/a.png",
		CreatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}))
	require.NoError(t, store.Close())

	out, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTION")
	assert.Contains(t, out, "/Screenshots/2024-01/a.png")

	out, err = env.run(t, "history", "--json", "-n", "1")
	require.NoError(t, err)

	var got []historyJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-02T03:04:05Z", got[0].CreatedAt)
}
