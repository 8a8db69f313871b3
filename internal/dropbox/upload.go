package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	pathUpload     = "/2/files/upload"
	uploadModeAdd  = "add"
	apiArgHeader   = "Dropbox-API-Arg"
	octetStreamCT  = "application/octet-stream"
	maxSimpleBytes = 150 * 1024 * 1024
)

type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
}

// Upload stores data at path with mode=add and autorename=false, so an
// existing file at path is reported as a path conflict rather than renamed.
func (c *Client) Upload(ctx context.Context, path string, data []byte) (*FileMetadata, error) {
	if len(data) > maxSimpleBytes {
		return nil, fmt.Errorf("dropbox: %s is %d bytes, larger than the %d byte single-request limit",
			path, len(data), maxSimpleBytes)
	}

	arg, err := headerSafeJSON(uploadArg{Path: path, Mode: uploadModeAdd, Autorename: false})
	if err != nil {
		return nil, fmt.Errorf("dropbox: encoding upload argument: %w", err)
	}

	header := http.Header{}
	header.Set(apiArgHeader, arg)
	header.Set("Content-Type", octetStreamCT)

	resp, err := c.Do(ctx, c.contentURL+pathUpload, data, header)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", path, err)
	}
	defer resp.Body.Close()

	var meta FileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("dropbox: decoding upload response: %w", err)
	}

	c.logger.Info("uploaded file",
		slog.String("path", meta.PathDisplay),
		slog.Int64("size", meta.Size),
	)

	return &meta, nil
}

// headerSafeJSON encodes v as JSON with every non-ASCII rune escaped as
// \uXXXX, which HTTP header values require.
func headerSafeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	for _, r := range string(raw) {
		if r < utf8.RuneSelf && r != 0x7f {
			b.WriteRune(r)
			continue
		}

		if r > 0xffff {
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)

			continue
		}

		fmt.Fprintf(&b, `\u%04x`, r)
	}

	return b.String(), nil
}
