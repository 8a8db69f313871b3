package dropbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopSleep is a sleep function that returns immediately, for fast tests.
func noopSleep(_ context.Context, _ time.Duration) error {
	return nil
}

// staticToken is a test TokenSource that returns a fixed token.
type staticToken string

func (t staticToken) Token() (string, error) {
	return string(t), nil
}

// failingToken is a test TokenSource that always returns an error.
type failingToken struct{}

func (failingToken) Token() (string, error) {
	return "", errors.New("token error")
}

// newTestClient creates a Client whose API and content hosts both point at
// the given httptest server, with instant retry sleeps.
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url, url, http.DefaultClient, staticToken("test-token"), slog.Default())
	c.sleepFunc = noopSleep

	return c
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		summary string
		want    error
	}{
		{"path/conflict/file", ErrPathConflict},
		{"path/conflict/folder/..", ErrPathConflict},
		{"path/no_write_permission/...", ErrAccessDenied},
		{"no_permission/..", ErrAccessDenied},
		{"access_denied", ErrAccessDenied},
		{"invalid_access_token/..", ErrInvalidToken},
		{"expired_access_token/", ErrInvalidToken},
		{"path/not_found/..", ErrNotFound},
		{"path_lookup/not_found/.", ErrNotFound},
		{"shared_link_already_exists", ErrSharedLinkExists},
		{"shared_link_already_exists/metadata/..", ErrSharedLinkExists},
		{"weird_error", ErrAPI},
		{"", ErrAPI},
		{"path/conflicting", ErrAPI},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.summary))
		})
	}
}

func TestDo_SendsBearerAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(body))

		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	resp, err := client.Do(context.Background(), srv.URL+"/x", []byte(`{"a":1}`), header)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDo_EndpointErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_summary":"path/not_found/..","error":{".tag":"path"},` +
			`"user_message":{"text":"File not found"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), srv.URL+"/x", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "path/not_found/..", apiErr.Summary)
	assert.Equal(t, "File not found", apiErr.UserMessage)
	assert.Contains(t, apiErr.Error(), "File not found")
}

func TestDo_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Error in call to API function: bad header\n"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), srv.URL+"/x", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Error in call to API function: bad header", apiErr.Summary)
}

func TestDo_UnauthorizedWithoutSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), srv.URL+"/x", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDo_RetryOn5xx(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Do(context.Background(), srv.URL+"/x", []byte("body"), nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_RetryOn429UsesRetryAfter(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	var slept []time.Duration
	client.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	resp, err := client.Do(context.Background(), srv.URL+"/x", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []time.Duration{7 * time.Second}, slept)
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), srv.URL+"/x", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestDo_ClassifiedErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_summary":"shared_link_already_exists/.."}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(context.Background(), srv.URL+"/x", nil, nil)
	assert.ErrorIs(t, err, ErrSharedLinkExists)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_TokenError(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "http://127.0.0.1:0", http.DefaultClient, failingToken{}, nil)

	_, err := client.Do(context.Background(), "http://127.0.0.1:0/x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "obtaining token")
}

func TestDo_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, srv.URL)
	_, err := client.Do(ctx, srv.URL+"/x", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalcBackoff_Bounds(t *testing.T) {
	for attempt := range 10 {
		d := calcBackoff(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, time.Duration(float64(maxBackoff)*(1+jitterFraction)))
	}
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc", slog.Default()).Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("", slog.Default()).Token()
	assert.Error(t, err)
}
