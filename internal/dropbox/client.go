package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Default endpoints. RPC calls go to the API host, file bodies to the
// content host.
const (
	DefaultAPIURL     = "https://api.dropboxapi.com"
	DefaultContentURL = "https://content.dropboxapi.com"
)

// Transport retry and backoff constants. These cover throttling and server
// errors only; classified endpoint errors are returned to the caller.
const (
	maxRetries     = 3
	baseBackoff    = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "shotty/0.1"
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// per Go convention "accept interfaces, return structs".
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Dropbox v2 API.
// It handles request construction, authentication, retry with
// exponential backoff, and error classification.
type Client struct {
	apiURL     string
	contentURL string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Dropbox API client. apiURL and contentURL are
// typically DefaultAPIURL and DefaultContentURL.
func NewClient(apiURL, contentURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		contentURL: strings.TrimRight(contentURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// errorBody is the JSON shape of a Dropbox endpoint error.
type errorBody struct {
	ErrorSummary string `json:"error_summary"`
	UserMessage  *struct {
		Text string `json:"text"`
	} `json:"user_message,omitempty"`
}

// rpc POSTs a JSON argument to an API-host endpoint and decodes the JSON
// result into out. A nil arg sends the literal body "null".
func (c *Client) rpc(ctx context.Context, path string, arg, out any) error {
	body, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("dropbox: encoding %s argument: %w", path, err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	resp, err := c.Do(ctx, c.apiURL+path, body, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dropbox: decoding %s response: %w", path, err)
	}

	return nil
}

// Do POSTs body to url with the given extra headers, retrying throttled
// and server-error responses. Non-2xx responses that are not retried are
// returned as *APIError. The caller closes the response body on success.
func (c *Client) Do(ctx context.Context, url string, body []byte, header http.Header) (*http.Response, error) {
	var attempt int
	for {
		resp, err := c.doOnce(ctx, url, body, header)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("dropbox: request canceled: %w", ctx.Err())
			}

			return nil, fmt.Errorf("dropbox: POST %s: %w", url, err)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("url", url),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryableStatus(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("url", url),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("dropbox: request canceled: %w", err)
			}

			attempt++

			continue
		}

		return nil, newAPIError(resp.StatusCode, errBody)
	}
}

// newAPIError builds a classified *APIError from an error response body.
// Bodies that are not JSON (e.g. 400 plain-text replies) become the summary.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.ErrorSummary != "" {
		apiErr.Summary = eb.ErrorSummary
		if eb.UserMessage != nil {
			apiErr.UserMessage = eb.UserMessage.Text
		}
	} else {
		apiErr.Summary = strings.TrimSpace(string(body))
	}

	apiErr.Err = ClassifyError(apiErr.Summary)
	if apiErr.Err == ErrAPI && status == http.StatusUnauthorized {
		apiErr.Err = ErrInvalidToken
	}

	return apiErr
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, url string, body []byte, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	for k, v := range header {
		req.Header[k] = v
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	return c.httpClient.Do(req)
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
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
