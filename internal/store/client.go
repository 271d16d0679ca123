package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/azteclab/trueblue-cli/internal/debug"
)

const DefaultTimeout = 30 * time.Second

// Default retry configuration values.
const (
	DefaultMaxRateLimitRetries   = 3
	DefaultMax5xxRetries         = 1
	DefaultRateLimitBaseDelay    = 1 * time.Second
	DefaultServerErrorRetryDelay = 1 * time.Second
)

// RetryConfig holds retry behavior for the store client.
type RetryConfig struct {
	MaxRateLimitRetries   int
	Max5xxRetries         int
	RateLimitBaseDelay    time.Duration
	ServerErrorRetryDelay time.Duration
}

// DefaultRetryConfig returns a RetryConfig populated from environment
// variables with fallback to defaults.
//
// Environment variables:
//   - TRUEBLUE_MAX_RATE_LIMIT_RETRIES: max retries for 429 errors (default: 3)
//   - TRUEBLUE_MAX_5XX_RETRIES: max retries for 5xx errors (default: 1)
//   - TRUEBLUE_RATE_LIMIT_DELAY: base delay for rate limit retries (default: "1s")
//   - TRUEBLUE_SERVER_ERROR_DELAY: delay for server error retries (default: "1s")
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRateLimitRetries:   getEnvInt("TRUEBLUE_MAX_RATE_LIMIT_RETRIES", DefaultMaxRateLimitRetries),
		Max5xxRetries:         getEnvInt("TRUEBLUE_MAX_5XX_RETRIES", DefaultMax5xxRetries),
		RateLimitBaseDelay:    getEnvDuration("TRUEBLUE_RATE_LIMIT_DELAY", DefaultRateLimitBaseDelay),
		ServerErrorRetryDelay: getEnvDuration("TRUEBLUE_SERVER_ERROR_DELAY", DefaultServerErrorRetryDelay),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// Client talks to the hosted table store over its REST interface.
//
// Every mutation the inbox performs goes through this client first; the
// in-memory view is only patched after a write succeeds.
type Client struct {
	BaseURL     string
	APIKey      string
	AuthToken   string // per-session bearer token; falls back to APIKey when empty
	HTTP        *http.Client
	UserAgent   string
	RetryConfig RetryConfig
}

// Compile-time interface implementation checks
var (
	_ Requester    = (*Client)(nil)
	_ PathResolver = (*Client)(nil)
	_ HTTPExecutor = (*Client)(nil)
)

// New creates a store client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12

	return &Client{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		APIKey:      apiKey,
		RetryConfig: DefaultRetryConfig(),
		HTTP: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}
}

// tablePath returns the URL for a table endpoint.
func (c *Client) tablePath(table string) string {
	return fmt.Sprintf("%s/rest/v1/%s", c.BaseURL, table)
}

// functionPath returns the URL for a hosted function endpoint.
func (c *Client) functionPath(name string) string {
	return fmt.Sprintf("%s/functions/v1/%s", c.BaseURL, name)
}

// do performs a JSON request and decodes the response.
func (c *Client) do(ctx context.Context, method, url string, body any, result any) error {
	return c.doPrefer(ctx, method, url, "", body, result)
}

// doPrefer performs a JSON request with an optional Prefer header.
func (c *Client) doPrefer(ctx context.Context, method, url string, prefer string, body any, result any) error {
	respBody, _, err := c.executeRequest(ctx, method, url, prefer, body)
	if err != nil {
		return err
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unexpected store response format (JSON decode failed): %w", err)
		}
	}
	return nil
}

// executeRequest performs the HTTP request with retry logic. The request body
// is marshaled once and reused across retries.
func (c *Client) executeRequest(ctx context.Context, method, url, prefer string, body any) ([]byte, int, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	// Only GET and HEAD are retried. Writes are not assumed safe to
	// repeat: a retried POST can insert twice, and a retried PATCH can
	// land after a concurrent change its filter was meant to exclude.
	isIdempotent := method == http.MethodGet || method == http.MethodHead

	var retries429, retries5xx int
	attempt := 0

	for {
		attempt++
		start := time.Now()
		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}

		if c.APIKey != "" {
			req.Header.Set("apikey", c.APIKey)
			token := c.AuthToken
			if token == "" {
				token = c.APIKey
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if debug.IsEnabled(ctx) {
				slog.Debug("store request failed", "method", method, "url", url, "attempt", attempt, "error", err)
			}
			if ctx.Err() != nil {
				return nil, 0, &StoreError{Code: ErrTimeout, Message: err.Error()}
			}
			return nil, 0, fmt.Errorf("store request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read store response: %w", err)
		}
		if debug.IsEnabled(ctx) {
			slog.Debug("store request complete", "method", method, "url", url, "status", resp.StatusCode, "attempt", attempt, "duration", time.Since(start))
		}

		// 429: exponential backoff, idempotent methods only.
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter, hasRetryAfter := retryAfterDuration(resp.Header)
			delay := c.RetryConfig.RateLimitBaseDelay
			if hasRetryAfter {
				delay = retryAfter
			}
			if !isIdempotent || retries429 >= c.RetryConfig.MaxRateLimitRetries {
				return nil, resp.StatusCode, &StoreError{
					Code:       ErrRateLimited,
					StatusCode: resp.StatusCode,
					Message:    fmt.Sprintf("rate limited, retry after %s", delay),
				}
			}
			if !hasRetryAfter {
				delay = c.RetryConfig.RateLimitBaseDelay * time.Duration(1<<retries429)
			}
			slog.Info("rate limited, retrying", "delay", delay, "attempt", retries429+1)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, 0, err
			}
			retries429++
			continue
		}

		// 5xx: bounded retries, idempotent methods only.
		if resp.StatusCode >= 500 {
			if isIdempotent && retries5xx < c.RetryConfig.Max5xxRetries {
				slog.Info("store server error, retrying", "status", resp.StatusCode)
				if err := sleepWithContext(ctx, c.RetryConfig.ServerErrorRetryDelay); err != nil {
					return nil, 0, err
				}
				retries5xx++
				continue
			}
			return respBody, resp.StatusCode, &StoreError{
				Code:       ErrServerError,
				StatusCode: resp.StatusCode,
				Message:    sanitizeErrorBody(respBody),
			}
		}

		if resp.StatusCode >= 400 {
			code := ErrorCodeFromStatus(resp.StatusCode)
			if isUniqueViolation(respBody) {
				code = ErrConflict
			}
			return respBody, resp.StatusCode, &StoreError{
				Code:       code,
				StatusCode: resp.StatusCode,
				Message:    sanitizeErrorBody(respBody),
			}
		}

		return respBody, resp.StatusCode, nil
	}
}

// sleepWithContext waits for the duration or returns early on context cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfterDuration parses Retry-After header values (seconds or HTTP date).
func retryAfterDuration(h http.Header) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// CallFunction invokes a hosted function with a JSON body and decodes the
// JSON response into result when non-nil.
func (c *Client) CallFunction(ctx context.Context, name string, body any, result any) error {
	return c.do(ctx, http.MethodPost, c.functionPath(name), body, result)
}

// HealthCheck checks that the store is reachable.
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/rest/v1/", nil)
	if err != nil {
		return false, err
	}
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 500, nil
}
