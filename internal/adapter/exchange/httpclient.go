package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/douoai/jijin/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	Timeout        time.Duration
	RequestsPerSec int
	MaxRetries     int
	InitialBackoff time.Duration
	UserAgent      string
}

// Client is a JSON HTTP client with rate limiting, a per-call timeout and bounded retries
type Client struct {
	httpClient     *http.Client
	limiter        *rate.Limiter
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	userAgent      string
}

func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "jijin/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		timeout:        opts.Timeout,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		userAgent:      opts.UserAgent,
	}
}

// HTTPStatusError represents an error due to a non-2xx HTTP status code
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: non-2xx status code: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *HTTPStatusError) Unwrap() error {
	return model.ErrNetwork
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, out)
}

// PostJSON encodes in as the request body; out may be nil.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return c.DoJSON(ctx, http.MethodPost, url, body, out)
}

// DoJSON performs the request with rate limiting and retries. Errors wrap
// model.ErrNetwork for transport and status failures and
// model.ErrInvalidResponse for undecodable bodies.
func (c *Client) DoJSON(ctx context.Context, method, url string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", model.ErrNetwork, err)
	}

	operation := func() error {
		var reader io.Reader = http.NoBody
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("%w: reading response body: %v", model.ErrNetwork, err)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: parsing JSON: %v", model.ErrInvalidResponse, err))
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = c.initialBackoff
	strategy.MaxElapsedTime = c.timeout

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(strategy, uint64(c.maxRetries)), ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNetwork) || errors.Is(err, model.ErrInvalidResponse) {
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrNetwork, err)
}
