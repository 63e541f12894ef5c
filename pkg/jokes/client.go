package jokes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-joke-harvester/pkg/httpclient"
)

// Record is one joke object as decoded from the API response.
type Record map[string]any

var (
	errNotArray     = errors.New("response body is not a JSON array")
	errTrailingData = errors.New("unexpected data after JSON array")
)

// Client fetches jokes from the joke API.
// It holds no mutable state across calls and is safe for concurrent use.
type Client struct {
	cfg   Config
	http  httpclient.Client
	log   Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a joke client. A nil http client gets a resty transport
// bounded by cfg.Timeout; a nil logger discards output.
func NewClient(cfg Config, client httpclient.Client, log Logger) *Client {
	cfg = normalizeConfig(cfg)
	if client == nil {
		client = httpclient.NewRestyClient(cfg.Timeout, "")
	}
	if log == nil {
		log = noopLogger{}
	}
	return &Client{
		cfg:   cfg,
		http:  client,
		log:   log,
		sleep: sleepContext,
	}
}

// Config returns the effective client settings after defaults were applied.
func (c *Client) Config() Config { return c.cfg }

// GetRandomJoke returns the decoded array served by the random endpoint,
// normally a single programming joke. Elements are raw JSON values (objects
// decode as map[string]any) and are not validated here.
func (c *Client) GetRandomJoke(ctx context.Context) ([]any, error) {
	return c.do(ctx, c.cfg.BaseURL+RandomJokePath)
}

// GetTenJokes returns the decoded array served by the ten endpoint.
func (c *Client) GetTenJokes(ctx context.Context) ([]any, error) {
	return c.do(ctx, c.cfg.BaseURL+TenJokesPath)
}

// Fetch calls the endpoint registered under name (EndpointRandom or EndpointTen).
func (c *Client) Fetch(ctx context.Context, endpoint string) ([]any, error) {
	switch strings.ToLower(strings.TrimSpace(endpoint)) {
	case EndpointRandom:
		return c.GetRandomJoke(ctx)
	case EndpointTen:
		return c.GetTenJokes(ctx)
	default:
		return nil, fmt.Errorf("unknown joke endpoint %q", endpoint)
	}
}

// do performs the request, retrying transient failures up to cfg.MaxRetries
// extra times with a fixed cfg.RetryDelay pause between attempts.
func (c *Client) do(ctx context.Context, url string) ([]any, error) {
	maxAttempts := c.cfg.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.log.WarnObj("joke api request failed; retrying", "joke_api_retry", map[string]any{
				"url":           url,
				"error":         lastErr.Error(),
				"next_attempt":  attempt,
				"retry_delay_s": c.cfg.RetryDelay.Seconds(),
			})
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, &ClientError{Attempts: attempt - 1, Err: err}
			}
		}

		c.log.InfoObj("joke api request", "joke_api_request", map[string]any{
			"url":          url,
			"attempt":      attempt,
			"max_attempts": maxAttempts,
		})

		records, err := c.attempt(ctx, url)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &ClientError{Attempts: attempt, Err: err}
		}
	}

	c.log.ErrorObj("joke api request exhausted retries", "joke_api_error", map[string]any{
		"url":      url,
		"attempts": maxAttempts,
		"error":    lastErr.Error(),
	})
	return nil, &ClientError{Attempts: maxAttempts, Err: lastErr}
}

// attempt runs a single GET and decodes the JSON array body.
func (c *Client) attempt(ctx context.Context, url string) ([]any, error) {
	resp, err := c.http.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	body := resp.Body()
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("joke api returned status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode joke api response: %w", err)
	}
	return records, nil
}

// decodeRecords parses body as exactly one JSON array. Elements are kept as
// decoded so a non-object entry reaches validation instead of failing here.
func decodeRecords(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var records []any
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, errNotArray
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return records, nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
