package httpclient

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is sent when the caller does not provide one.
const DefaultUserAgent = "samvad-joke-harvester/1.0"

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a RestyClient whose every request is bounded by timeout.
func NewRestyClient(timeout time.Duration, userAgent string) *RestyClient {
	c := NewRestyHTTPClient(timeout)
	if ua := strings.TrimSpace(userAgent); ua != "" {
		c.SetHeader("User-Agent", ua)
	} else {
		c.SetHeader("User-Agent", DefaultUserAgent)
	}
	return &RestyClient{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
// Retries are left to the caller; resty's own retry support stays disabled.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
func (r *restyResponseAdapter) IsSuccess() bool { return r.resp.IsSuccess() }
