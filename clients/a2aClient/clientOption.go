package a2aClient

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ClientOption defines options for configuring the A2A client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client.
// If not provided, a no-op logger will be used.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.Named("a2aClient").With(zap.String("baseURL", c.baseURL))
		}
	}
}

// WithHTTPClient sets a custom HTTP client for the client.
// If not provided, http.DefaultClient will be used. Its Timeout should be zero:
// a generation stream may legitimately run for minutes.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithHeaders adds headers sent with every request to the agent.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithIdleTimeout bounds the silence between two stream events. Zero disables the bound.
func WithIdleTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.idleTimeout = d
		}
	}
}

// WithMaxEventSize sets the largest SSE event the client accepts, in bytes.
func WithMaxEventSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxEventSize = n
		}
	}
}

