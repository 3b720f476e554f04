package utils

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBody caps how much of a response body is read
const maxResponseBody = 10 << 20

// HTTPClientConfig holds configuration for HTTP client creation
type HTTPClientConfig struct {
	Timeout time.Duration
	// Tracing wraps the transport with OpenTelemetry instrumentation
	Tracing bool
}

// DefaultHTTPClientConfig returns default HTTP client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout: 30 * time.Second,
		Tracing: true,
	}
}

// NewHTTPClient creates a new HTTP client with the given configuration
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	transport := http.DefaultTransport
	if config.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewDefaultHTTPClient creates a new HTTP client with default configuration
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultHTTPClientConfig())
}

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// CheckHTTPResponse returns an *HTTPError when status is 400 or above
func CheckHTTPResponse(statusCode int, status, url string, body []byte) error {
	if statusCode >= 400 {
		return &HTTPError{
			StatusCode: statusCode,
			Message:    status,
			URL:        url,
			Body:       body,
		}
	}
	return nil
}

// ReadBody reads at most maxResponseBody bytes of a response body
func ReadBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
}

// SafeCloseResponse safely closes HTTP response body with error logging
func SafeCloseResponse(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close HTTP response body", "error", err)
		}
	}
}
