package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/takutakahashi/storefront/pkg/utils"
)

// RequestIDHeader carries a per-descriptor identifier, kept across the auth replay
const RequestIDHeader = "X-Request-ID"

// Request is an outbound request descriptor. It holds the body as bytes so the
// same descriptor can be sent again after a credential refresh.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// NewRequest creates a request descriptor with a fresh request ID
func NewRequest(method, path string, body []byte) *Request {
	header := make(http.Header)
	header.Set(RequestIDHeader, uuid.New().String())
	if body != nil {
		header.Set("Content-Type", "application/json")
	}

	return &Request{
		Method: method,
		Path:   path,
		Body:   body,
		Header: header,
	}
}

// NewJSONRequest creates a request descriptor with v encoded as the JSON body.
// A nil v produces a request without a body.
func NewJSONRequest(method, path string, v interface{}) (*Request, error) {
	if v == nil {
		return NewRequest(method, path, nil), nil
	}

	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return NewRequest(method, path, body), nil
}

// Clone returns a deep copy of the descriptor
func (r *Request) Clone() *Request {
	clone := *r
	clone.Header = r.Header.Clone()
	if clone.Header == nil {
		clone.Header = make(http.Header)
	}
	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}
	return &clone
}

// build turns the descriptor into an *http.Request against url
func (r *Request) build(ctx context.Context, url string) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range r.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	return httpReq, nil
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	URL        string
}

// Err returns an *HTTPError for status codes of 400 and above
func (r *Response) Err() error {
	return utils.CheckHTTPResponse(r.StatusCode, r.Status, r.URL, r.Body)
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
