package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/takutakahashi/storefront/pkg/credentials"
	"github.com/takutakahashi/storefront/pkg/utils"
)

// Dispatcher attaches the access credential to outgoing requests and performs
// the network call. It never reacts to the response status.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	store      credentials.Store
}

// NewDispatcher creates a dispatcher for baseURL reading credentials from store
func NewDispatcher(baseURL string, httpClient *http.Client, store credentials.Store) *Dispatcher {
	if httpClient == nil {
		httpClient = utils.NewDefaultHTTPClient()
	}
	return &Dispatcher{
		baseURL:    baseURL,
		httpClient: httpClient,
		store:      store,
	}
}

// Authorize returns a copy of req carrying "Authorization: Bearer <access>".
// With an empty access token the copy is returned without the header.
// req itself is never modified.
func (d *Dispatcher) Authorize(req *Request, access string) *Request {
	out := req.Clone()
	if access != "" {
		out.Header.Set("Authorization", "Bearer "+access)
	}
	return out
}

// Prepare authorizes req with the access credential currently in the store
func (d *Dispatcher) Prepare(ctx context.Context, req *Request) *Request {
	return d.Authorize(req, d.store.Get(ctx).Access)
}

// URL resolves path against the base URL. Leading slashes on path are ignored
// so "/products/" and "auth/jwt/token/" both land below the base.
func (d *Dispatcher) URL(path string) string {
	return strings.TrimRight(d.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Send performs req and reads the whole response. Any status code is a
// successful send; only transport failures return an error.
func (d *Dispatcher) Send(ctx context.Context, req *Request) (*Response, error) {
	url := d.URL(req.Path)

	httpReq, err := req.build(ctx, url)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer utils.SafeCloseResponse(resp)

	body, err := utils.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		URL:        url,
	}, nil
}
