package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/takutakahashi/storefront/pkg/credentials"
	"github.com/takutakahashi/storefront/pkg/utils"
)

// maxAuthRetries is how many times one request may be replayed after a refresh
const maxAuthRetries = 1

// Backend endpoints
const (
	tokenPath    = "auth/jwt/token/"
	refreshPath  = "auth/jwt/refresh/"
	registerPath = "auth/register/"
	productsPath = "/products/"
	cartPath     = "/cart/"
)

// Client is an authenticated storefront API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       credentials.Store
	logger      *slog.Logger
	metrics     *Metrics
	dispatcher  *Dispatcher
	coordinator *Coordinator
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every call
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithStore sets the credential store. Defaults to an in-memory store.
func WithStore(store credentials.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// NewClient creates a new storefront client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = utils.NewDefaultHTTPClient()
	}
	if c.store == nil {
		c.store = credentials.NewMemoryStore()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.dispatcher = NewDispatcher(baseURL, c.httpClient, c.store)
	c.coordinator = NewCoordinator(c.store, c.refreshCredentials, c.logger, c.metrics)
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the credential store
func (c *Client) Store() credentials.Store {
	return c.store
}

// Coordinator returns the session's refresh coordinator
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// Do sends req with the stored access credential. A 401 triggers one
// coordinated refresh followed by a single replay of req; any other response,
// including a 401 on the replay, is returned as is. Non-2xx responses are not
// errors at this level; use Response.Err.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, req, c.dispatcher.Prepare(ctx, req), 0)
}

// send dispatches prepared, a credentialed copy of original, as attempt number attempt
func (c *Client) send(ctx context.Context, original, prepared *Request, attempt int) (*Response, error) {
	resp, err := c.dispatcher.Send(ctx, prepared)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || attempt >= maxAuthRetries {
		return resp, nil
	}

	c.logger.Debug("request rejected with 401, refreshing",
		"method", original.Method,
		"path", original.Path,
		"request_id", original.Header.Get(RequestIDHeader),
	)

	access, err := c.coordinator.Refresh(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRefreshCredential) {
			return nil, fmt.Errorf("%w: %w", err, resp.Err())
		}
		return nil, err
	}

	c.metrics.incReplays()
	return c.send(ctx, original, c.dispatcher.Authorize(original, access), attempt+1)
}

// doJSON sends v as a JSON body through the authenticated pipeline and decodes
// a successful response into out when out is non-nil
func (c *Client) doJSON(ctx context.Context, method, path string, v, out interface{}) error {
	req, err := NewJSONRequest(method, path, v)
	if err != nil {
		return err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	if out != nil && len(resp.Body) > 0 {
		return resp.Decode(out)
	}
	return nil
}

// sendUnauthenticated bypasses credential injection and 401 handling. It is
// used for the token, refresh and register endpoints.
func (c *Client) sendUnauthenticated(ctx context.Context, path string, v interface{}) (*Response, error) {
	req, err := NewJSONRequest(http.MethodPost, path, v)
	if err != nil {
		return nil, err
	}
	return c.dispatcher.Send(ctx, req)
}

// refreshCredentials calls the refresh endpoint. It is the coordinator's RefreshFunc.
func (c *Client) refreshCredentials(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	resp, err := c.sendUnauthenticated(ctx, refreshPath, RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return credentials.Pair{}, err
	}
	if err := resp.Err(); err != nil {
		return credentials.Pair{}, err
	}

	var tokens TokenPair
	if err := resp.Decode(&tokens); err != nil {
		return credentials.Pair{}, err
	}
	return credentials.Pair{Access: tokens.Access, Refresh: tokens.Refresh}, nil
}

// ImageURL resolves a product image path against the API origin
func (c *Client) ImageURL(p Product) string {
	if p.Image == "" || strings.HasPrefix(p.Image, "http://") || strings.HasPrefix(p.Image, "https://") {
		return p.Image
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return p.Image
	}
	ref, err := url.Parse(p.Image)
	if err != nil {
		return p.Image
	}
	return base.ResolveReference(ref).String()
}
