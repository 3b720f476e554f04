// Package mockbackend is an in-memory storefront backend speaking the same REST
// API as the hosted service. It issues real HS256 JWT access tokens and opaque
// refresh tokens, and exposes hooks to expire tokens and slow down or fail the
// refresh endpoint.
package mockbackend

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Product is a catalogue entry. Prices are kept in cents.
type Product struct {
	ID          int
	Name        string
	Description string
	PriceCents  int64
	Image       string
}

// Config holds mock backend configuration
type Config struct {
	// Secret signs access tokens
	Secret []byte
	// AccessTTL is the lifetime of access tokens
	AccessTTL time.Duration
	// RotateRefresh makes refresh tokens single-use: each refresh returns a new one
	RotateRefresh bool
	// Paginate wraps the product list in {"count", "next", "previous", "results"}
	Paginate bool
	// Products is the catalogue; DefaultProducts is used when empty
	Products []Product
}

// DefaultConfig returns a configuration suitable for local use
func DefaultConfig() Config {
	return Config{
		Secret:    []byte("storefront-mock-secret"),
		AccessTTL: 5 * time.Minute,
	}
}

// DefaultProducts is the catalogue served when none is configured
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Name: "Cotton T-Shirt", Description: "Plain crew neck t-shirt", PriceCents: 49900, Image: "/media/products/tshirt.jpg"},
		{ID: 2, Name: "Denim Jacket", Description: "Classic blue denim jacket", PriceCents: 249900, Image: "https://cdn.example.com/jacket.jpg"},
		{ID: 3, Name: "Canvas Sneakers", Description: "Low top canvas sneakers", PriceCents: 159950},
	}
}

type user struct {
	ID           int
	Username     string
	Email        string
	PasswordHash []byte
}

type cartLine struct {
	ID        int
	ProductID int
	Quantity  int
}

// Server is the mock storefront backend
type Server struct {
	config Config
	echo   *echo.Echo

	mu            sync.Mutex
	users         map[string]*user
	refreshTokens map[string]string
	generation    int
	products      map[int]Product
	productOrder  []int
	carts         map[string][]*cartLine
	orders        map[string][]string
	nextUserID    int
	nextItemID    int

	refreshHook  atomic.Pointer[func()]
	failRefresh  atomic.Bool
	refreshCalls atomic.Int64

	registry      *prometheus.Registry
	issuedTotal   *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
}

// New creates a mock backend. Routes are served below /api.
func New(config Config) *Server {
	if len(config.Secret) == 0 {
		config.Secret = DefaultConfig().Secret
	}
	if config.AccessTTL == 0 {
		config.AccessTTL = DefaultConfig().AccessTTL
	}
	if len(config.Products) == 0 {
		config.Products = DefaultProducts()
	}

	s := &Server{
		config:        config,
		users:         make(map[string]*user),
		refreshTokens: make(map[string]string),
		products:      make(map[int]Product),
		carts:         make(map[string][]*cartLine),
		orders:        make(map[string][]string),
		nextUserID:    1,
		nextItemID:    1,
		registry:      prometheus.NewRegistry(),
	}
	for _, p := range config.Products {
		s.products[p.ID] = p
		s.productOrder = append(s.productOrder, p.ID)
	}

	s.issuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_mock_tokens_issued_total",
		Help: "Tokens issued by the mock backend.",
	}, []string{"type"})
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_mock_requests_total",
		Help: "Requests served by the mock backend.",
	}, []string{"method", "path", "status"})
	s.registry.MustRegister(s.issuedTotal, s.requestsTotal)

	s.echo = s.newEcho()
	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator(validator.New())
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())
	e.Use(s.countRequests)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.POST("/auth/jwt/token/", s.handleToken)
	api.POST("/auth/jwt/refresh/", s.handleRefresh)
	api.POST("/auth/register/", s.handleRegister)
	api.GET("/products/", s.handleProducts)

	cart := api.Group("/cart", s.requireAuth)
	cart.GET("/", s.handleGetCart)
	cart.POST("/", s.handleAddToCart)
	cart.PATCH("/", s.handleUpdateCartItem)
	cart.DELETE("/", s.handleRemoveCartItem)
	cart.PUT("/", s.handleCheckout)

	return e
}

// Handler returns the HTTP handler, for use with httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Registry exposes the backend's metrics registry
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ExpireAccessTokens invalidates every access token issued so far.
// Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshTokens = make(map[string]string)
}

// SetRefreshHook installs fn to run at the start of each refresh request, before
// the token is checked. Passing nil removes the hook.
func (s *Server) SetRefreshHook(fn func()) {
	if fn == nil {
		s.refreshHook.Store(nil)
		return
	}
	s.refreshHook.Store(&fn)
}

// SetRefreshFailure makes the refresh endpoint answer 500 while enabled
func (s *Server) SetRefreshFailure(fail bool) {
	s.failRefresh.Store(fail)
}

// RefreshCalls returns the number of requests received by the refresh endpoint
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Orders returns the order IDs placed by username
func (s *Server) Orders(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.orders[username]...)
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.requestsTotal.WithLabelValues(c.Request().Method, c.Path(), http.StatusText(c.Response().Status)).Inc()
		return nil
	}
}
