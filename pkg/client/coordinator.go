package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/takutakahashi/storefront/pkg/credentials"
	"github.com/takutakahashi/storefront/pkg/logger"
)

// RefreshFunc exchanges a refresh credential for new credentials. The returned
// pair must carry an access token; a refresh token is present only when the
// backend rotates it.
type RefreshFunc func(ctx context.Context, refreshToken string) (credentials.Pair, error)

// State is the refresh coordinator state
type State int

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// refreshResult is delivered exactly once to each waiter
type refreshResult struct {
	access string
	err    error
}

// Coordinator makes sure at most one refresh call is in flight per session.
// Callers that hit an authentication failure while a refresh is running wait
// for its outcome instead of starting their own.
type Coordinator struct {
	mu      sync.Mutex
	state   State
	waiters []chan refreshResult

	store   credentials.Store
	refresh RefreshFunc
	logger  *slog.Logger
	metrics *Metrics
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(store credentials.Store, refresh RefreshFunc, logger *slog.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		state:   StateIdle,
		store:   store,
		refresh: refresh,
		logger:  logger,
		metrics: metrics,
	}
}

// State returns the current state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Pending returns the number of callers waiting on the in-flight refresh
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}

// Refresh returns a fresh access credential.
//
// Without a stored refresh credential the store is cleared and
// ErrNoRefreshCredential is returned without any network call. Otherwise the
// first caller performs the refresh and every caller arriving while it runs is
// queued; all of them receive the same token or the same error. On failure the
// store is cleared.
//
// A queued caller cannot withdraw: it returns only when the refresh settles.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	// The episode belongs to every queued caller, not only to the one that
	// started it. A cancelled caller must not read as a missing credential either.
	ctx = context.WithoutCancel(ctx)

	refreshToken := c.store.Get(ctx).Refresh
	if refreshToken == "" {
		c.clearStore(ctx)
		c.metrics.observeRefresh(OutcomeNoCredential, time.Time{})
		c.logger.Info("authentication failed without a refresh credential, credentials cleared")
		return "", ErrNoRefreshCredential
	}

	c.mu.Lock()
	if c.state == StateRefreshing {
		waiter := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()

		c.metrics.incWaiters()
		result := <-waiter
		return result.access, result.err
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	result := c.runRefresh(ctx, refreshToken)
	c.settle(result)
	return result.access, result.err
}

// runRefresh performs the single refresh call of an episode and updates the store
func (c *Coordinator) runRefresh(ctx context.Context, refreshToken string) refreshResult {
	c.logger.Debug("refreshing access credential")
	started := time.Now()

	pair, err := c.refresh(ctx, refreshToken)
	if err == nil && pair.Access == "" {
		err = fmt.Errorf("refresh response carried no access token")
	}

	if err != nil {
		c.metrics.observeRefresh(OutcomeFailure, started)
		c.clearStore(ctx)
		c.logger.Warn("credential refresh failed, credentials cleared", "error", err)
		return refreshResult{err: fmt.Errorf("%w: %w", ErrRefreshFailed, err)}
	}

	c.metrics.observeRefresh(OutcomeSuccess, started)
	c.logger.Debug("access credential refreshed",
		"access", logger.RedactToken(pair.Access),
		"rotated", pair.Refresh != "",
	)
	if err := c.store.Set(ctx, pair); err != nil {
		// The token was issued; hand it out even if it could not be persisted
		c.logger.Warn("failed to persist refreshed credentials", "error", err)
	}
	return refreshResult{access: pair.Access}
}

// settle drains the queue and returns to idle in one step, then delivers result
func (c *Coordinator) settle(result refreshResult) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = StateIdle
	c.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- result
	}

	c.logger.Info("credential refresh settled",
		"success", result.err == nil,
		"waiters", len(waiters),
	)
}

func (c *Coordinator) clearStore(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("failed to clear credentials", "error", err)
	}
}
