package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/storefront/pkg/credentials"
)

type refreshOutcome struct {
	access string
	err    error
}

// runConcurrentRefresh starts callers goroutines calling Refresh, waits until
// all but one are queued, releases the refresh and collects the outcomes
func runConcurrentRefresh(t *testing.T, coord *Coordinator, callers int, release chan struct{}) []refreshOutcome {
	t.Helper()

	outcomes := make(chan refreshOutcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			access, err := coord.Refresh(context.Background())
			outcomes <- refreshOutcome{access: access, err: err}
		}()
	}

	require.Eventually(t, func() bool {
		return coord.State() == StateRefreshing && coord.Pending() == callers-1
	}, 2*time.Second, time.Millisecond)

	close(release)
	wg.Wait()
	close(outcomes)

	var results []refreshOutcome
	for o := range outcomes {
		results = append(results, o)
	}
	return results
}

func TestCoordinator_SingleFlight(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	var calls atomic.Int32
	release := make(chan struct{})
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		calls.Add(1)
		assert.Equal(t, "ref1", refreshToken)
		<-release
		return credentials.Pair{Access: "tok2"}, nil
	}, nil, metrics)

	const callers = 8
	results := runConcurrentRefresh(t, coord, callers, release)

	require.Len(t, results, callers)
	for _, r := range results {
		assert.NoError(t, r.err)
		assert.Equal(t, "tok2", r.access)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateIdle, coord.State())
	assert.Equal(t, 0, coord.Pending())
	assert.Equal(t, credentials.Pair{Access: "tok2", Refresh: "ref1"}, store.Get(ctx))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.refreshTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(callers-1), testutil.ToFloat64(metrics.waitersTotal))
}

func TestCoordinator_FailureRejectsEveryWaiter(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	backendErr := errors.New("refresh token expired")
	var calls atomic.Int32
	release := make(chan struct{})
	metrics := NewMetrics(prometheus.NewRegistry())

	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		calls.Add(1)
		<-release
		return credentials.Pair{}, backendErr
	}, nil, metrics)

	const callers = 5
	results := runConcurrentRefresh(t, coord, callers, release)

	require.Len(t, results, callers)
	for _, r := range results {
		assert.Empty(t, r.access)
		assert.ErrorIs(t, r.err, ErrRefreshFailed)
		assert.ErrorIs(t, r.err, ErrAuthenticationExpired)
		assert.ErrorIs(t, r.err, backendErr)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateIdle, coord.State())
	assert.True(t, store.Get(ctx).IsEmpty())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.refreshTotal.WithLabelValues(OutcomeFailure)))
}

func TestCoordinator_NoRefreshCredential(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credentials.Pair{Access: "tok1"}))

	var calls atomic.Int32
	metrics := NewMetrics(prometheus.NewRegistry())
	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		calls.Add(1)
		return credentials.Pair{Access: "never"}, nil
	}, nil, metrics)

	access, err := coord.Refresh(ctx)

	assert.Empty(t, access)
	assert.ErrorIs(t, err, ErrNoRefreshCredential)
	assert.ErrorIs(t, err, ErrAuthenticationExpired)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, StateIdle, coord.State())
	assert.True(t, store.Get(ctx).IsEmpty())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.refreshTotal.WithLabelValues(OutcomeNoCredential)))
}

func TestCoordinator_EmptyAccessTokenIsFailure(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		return credentials.Pair{}, nil
	}, nil, nil)

	_, err := coord.Refresh(ctx)

	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.True(t, store.Get(ctx).IsEmpty())
}

func TestCoordinator_RotatedRefreshTokenIsStored(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		return credentials.Pair{Access: "tok2", Refresh: "ref2"}, nil
	}, nil, nil)

	access, err := coord.Refresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "tok2", access)
	assert.Equal(t, credentials.Pair{Access: "tok2", Refresh: "ref2"}, store.Get(ctx))
}

func TestCoordinator_SequentialEpisodes(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(ctx, credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	var calls atomic.Int32
	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		n := calls.Add(1)
		if n == 1 {
			return credentials.Pair{Access: "tok2"}, nil
		}
		return credentials.Pair{Access: "tok3"}, nil
	}, nil, nil)

	first, err := coord.Refresh(ctx)
	require.NoError(t, err)
	second, err := coord.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "tok2", first)
	assert.Equal(t, "tok3", second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCoordinator_DetachedFromCallerCancellation(t *testing.T) {
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	coord := NewCoordinator(store, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		if err := ctx.Err(); err != nil {
			return credentials.Pair{}, err
		}
		return credentials.Pair{Access: "tok2"}, nil
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	access, err := coord.Refresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "tok2", access)
}

// contextBoundStore reads empty once its context is done, as the network
// backends do when a read fails
type contextBoundStore struct {
	credentials.Store
}

func (s contextBoundStore) Get(ctx context.Context) credentials.Pair {
	if ctx.Err() != nil {
		return credentials.Pair{}
	}
	return s.Store.Get(ctx)
}

func TestCoordinator_CancelledCallerKeepsRefreshCredential(t *testing.T) {
	inner := credentials.NewMemoryStore()
	require.NoError(t, inner.Set(context.Background(), credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	var seen string
	coord := NewCoordinator(contextBoundStore{Store: inner}, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		seen = refreshToken
		return credentials.Pair{Access: "tok2"}, nil
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	access, err := coord.Refresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "tok2", access)
	assert.Equal(t, "ref1", seen)
	assert.Equal(t, credentials.Pair{Access: "tok2", Refresh: "ref1"}, inner.Get(context.Background()))
}

type failingSetStore struct {
	credentials.Store
}

func (s failingSetStore) Set(ctx context.Context, pair credentials.Pair) error {
	return errors.New("disk full")
}

func TestCoordinator_PersistFailureStillHandsOutToken(t *testing.T) {
	ctx := context.Background()
	inner := credentials.NewMemoryStore()
	require.NoError(t, inner.Set(ctx, credentials.Pair{Access: "tok1", Refresh: "ref1"}))

	coord := NewCoordinator(failingSetStore{Store: inner}, func(ctx context.Context, refreshToken string) (credentials.Pair, error) {
		return credentials.Pair{Access: "tok2"}, nil
	}, nil, nil)

	access, err := coord.Refresh(ctx)

	require.NoError(t, err)
	assert.Equal(t, "tok2", access)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
	assert.Equal(t, "State(7)", State(7).String())
}
