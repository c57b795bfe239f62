package biz

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"castgate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://itunes.apple.com/search?media=podcast&term=history"

// fakeEdgeCache is an in-memory biz.EdgeCache.
type fakeEdgeCache struct {
	mu      sync.Mutex
	entries map[string]*model.CachedResponse
	stores  int
}

func newFakeEdgeCache() *fakeEdgeCache {
	return &fakeEdgeCache{entries: make(map[string]*model.CachedResponse)}
}

func (c *fakeEdgeCache) Lookup(_ context.Context, url string) (*model.CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	return entry, ok
}

func (c *fakeEdgeCache) Store(_ context.Context, url string, resp *model.CachedResponse, _, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = resp
	c.stores++
}

func (c *fakeEdgeCache) storeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stores
}

// fakeTransport is a scripted biz.UpstreamTransport.
type fakeTransport struct {
	mu    sync.Mutex
	resp  *model.UpstreamResponse
	err   error
	calls int
}

func (tr *fakeTransport) Fetch(_ context.Context, _ string) (*model.UpstreamResponse, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls++
	if tr.err != nil {
		return nil, tr.err
	}
	return tr.resp, nil
}

func (tr *fakeTransport) callCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.calls
}

// inlineRunner executes scheduled tasks synchronously so tests observe their
// effects without sleeping.
type inlineRunner struct{}

func (inlineRunner) Go(_ string, fn func(ctx context.Context)) {
	fn(context.Background())
}

type fetcherFixture struct {
	fetcher   *FetcherUsecase
	cache     *fakeEdgeCache
	transport *fakeTransport
	breaker   *CircuitBreaker
	clock     *fakeClock
}

func newFetcherFixture(t *testing.T) *fetcherFixture {
	t.Helper()

	logger := log.NewStdLogger(io.Discard)
	breaker, clock := newTestBreaker(t, 5, 30*time.Second)
	cache := newFakeEdgeCache()
	transport := &fakeTransport{
		resp: &model.UpstreamResponse{
			Status:      200,
			ContentType: "application/json",
			Body:        []byte(`{"resultCount":1}`),
		},
	}

	fetcher := NewFetcherUsecase(cache, breaker, transport, inlineRunner{}, logger)
	fetcher.now = clock.Now

	return &fetcherFixture{
		fetcher:   fetcher,
		cache:     cache,
		transport: transport,
		breaker:   breaker,
		clock:     clock,
	}
}

// seedEntry puts an entry of the given age into the cache.
func (f *fetcherFixture) seedEntry(age time.Duration, body string) {
	f.cache.entries[testURL] = &model.CachedResponse{
		Status:      200,
		ContentType: "application/json",
		Body:        []byte(body),
		StoredAt:    f.clock.Now().Add(-age),
	}
}

func searchPolicy() FreshnessPolicy {
	return FreshnessPolicy{TTL: time.Hour, StaleFor: 24 * time.Hour}
}

func TestFetchMissCallsUpstreamAndStores(t *testing.T) {
	f := newFetcherFixture(t)

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)

	assert.False(t, out.CacheHit)
	assert.Equal(t, 0, out.Age)
	assert.Equal(t, 200, out.Status)
	assert.Equal(t, `{"resultCount":1}`, string(out.Body))
	assert.Equal(t, 1, f.transport.callCount())

	// The successful response must have been stored for later hits.
	entry, ok := f.cache.Lookup(context.Background(), testURL)
	require.True(t, ok)
	assert.Equal(t, f.clock.Now(), entry.StoredAt)
}

func TestFetchFreshHitSkipsUpstream(t *testing.T) {
	f := newFetcherFixture(t)
	f.seedEntry(100*time.Second, `{"cached":true}`)

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)

	assert.True(t, out.CacheHit)
	assert.Equal(t, 100, out.Age)
	assert.Equal(t, `{"cached":true}`, string(out.Body))
	assert.Equal(t, 0, f.transport.callCount())
}

func TestFetchStaleHitServesAndRevalidates(t *testing.T) {
	f := newFetcherFixture(t)
	// TTL is 3600s; 4000s old is stale but well within the 24h tolerance.
	f.seedEntry(4000*time.Second, `{"cached":true}`)
	f.transport.resp.Body = []byte(`{"fresh":true}`)

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)

	// The stale body is what the caller sees.
	assert.True(t, out.CacheHit)
	assert.Equal(t, 4000, out.Age)
	assert.Equal(t, `{"cached":true}`, string(out.Body))

	// The inline runner already ran the revalidation.
	assert.Equal(t, 1, f.transport.callCount())
	entry, ok := f.cache.Lookup(context.Background(), testURL)
	require.True(t, ok)
	assert.Equal(t, `{"fresh":true}`, string(entry.Body))
}

func TestFetchBeyondToleranceIsMiss(t *testing.T) {
	f := newFetcherFixture(t)
	// 90000s exceeds TTL (3600s) + tolerance (86400s).
	f.seedEntry(90000*time.Second, `{"cached":true}`)
	f.transport.resp.Body = []byte(`{"fresh":true}`)

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)

	assert.False(t, out.CacheHit)
	assert.Equal(t, `{"fresh":true}`, string(out.Body))
	assert.Equal(t, 1, f.transport.callCount())
}

func TestFetchTransportErrorRecordsBreakerFailure(t *testing.T) {
	f := newFetcherFixture(t)
	f.transport.err = errors.New("connection refused")

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.Error(t, err)

	assert.Nil(t, out)
	assert.True(t, IsUpstreamError(err))
	assert.Equal(t, 1, f.breaker.Failures())
	assert.Equal(t, 0, f.cache.storeCount())
}

func TestFetchUpstreamFailureStatusIsNotCached(t *testing.T) {
	f := newFetcherFixture(t)
	f.transport.resp = &model.UpstreamResponse{Status: 503, Body: []byte("overloaded")}

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.Error(t, err)

	assert.Nil(t, out)
	assert.True(t, IsUpstreamError(err))
	assert.Equal(t, 1, f.breaker.Failures())
	assert.Equal(t, 0, f.cache.storeCount())
}

func TestFetchSuccessResetsBreakerFailures(t *testing.T) {
	f := newFetcherFixture(t)

	f.transport.err = errors.New("connection refused")
	for i := 0; i < 4; i++ {
		_, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
		require.Error(t, err)
	}
	assert.Equal(t, 4, f.breaker.Failures())

	f.transport.err = nil
	_, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)
	assert.Equal(t, 0, f.breaker.Failures())
}

func TestFetchOpenBreakerServesCacheOfAnyAge(t *testing.T) {
	f := newFetcherFixture(t)
	// Even entries beyond the staleness tolerance are served in degraded mode.
	f.seedEntry(90000*time.Second, `{"cached":true}`)

	f.transport.err = errors.New("connection refused")
	openBreaker(t, f)
	f.transport.mu.Lock()
	f.transport.calls = 0
	f.transport.mu.Unlock()

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)

	assert.True(t, out.CacheHit)
	assert.Equal(t, 90000, out.Age)
	assert.Equal(t, `{"cached":true}`, string(out.Body))
	assert.Equal(t, 0, f.transport.callCount(), "open circuit must never touch the transport")
}

func TestFetchOpenBreakerWithoutCacheFailsFast(t *testing.T) {
	f := newFetcherFixture(t)

	f.transport.err = errors.New("connection refused")
	openBreaker(t, f)
	f.transport.mu.Lock()
	f.transport.calls = 0
	f.transport.mu.Unlock()

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.Error(t, err)

	assert.Nil(t, out)
	assert.True(t, IsServiceUnavailable(err))
	assert.Equal(t, 0, f.transport.callCount())
}

func TestFetchProbeAfterRecoveryWindow(t *testing.T) {
	f := newFetcherFixture(t)

	f.transport.err = errors.New("connection refused")
	openBreaker(t, f)

	// Window elapses; the next call is admitted as a probe and fails,
	// re-opening the circuit immediately.
	f.clock.Advance(30 * time.Second)
	_, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.Error(t, err)
	assert.True(t, IsUpstreamError(err))
	assert.Equal(t, BreakerOpen, f.breaker.State())

	// Next window: upstream recovered, the probe closes the circuit.
	f.clock.Advance(30 * time.Second)
	f.transport.err = nil
	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
	assert.Equal(t, BreakerClosed, f.breaker.State())
}

func TestRevalidationFailureKeepsStaleEntry(t *testing.T) {
	f := newFetcherFixture(t)
	f.seedEntry(4000*time.Second, `{"cached":true}`)
	f.transport.err = errors.New("connection refused")

	out, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
	require.NoError(t, err, "revalidation failure must not affect the served response")

	assert.True(t, out.CacheHit)
	assert.Equal(t, `{"cached":true}`, string(out.Body))

	// The stale entry survives so later reads keep working.
	entry, ok := f.cache.Lookup(context.Background(), testURL)
	require.True(t, ok)
	assert.Equal(t, `{"cached":true}`, string(entry.Body))
	assert.Equal(t, 1, f.breaker.Failures(), "failed revalidation still counts against the breaker")
}

func TestWarmStoresFreshEntry(t *testing.T) {
	f := newFetcherFixture(t)

	f.fetcher.Warm(context.Background(), testURL, searchPolicy())

	entry, ok := f.cache.Lookup(context.Background(), testURL)
	require.True(t, ok)
	assert.Equal(t, `{"resultCount":1}`, string(entry.Body))
}

// openBreaker drives the fixture's breaker open through failing fetches.
func openBreaker(t *testing.T, f *fetcherFixture) {
	t.Helper()
	for i := 0; i < 5; i++ {
		_, err := f.fetcher.Fetch(context.Background(), testURL, searchPolicy())
		require.Error(t, err)
	}
	require.Equal(t, BreakerOpen, f.breaker.State())
}
