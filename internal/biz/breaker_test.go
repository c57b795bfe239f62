package biz

import (
	"io"
	"sync"
	"testing"
	"time"

	"castgate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/durationpb"
)

// fakeClock is a manually advanced clock for deterministic breaker tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(t *testing.T, threshold int, window time.Duration) (*CircuitBreaker, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	b := NewCircuitBreaker(&conf.Breaker{
		FailureThreshold: int32(threshold),
		RecoveryWindow:   durationpb.New(window),
	}, log.NewStdLogger(io.Discard))
	b.now = clock.Now

	return b, clock
}

func TestBreakerStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(t, 5, 30*time.Second)

	assert.Equal(t, BreakerClosed, b.State())
	assert.False(t, b.IsOpen())
	assert.Equal(t, 0, b.Failures())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(t, 5, 30*time.Second)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.False(t, b.IsOpen(), "breaker must stay closed below the threshold")
	}

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.True(t, b.IsOpen())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, 5, 30*time.Second)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	assert.Equal(t, 0, b.Failures())

	// The count restarted, so another four failures must not open it.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, BreakerClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerHalfOpenAfterRecoveryWindow(t *testing.T) {
	b, clock := newTestBreaker(t, 5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	assert.True(t, b.IsOpen())

	clock.Advance(29 * time.Second)
	assert.True(t, b.IsOpen(), "window has not elapsed yet")

	clock.Advance(1 * time.Second)
	assert.False(t, b.IsOpen(), "elapsed window must admit a probe")
	assert.Equal(t, BreakerHalfOpen, b.State())
}

func TestBreakerProbeSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(t, 5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	assert.False(t, b.IsOpen())

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreakerProbeFailureReopensImmediately(t *testing.T) {
	b, clock := newTestBreaker(t, 5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	assert.False(t, b.IsOpen())

	// One failed probe re-opens without needing threshold failures again.
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.True(t, b.IsOpen())

	// And the recovery window restarts from the probe failure.
	clock.Advance(29 * time.Second)
	assert.True(t, b.IsOpen())
	clock.Advance(1 * time.Second)
	assert.False(t, b.IsOpen())
}

func TestBreakerFailureWhileOpenRestartsWindow(t *testing.T) {
	b, clock := newTestBreaker(t, 5, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}

	// A background revalidation can still fail while the circuit is open.
	clock.Advance(20 * time.Second)
	b.RecordFailure()

	clock.Advance(25 * time.Second)
	assert.True(t, b.IsOpen(), "window counts from the most recent failure")

	clock.Advance(5 * time.Second)
	assert.False(t, b.IsOpen())
}

func TestBreakerDefaultsWithoutConfig(t *testing.T) {
	b := NewCircuitBreaker(nil, log.NewStdLogger(io.Discard))

	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.window)
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
}
