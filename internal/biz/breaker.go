package biz

import (
	"sync"
	"time"

	"castgate/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed admits all calls.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects all calls until the recovery window elapses.
	BreakerOpen
	// BreakerHalfOpen admits exactly one probe call.
	BreakerHalfOpen
)

// String returns the lowercase state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker tracks upstream health for one running instance. State lives
// in memory only: it resets on restart and is never coordinated across
// replicas, so it provides local fault isolation rather than a global
// guarantee.
//
// Failures accumulate across calls until a success resets them; reaching the
// threshold opens the circuit. After the recovery window a single probe is
// admitted: its success closes the circuit, its failure re-opens it
// immediately.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	threshold   int
	window      time.Duration
	logger      *log.Helper
	now         func() time.Time // injectable for tests
}

// NewCircuitBreaker creates a circuit breaker from configuration.
func NewCircuitBreaker(c *conf.Breaker, logger log.Logger) *CircuitBreaker {
	threshold := 5
	window := 30 * time.Second
	if c != nil {
		if c.FailureThreshold > 0 {
			threshold = int(c.FailureThreshold)
		}
		if c.RecoveryWindow != nil && c.RecoveryWindow.AsDuration() > 0 {
			window = c.RecoveryWindow.AsDuration()
		}
	}

	return &CircuitBreaker{
		state:     BreakerClosed,
		threshold: threshold,
		window:    window,
		logger:    log.NewHelper(logger),
		now:       time.Now,
	}
}

// IsOpen reports whether calls must be rejected. As a side effect, an open
// circuit whose recovery window has elapsed transitions to half-open and
// IsOpen returns false, admitting exactly the next call as a probe.
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return false
	}

	if b.now().Sub(b.lastFailure) >= b.window {
		b.transition(BreakerHalfOpen)
		return false
	}

	return true
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != BreakerClosed {
		b.transition(BreakerClosed)
	}
}

// RecordFailure counts one failed upstream call. Reaching the threshold, or
// any failure while half-open, opens the circuit and stamps the failure time.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		if b.state != BreakerOpen {
			b.transition(BreakerOpen)
		} else {
			// Already open: keep it open, the timestamp above restarts
			// the recovery window.
			b.logger.Debugw("circuit breaker failure while open", "failures", b.failures)
		}
	}
}

// State returns the current state without the half-open side effect of IsOpen.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the failure count since the last success.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// LastFailure returns the time of the most recent recorded failure.
func (b *CircuitBreaker) LastFailure() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFailure
}

// transition must be called with b.mu held.
func (b *CircuitBreaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	b.logger.Infow("circuit breaker state change",
		"from", from.String(),
		"to", to.String(),
		"failures", b.failures)
}
