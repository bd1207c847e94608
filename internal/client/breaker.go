package client

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state for one operation key
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// Default breaker tuning
const (
	DefaultMaxFailures  = 3
	DefaultResetTimeout = 60 * time.Second
	DefaultBaseBackoff  = time.Second
	DefaultMaxBackoff   = 30 * time.Second
)

type breaker struct {
	mu            sync.Mutex
	state         BreakerState
	failureCount  int
	nextRetryTime time.Time
	backoffDelay  time.Duration
}

// BreakerRegistry tracks circuit breaker state per operation key. It is an
// explicit instance rather than package state so tests and embedders can run
// isolated registries. Each key's state is updated under its own mutex, so
// concurrent failures on the same key never lose updates.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*breaker

	maxFailures  int
	resetTimeout time.Duration
	baseBackoff  time.Duration
	maxBackoff   time.Duration

	// now is injectable for tests
	now func() time.Time
}

// BreakerConfig tunes a registry; zero values take the defaults
type BreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	Now          func() time.Time
}

// NewBreakerRegistry creates a registry with the given tuning
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BreakerRegistry{
		breakers:     make(map[string]*breaker),
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		baseBackoff:  cfg.BaseBackoff,
		maxBackoff:   cfg.MaxBackoff,
		now:          cfg.Now,
	}
}

func (r *BreakerRegistry) breakerFor(key string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = &breaker{backoffDelay: r.baseBackoff}
		r.breakers[key] = b
	}
	return b
}

// Allow reports whether a request for key may proceed. An open breaker fails
// fast with CircuitOpenError until its retry time elapses, at which point it
// moves to half-open and admits exactly one trial request. The breaker stays
// half-open until that trial settles via RecordSuccess or RecordFailure, so
// concurrent callers keep failing fast instead of stampeding a backend that
// may still be down.
func (r *BreakerRegistry) Allow(key string) error {
	b := r.breakerFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerHalfOpen:
		// A trial is already in flight
		return &CircuitOpenError{Operation: key, RetryAt: b.nextRetryTime}
	}

	if r.now().Before(b.nextRetryTime) {
		return &CircuitOpenError{Operation: key, RetryAt: b.nextRetryTime}
	}
	b.state = BreakerHalfOpen
	return nil
}

// RecordSuccess closes the breaker and resets its counters
func (r *BreakerRegistry) RecordSuccess(key string) {
	b := r.breakerFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failureCount = 0
	b.backoffDelay = r.baseBackoff
}

// RecordFailure counts a failed call. Reaching the failure threshold, or any
// failure while half-open, opens the breaker: the retry time is pushed out by
// the reset timeout and the backoff delay doubles up to its cap.
func (r *BreakerRegistry) RecordFailure(key string) {
	b := r.breakerFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	if b.state == BreakerHalfOpen || b.failureCount >= r.maxFailures {
		b.state = BreakerOpen
		b.nextRetryTime = r.now().Add(r.resetTimeout)
		b.backoffDelay = b.backoffDelay * 2
		if b.backoffDelay > r.maxBackoff {
			b.backoffDelay = r.maxBackoff
		}
	}
}

// State returns the current breaker state for key
func (r *BreakerRegistry) State(key string) BreakerState {
	b := r.breakerFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BackoffDelay returns the current backoff delay for key
func (r *BreakerRegistry) BackoffDelay(key string) time.Duration {
	b := r.breakerFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backoffDelay
}
