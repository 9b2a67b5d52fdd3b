package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CircuitBreaker guards calls to an external gateway (push, SMTP).
// Closed lets calls through, Open fails fast, HalfOpen lets probes through
// until enough succeed to close again.
type CircuitBreaker struct {
	name string

	mu           sync.Mutex
	state        CBState
	failures     int
	successes    int
	openedAt     time.Time
	maxFailures  int
	halfOpenOK   int
	openDuration time.Duration
	now          func() time.Time
}

// CBState is the breaker state.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunables; zero values take defaults.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the breaker (5)
	SuccessThreshold int           // half-open successes that close it (2)
	OpenTimeout      time.Duration // time spent open before probing (30s)
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:         name,
		state:        CBClosed,
		maxFailures:  cfg.FailureThreshold,
		halfOpenOK:   cfg.SuccessThreshold,
		openDuration: cfg.OpenTimeout,
		now:          time.Now,
	}
}

// State returns the current state, moving Open to HalfOpen once the
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked()
}

func (cb *CircuitBreaker) currentLocked() CBState {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.openDuration {
		cb.transitionLocked(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	state := cb.currentLocked()
	cb.mu.Unlock()
	if state == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failures++
		switch cb.state {
		case CBClosed:
			if cb.failures >= cb.maxFailures {
				cb.transitionLocked(CBOpen)
			}
		case CBHalfOpen:
			cb.transitionLocked(CBOpen)
		}
		return err
	}

	switch cb.state {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.halfOpenOK {
			cb.transitionLocked(CBClosed)
		}
	}
	return nil
}

// transitionLocked must be called with cb.mu held.
func (cb *CircuitBreaker) transitionLocked(to CBState) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	if to == CBOpen {
		cb.openedAt = cb.now()
	}
	log.Warn().Str("breaker", cb.name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
}
