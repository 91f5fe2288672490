// internal/download/retry.go
package download

import (
	"math/rand"
	"time"
)

// Default retry behaviour: five attempts against transient statuses on
// idempotent read methods, exponential backoff capped at thirty seconds.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// DefaultRetryStatuses are the HTTP statuses retried unless overridden.
func DefaultRetryStatuses() []int {
	return []int{429, 500, 502, 503, 504}
}

// DefaultRetryMethods are the HTTP methods retried unless overridden.
func DefaultRetryMethods() []string {
	return []string{"GET", "HEAD", "OPTIONS"}
}

// RetryPolicy decides whether a failed attempt should be repeated and how
// long to wait first. The zero value is not usable; construct with
// NewRetryPolicy.
type RetryPolicy struct {
	statuses    map[int]bool
	methods     map[string]bool
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64 // fraction of the backoff added as random jitter
}

// RetryConfig overrides parts of the default retry policy. Zero fields keep
// their defaults.
type RetryConfig struct {
	Statuses    []int
	Methods     []string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// NoJitter disables the random component of the backoff, mainly for
	// deterministic tests.
	NoJitter bool
}

// NewRetryPolicy builds a policy from config, filling defaults.
func NewRetryPolicy(config RetryConfig) RetryPolicy {
	if len(config.Statuses) == 0 {
		config.Statuses = DefaultRetryStatuses()
	}
	if len(config.Methods) == 0 {
		config.Methods = DefaultRetryMethods()
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseDelay == 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = DefaultMaxDelay
	}

	statuses := make(map[int]bool, len(config.Statuses))
	for _, s := range config.Statuses {
		statuses[s] = true
	}
	methods := make(map[string]bool, len(config.Methods))
	for _, m := range config.Methods {
		methods[m] = true
	}

	jitter := 0.5
	if config.NoJitter {
		jitter = 0
	}
	return RetryPolicy{
		statuses:    statuses,
		methods:     methods,
		maxAttempts: config.MaxAttempts,
		baseDelay:   config.BaseDelay,
		maxDelay:    config.MaxDelay,
		jitter:      jitter,
	}
}

// MaxAttempts returns the attempt cap.
func (p RetryPolicy) MaxAttempts() int { return p.maxAttempts }

// Decide reports whether the attempt numbered attempt (1-based, already
// performed) should be repeated, and the delay to wait first. err is any
// transport failure; status is the HTTP status of a completed response, zero
// when the request never completed. Transport failures and configured
// statuses are retried, but only for configured methods and while attempts
// remain.
func (p RetryPolicy) Decide(attempt int, method string, status int, err error) (bool, time.Duration) {
	if attempt >= p.maxAttempts {
		return false, 0
	}
	if !p.methods[method] {
		return false, 0
	}
	if err == nil && !p.statuses[status] {
		return false, 0
	}
	return true, p.backoff(attempt)
}

// backoff returns the delay before the next attempt: exponential in the
// attempt number, capped, with proportional jitter on top.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.baseDelay << uint(attempt-1)
	if delay > p.maxDelay || delay <= 0 {
		delay = p.maxDelay
	}
	if p.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(float64(delay) * p.jitter)))
	}
	if delay > p.maxDelay {
		delay = p.maxDelay
	}
	return delay
}
