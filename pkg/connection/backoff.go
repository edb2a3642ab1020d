package connection

import (
	"sync"
	"time"
)

// Backoff constants.
const (
	// InitialBackoff is the initial reconnection delay.
	InitialBackoff = 1 * time.Second

	// MaxBackoff is the maximum reconnection delay.
	MaxBackoff = 32 * time.Second

	// MaxBackoffAttempts caps the attempt counter. The delay stops
	// growing past this point; attempts keep going at MaxBackoff.
	MaxBackoffAttempts = 6
)

// Backoff calculates exponential reconnection delays: initial·2^attempt,
// capped at the maximum.
type Backoff struct {
	mu sync.Mutex

	initial     time.Duration
	max         time.Duration
	maxAttempts int

	attempts int
}

// NewBackoff creates a backoff calculator with default settings.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{})
}

// BackoffConfig allows customizing backoff parameters. Zero values
// select the defaults.
type BackoffConfig struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = MaxBackoffAttempts
	}
	return &Backoff{
		initial:     cfg.Initial,
		max:         cfg.Max,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Next returns the delay for the current attempt and advances the
// attempt counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.delayLocked()
	if b.attempts < b.maxAttempts {
		b.attempts++
	}
	return delay
}

// Peek returns the delay for the current attempt without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delayLocked()
}

// Reset resets the backoff to initial values.
// Call this after a successful authentication.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
}

// Attempts returns the number of backoff attempts since last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

func (b *Backoff) delayLocked() time.Duration {
	delay := b.initial << b.attempts
	if delay > b.max || delay <= 0 {
		delay = b.max
	}
	return delay
}
