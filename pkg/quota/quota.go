// Package quota provides per-provider fixed-window request limiting
// for outbound carrier API calls.
package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidConfig indicates a non-positive limit or window was supplied.
var ErrInvalidConfig = errors.New("invalid quota configuration")

// Config holds the quota parameters for a single provider window.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max_requests must be positive, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Decision is the outcome of an admission check. A denial is a normal
// control-flow result, not an error.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Status is a read-only snapshot of a provider's window, used by the
// admin introspection endpoints.
type Status struct {
	Provider    string        `json:"provider"`
	MaxRequests int           `json:"max_requests"`
	Window      time.Duration `json:"window"`
	Remaining   int           `json:"remaining"`
	ResetIn     time.Duration `json:"reset_in"`
}

type providerState struct {
	mu          sync.Mutex
	cfg         Config
	windowStart time.Time
	count       int
}

// rollover resets the window if it has elapsed. Caller holds s.mu.
func (s *providerState) rollover(now time.Time) {
	if now.Sub(s.windowStart) >= s.cfg.Window {
		s.windowStart = now
		s.count = 0
	}
}

// Limiter enforces a fixed-window request quota per provider. Provider
// state is created lazily with the default configuration on first
// reference and lives for the process lifetime. The counter for each
// provider is updated under its own lock, so unrelated providers never
// contend.
//
// Fixed windows admit up to 2x the limit across a window boundary.
// That is acceptable here: the limiter exists to keep us clear of hard
// partner-side throttling, not to provide precise fairness.
type Limiter struct {
	mu        sync.Mutex
	providers map[string]*providerState
	defaults  Config

	// now is overridable for tests.
	now func() time.Time
}

// DefaultConfig is applied to providers that are admitted before any
// explicit Configure call.
var DefaultConfig = Config{MaxRequests: 60, Window: time.Minute}

// NewLimiter creates a limiter using cfg as the default for providers
// that have not been configured explicitly. A zero cfg falls back to
// DefaultConfig.
func NewLimiter(cfg Config) *Limiter {
	if cfg.MaxRequests == 0 && cfg.Window == 0 {
		cfg = DefaultConfig
	}
	return &Limiter{
		providers: make(map[string]*providerState),
		defaults:  cfg,
		now:       time.Now,
	}
}

// state returns the window state for provider, creating it with the
// default configuration if needed.
func (l *Limiter) state(provider string) *providerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.providers[provider]
	if !ok {
		s = &providerState{cfg: l.defaults, windowStart: l.now()}
		l.providers[provider] = s
	}
	return s
}

// Admit checks the provider's window and, if capacity remains, counts
// the request. A denied decision carries the time until the window
// resets; the limiter never blocks the caller.
func (l *Limiter) Admit(provider string) Decision {
	s := l.state(provider)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)

	if s.count < s.cfg.MaxRequests {
		s.count++
		return Decision{Allowed: true, Remaining: s.cfg.MaxRequests - s.count}
	}
	return Decision{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: s.windowStart.Add(s.cfg.Window).Sub(now),
	}
}

// Remaining reports how many requests the provider may still make in
// the current window. A stale window is rolled over first so the value
// is never based on an expired window.
func (l *Limiter) Remaining(provider string) int {
	s := l.state(provider)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(l.now())
	return s.cfg.MaxRequests - s.count
}

// TimeUntilReset reports how long until the provider's current window
// rolls over. Never negative.
func (l *Limiter) TimeUntilReset(provider string) time.Duration {
	s := l.state(provider)

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.windowStart.Add(s.cfg.Window).Sub(l.now())
	if d < 0 {
		return 0
	}
	return d
}

// Configure replaces the provider's quota parameters. The window is
// restarted and the count cleared so the new limit takes effect
// immediately instead of blending with the old accounting.
func (l *Limiter) Configure(provider string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s := l.state(provider)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.windowStart = l.now()
	s.count = 0
	return nil
}

// Status returns a snapshot of the provider's window.
func (l *Limiter) Status(provider string) Status {
	s := l.state(provider)
	now := l.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	resetIn := s.windowStart.Add(s.cfg.Window).Sub(now)
	if resetIn < 0 {
		resetIn = 0
	}
	return Status{
		Provider:    provider,
		MaxRequests: s.cfg.MaxRequests,
		Window:      s.cfg.Window,
		Remaining:   s.cfg.MaxRequests - s.count,
		ResetIn:     resetIn,
	}
}

// All returns snapshots for every provider seen so far.
func (l *Limiter) All() []Status {
	l.mu.Lock()
	names := make([]string, 0, len(l.providers))
	for name := range l.providers {
		names = append(names, name)
	}
	l.mu.Unlock()

	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, l.Status(name))
	}
	return statuses
}

// SetClock overrides the limiter's time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}
