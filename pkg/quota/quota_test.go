package quota_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
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

func newTestLimiter(cfg quota.Config) (*quota.Limiter, *fakeClock) {
	l := quota.NewLimiter(cfg)
	clock := newFakeClock()
	l.SetClock(clock.Now)
	return l, clock
}

func TestLimiter_AdmitWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 3, Window: time.Second})

	for i := 0; i < 3; i++ {
		d := l.Admit("freightcom")
		assert.True(t, d.Allowed, "call %d should be admitted", i+1)
	}

	d := l.Admit("freightcom")
	assert.False(t, d.Allowed, "fourth call should be denied")
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Second)
}

func TestLimiter_WindowRollover(t *testing.T) {
	l, clock := newTestLimiter(quota.Config{MaxRequests: 2, Window: time.Second})

	assert.True(t, l.Admit("acme").Allowed)
	assert.True(t, l.Admit("acme").Allowed)
	assert.False(t, l.Admit("acme").Allowed)

	clock.Advance(time.Second)

	d := l.Admit("acme")
	assert.True(t, d.Allowed, "window should reset after 1s")
	assert.Equal(t, 1, d.Remaining)
}

func TestLimiter_ProvidersIsolated(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 1, Window: time.Minute})

	assert.True(t, l.Admit("freightcom").Allowed)
	assert.False(t, l.Admit("freightcom").Allowed)

	// Exhausting freightcom must not affect canadapost.
	assert.True(t, l.Admit("canadapost").Allowed)
}

func TestLimiter_Remaining(t *testing.T) {
	l, clock := newTestLimiter(quota.Config{MaxRequests: 5, Window: time.Minute})

	assert.Equal(t, 5, l.Remaining("freightcom"))

	l.Admit("freightcom")
	l.Admit("freightcom")
	assert.Equal(t, 3, l.Remaining("freightcom"))

	// Remaining is read-only.
	assert.Equal(t, 3, l.Remaining("freightcom"))

	// A stale window is rolled over before reporting.
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 5, l.Remaining("freightcom"))
}

func TestLimiter_TimeUntilReset(t *testing.T) {
	l, clock := newTestLimiter(quota.Config{MaxRequests: 5, Window: time.Minute})

	l.Admit("freightcom")
	assert.Equal(t, time.Minute, l.TimeUntilReset("freightcom"))

	clock.Advance(40 * time.Second)
	assert.Equal(t, 20*time.Second, l.TimeUntilReset("freightcom"))

	clock.Advance(40 * time.Second)
	assert.Equal(t, time.Duration(0), l.TimeUntilReset("freightcom"))
}

func TestLimiter_ConfigureResetsWindow(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 2, Window: time.Minute})

	l.Admit("acme")
	l.Admit("acme")
	assert.False(t, l.Admit("acme").Allowed)

	require.NoError(t, l.Configure("acme", quota.Config{MaxRequests: 4, Window: time.Minute}))

	// New configuration takes effect immediately with a fresh count.
	assert.Equal(t, 4, l.Remaining("acme"))
	for i := 0; i < 4; i++ {
		assert.True(t, l.Admit("acme").Allowed)
	}
	assert.False(t, l.Admit("acme").Allowed)
}

func TestLimiter_ConfigureInvalid(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 2, Window: time.Minute})

	err := l.Configure("acme", quota.Config{MaxRequests: 0, Window: time.Minute})
	assert.ErrorIs(t, err, quota.ErrInvalidConfig)

	err = l.Configure("acme", quota.Config{MaxRequests: 10, Window: 0})
	assert.ErrorIs(t, err, quota.ErrInvalidConfig)

	err = l.Configure("acme", quota.Config{MaxRequests: -1, Window: -time.Second})
	assert.ErrorIs(t, err, quota.ErrInvalidConfig)
}

func TestLimiter_Scenario(t *testing.T) {
	// configure(acme, 2, 1s); two admits pass; third is denied with
	// retry_after <= 1s; after the window passes the next admit succeeds.
	l, clock := newTestLimiter(quota.Config{MaxRequests: 100, Window: time.Hour})
	require.NoError(t, l.Configure("acme", quota.Config{MaxRequests: 2, Window: time.Second}))

	assert.True(t, l.Admit("acme").Allowed)
	assert.True(t, l.Admit("acme").Allowed)

	d := l.Admit("acme")
	assert.False(t, d.Allowed)
	assert.LessOrEqual(t, d.RetryAfter, time.Second)

	clock.Advance(time.Second)
	assert.True(t, l.Admit("acme").Allowed)
}

func TestLimiter_ConcurrentAdmit(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 50, Window: time.Minute})

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("freightcom").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// No lost updates: exactly the configured number of admissions.
	assert.Equal(t, 50, allowed)
	assert.Equal(t, 0, l.Remaining("freightcom"))
}

func TestLimiter_Status(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 10, Window: time.Minute})

	l.Admit("freightcom")
	l.Admit("freightcom")

	st := l.Status("freightcom")
	assert.Equal(t, "freightcom", st.Provider)
	assert.Equal(t, 10, st.MaxRequests)
	assert.Equal(t, 8, st.Remaining)
	assert.Equal(t, time.Minute, st.Window)
	assert.LessOrEqual(t, st.ResetIn, time.Minute)
}

func TestLimiter_All(t *testing.T) {
	l, _ := newTestLimiter(quota.Config{MaxRequests: 10, Window: time.Minute})

	l.Admit("freightcom")
	l.Admit("canadapost")

	statuses := l.All()
	assert.Len(t, statuses, 2)

	names := []string{statuses[0].Provider, statuses[1].Provider}
	assert.Contains(t, names, "freightcom")
	assert.Contains(t, names, "canadapost")
}

func TestLimiter_LazyDefaultConfig(t *testing.T) {
	l := quota.NewLimiter(quota.Config{})
	st := l.Status("unseen")
	assert.Equal(t, quota.DefaultConfig.MaxRequests, st.MaxRequests)
	assert.Equal(t, quota.DefaultConfig.Window, st.Window)
}
