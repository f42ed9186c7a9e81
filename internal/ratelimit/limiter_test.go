package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, cfg Config) (*Limiter, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l, err := New(cfg, WithClock(c.Now))
	require.NoError(t, err)
	return l, c
}

func TestAllow_SlidingWindow(t *testing.T) {
	l, c := newLimiter(t, Config{Default: Window{Max: 5, Window: time.Second}})

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("get_cr").Allowed, "call %d", i+1)
		c.advance(100 * time.Millisecond)
	}

	// Sixth call at t=500ms: the first call (t=0) is still inside the window.
	d := l.Allow("get_cr")
	require.False(t, d.Allowed)
	assert.Equal(t, "get_cr", d.Scope)
	assert.Equal(t, 500*time.Millisecond, d.RetryAfter)

	// At t=1000ms the first call falls out.
	c.advance(500 * time.Millisecond)
	assert.True(t, l.Allow("get_cr").Allowed)
	assert.False(t, l.Allow("get_cr").Allowed)
}

func TestAllow_RejectedCallsAreNotRecorded(t *testing.T) {
	l, c := newLimiter(t, Config{Default: Window{Max: 1, Window: time.Second}})

	require.True(t, l.Allow("x").Allowed)
	for i := 0; i < 10; i++ {
		c.advance(50 * time.Millisecond)
		require.False(t, l.Allow("x").Allowed)
	}
	c.advance(500 * time.Millisecond)
	assert.True(t, l.Allow("x").Allowed, "rejections must not extend the window")
}

func TestAllow_PerToolIsolation(t *testing.T) {
	l, _ := newLimiter(t, Config{
		Default: Window{Max: 2, Window: time.Minute},
		Tools:   map[string]Window{"create_cr": {Max: 1, Window: time.Minute}},
	})

	assert.True(t, l.Allow("create_cr").Allowed)
	assert.False(t, l.Allow("create_cr").Allowed)
	assert.True(t, l.Allow("get_cr").Allowed)
	assert.True(t, l.Allow("get_cr").Allowed)
	assert.False(t, l.Allow("get_cr").Allowed)
	assert.True(t, l.Allow("list_crs").Allowed)
}

func TestAllow_GlobalScope(t *testing.T) {
	l, c := newLimiter(t, Config{
		Default: Window{Max: 10, Window: time.Second},
		Global:  Window{Max: 3, Window: time.Second},
	})

	assert.True(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
	c.advance(200 * time.Millisecond)
	assert.True(t, l.Allow("c").Allowed)

	d := l.Allow("d")
	require.False(t, d.Allowed)
	assert.Equal(t, GlobalScope, d.Scope)
	assert.Equal(t, 800*time.Millisecond, d.RetryAfter)

	// The rejected call was not charged to tool "d" either.
	c.advance(800 * time.Millisecond)
	assert.True(t, l.Allow("d").Allowed)
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := newLimiter(t, Config{Default: Window{Max: 50, Window: time.Hour}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("t").Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, admitted)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Default: Window{Max: 0, Window: time.Second}})
	assert.Error(t, err)

	_, err = New(Config{Default: Window{Max: 1, Window: time.Second}, Tools: map[string]Window{"x": {Max: 1}}})
	assert.Error(t, err)

	_, err = New(Config{Default: Window{Max: 1, Window: time.Second}, Global: Window{Max: 1}})
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	l, _ := newLimiter(t, Config{Default: Window{Max: 1, Window: time.Hour}})
	require.True(t, l.Allow("x").Allowed)
	require.False(t, l.Allow("x").Allowed)
	l.Reset()
	assert.True(t, l.Allow("x").Allowed)
}
