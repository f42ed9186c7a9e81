// Package ratelimit admits tool calls through sliding windows.
//
// Each scope (a tool name, plus the optional global scope "*") keeps the
// timestamps of its admitted calls. A call is admitted when every scope it
// belongs to holds fewer than Max timestamps inside the trailing Window;
// only then is it recorded, in all scopes at once.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// GlobalScope is the scope every call shares.
const GlobalScope = "*"

// Window is one scope's limit.
type Window struct {
	Max    int
	Window time.Duration
}

// Validate rejects non-positive limits.
func (w Window) Validate() error {
	if w.Max <= 0 {
		return fmt.Errorf("max must be positive, got %d", w.Max)
	}
	if w.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", w.Window)
	}
	return nil
}

// Config configures a Limiter.
type Config struct {
	// Default applies to every tool without an override.
	Default Window
	// Global, when Max > 0, also bounds the sum of all calls.
	Global Window
	// Tools overrides Default per tool name.
	Tools map[string]Window
}

// Decision is the outcome of Allow.
type Decision struct {
	Allowed bool
	// Scope is the scope that rejected the call.
	Scope string
	// RetryAfter is how long until the rejecting scope frees a slot.
	RetryAfter time.Duration
}

// Limiter is safe for concurrent use.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu     sync.Mutex
	scopes map[string][]time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Default.Validate(); err != nil {
		return nil, fmt.Errorf("default window: %w", err)
	}
	if cfg.Global.Max > 0 {
		if err := cfg.Global.Validate(); err != nil {
			return nil, fmt.Errorf("global window: %w", err)
		}
	}
	for name, w := range cfg.Tools {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("window for %s: %w", name, err)
		}
	}

	l := &Limiter{cfg: cfg, now: time.Now, scopes: make(map[string][]time.Time)}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow decides whether a call to tool is admitted and records it if so.
func (l *Limiter) Allow(tool string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	type check struct {
		scope string
		w     Window
	}
	checks := []check{{tool, l.windowFor(tool)}}
	if l.cfg.Global.Max > 0 {
		checks = append(checks, check{GlobalScope, l.cfg.Global})
	}

	for _, c := range checks {
		entries := prune(l.scopes[c.scope], now, c.w.Window)
		l.scopes[c.scope] = entries
		if len(entries) >= c.w.Max {
			return Decision{
				Scope:      c.scope,
				RetryAfter: entries[0].Add(c.w.Window).Sub(now),
			}
		}
	}
	for _, c := range checks {
		l.scopes[c.scope] = append(l.scopes[c.scope], now)
	}
	return Decision{Allowed: true}
}

// Reset forgets every recorded call.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.scopes = make(map[string][]time.Time)
	l.mu.Unlock()
}

func (l *Limiter) windowFor(tool string) Window {
	if w, ok := l.cfg.Tools[tool]; ok {
		return w
	}
	return l.cfg.Default
}

// prune drops timestamps at or before now-window. Entries are in
// admission order, so the survivors are a suffix.
func prune(entries []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append(entries[:0:0], entries[i:]...)
}
