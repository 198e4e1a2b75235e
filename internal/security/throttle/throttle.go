package throttle

import (
	"context"
	"sync"
	"time"
)

const (
	// Window is the trailing interval requests are counted in.
	Window = 30 * time.Second
	// MaxRequests is the number of accepted requests allowed per Window.
	MaxRequests = 5
)

// Throttle provides per-user sliding window spam detection.
type Throttle struct {
	window   time.Duration
	maxCalls int
	idleTTL  time.Duration
	onSpam   func(user int64)

	mu    sync.Mutex
	users map[int64][]time.Time
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithIdleTTL enables eviction of users whose newest request is older than d.
// Values shorter than the window are raised to the window so that eviction
// never drops a request that could still count.
func WithIdleTTL(d time.Duration) Option {
	return func(t *Throttle) {
		t.idleTTL = d
	}
}

// WithOnSpam sets a callback run outside the lock for every rejected request.
func WithOnSpam(fn func(user int64)) Option {
	return func(t *Throttle) {
		t.onSpam = fn
	}
}

// New creates a throttle allowing MaxRequests per Window.
func New(opts ...Option) *Throttle {
	t := &Throttle{
		window:   Window,
		maxCalls: MaxRequests,
		users:    make(map[int64][]time.Time),
	}
	for _, o := range opts {
		o(t)
	}
	if t.idleTTL > 0 && t.idleTTL < t.window {
		t.idleTTL = t.window
	}
	return t
}

// IsSpam prunes the user's history relative to now and reports whether the
// request is spam. Only accepted requests are recorded.
func (t *Throttle) IsSpam(user int64, now time.Time) bool {
	t.mu.Lock()
	times := t.users[user]

	// history is time ordered, so stale entries form a prefix
	stale := 0
	for stale < len(times) && now.Sub(times[stale]) > t.window {
		stale++
	}
	if stale > 0 {
		n := copy(times, times[stale:])
		times = times[:n]
	}

	if len(times) >= t.maxCalls {
		t.users[user] = times
		t.mu.Unlock()
		if t.onSpam != nil {
			t.onSpam(user)
		}
		return true
	}
	t.users[user] = append(times, now)
	t.mu.Unlock()
	return false
}

// Pending returns how many accepted requests the user currently holds.
func (t *Throttle) Pending(user int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users[user])
}

// Users returns the number of tracked users.
func (t *Throttle) Users() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.users)
}

// Run evicts idle users until ctx is done. It returns immediately when idle
// eviction is disabled.
func (t *Throttle) Run(ctx context.Context) {
	if t.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(t.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Sweep(now)
		}
	}
}

// Sweep drops users whose newest request is older than the idle TTL at now.
func (t *Throttle) Sweep(now time.Time) int {
	if t.idleTTL <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for user, times := range t.users {
		if len(times) == 0 || now.Sub(times[len(times)-1]) > t.idleTTL {
			delete(t.users, user)
			evicted++
		}
	}
	return evicted
}
