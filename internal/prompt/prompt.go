package prompt

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("no pending prompt")
	ErrExpired  = errors.New("prompt expired")
)

// Pending is an event announcement waiting for its text.
type Pending struct {
	UserID   int64
	ChatID   int64
	Mentions []string
	Expires  time.Time
}

// Manager handles pending event prompts, at most one per user.
type Manager struct {
	mu      sync.Mutex
	pending map[int64]Pending
	ttl     time.Duration
	now     func() time.Time
}

// New creates manager with TTL.
func New(ttl time.Duration) *Manager {
	return &Manager{
		pending: make(map[int64]Pending),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue records a prompt for userID, replacing any earlier one.
func (m *Manager) Issue(userID, chatID int64, mentions []string) Pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Pending{UserID: userID, ChatID: chatID, Mentions: mentions, Expires: m.now().Add(m.ttl)}
	m.pending[userID] = p
	return p
}

// Consume returns and removes userID's prompt.
func (m *Manager) Consume(userID int64) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[userID]
	if !ok {
		return Pending{}, ErrNotFound
	}
	delete(m.pending, userID)
	if m.now().After(p.Expires) {
		return Pending{}, ErrExpired
	}
	return p, nil
}

// Sweep removes expired prompts.
func (m *Manager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, v := range m.pending {
		if now.After(v.Expires) {
			delete(m.pending, k)
		}
	}
}
