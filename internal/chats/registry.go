package chats

import "sync"

// Registry holds the currently configured inviting and invited chats.
type Registry struct {
	inviting int64
	invited  int64
	mu       sync.RWMutex
}

// New creates a registry with initial chat IDs; zero means unset.
func New(inviting, invited int64) *Registry {
	return &Registry{inviting: inviting, invited: invited}
}

// Inviting returns the chat whose members may request invite links.
func (r *Registry) Inviting() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inviting
}

// Invited returns the chat invite links point to.
func (r *Registry) Invited() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invited
}

// Set replaces both chats.
func (r *Registry) Set(inviting, invited int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inviting = inviting
	r.invited = invited
}

// Configured reports whether both chats are set.
func (r *Registry) Configured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inviting != 0 && r.invited != 0
}

// IsInvited reports whether chatID is the invited chat.
func (r *Registry) IsInvited(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invited != 0 && r.invited == chatID
}

// Managed reports whether chatID is the inviting or the invited chat.
func (r *Registry) Managed(chatID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return chatID != 0 && (chatID == r.inviting || chatID == r.invited)
}

// Merge overrides the current chats with persisted role bindings, keeping
// the current value for roles that are absent.
func (r *Registry) Merge(persisted map[string]int64, invitingRole, invitedRole string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := persisted[invitingRole]; ok && id != 0 {
		r.inviting = id
	}
	if id, ok := persisted[invitedRole]; ok && id != 0 {
		r.invited = id
	}
}
