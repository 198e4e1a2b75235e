package auth

// Authorizer gates administrative commands by Telegram user ID.
// An empty allowlist permits everyone.
type Authorizer struct {
	allowed map[int64]struct{}
}

// New returns Authorizer with provided user IDs.
func New(ids []int64) *Authorizer {
	a := &Authorizer{allowed: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		a.allowed[id] = struct{}{}
	}
	return a
}

// IsAdmin returns true when userID may run administrative commands.
func (a *Authorizer) IsAdmin(userID int64) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[userID]
	return ok
}
