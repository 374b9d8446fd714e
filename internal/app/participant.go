package app

import (
	"sync"

	"trackdown/internal/ports"
)

// Participant is the canonical record for a registered player. The
// registry owns it; a session holds a non-owning reference while the
// player is seated.
type Participant struct {
	ID   string
	Name string

	// Membership is non-nil iff the participant is seated in exactly one
	// session. It is guarded by that session's lock.
	Membership *Membership

	mu        sync.Mutex
	transport ports.Transport
}

// Membership is the per-session state of a seated participant.
type Membership struct {
	SessionID string
	Ready     bool
	// Scores has one slot per round; nil means pending.
	Scores []*int
}

// SetTransport attaches or replaces the participant's live connection.
// The participant references the transport to push updates; it does not
// own its lifecycle.
func (p *Participant) SetTransport(t ports.Transport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport = t
}

// Transport returns the current connection, or nil when offline.
func (p *Participant) Transport() ports.Transport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transport
}

// pendingScores builds a score list of n unscored slots.
func pendingScores(n int) []*int {
	return make([]*int, n)
}
