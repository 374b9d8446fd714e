package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackdown/internal/domain"
	"trackdown/internal/ports"
)

// Registry owns the authoritative collections of active sessions and
// participants. Sessions and participants are stored by id in central
// maps; cross-references between them are always resolved through these
// maps, never through ownership pointers.
type Registry struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	players        map[string]*Participant
	playerSessions map[string]string
	lifetimes      map[string]*time.Timer
	graces         map[string]*time.Timer

	gen    *Generator
	store  ports.CounterStore
	timing Timing
	log    *slog.Logger
}

// NewRegistry constructs an empty registry. A single instance per
// process is expected.
func NewRegistry(gen *Generator, store ports.CounterStore, timing Timing, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		sessions:       make(map[string]*Session),
		players:        make(map[string]*Participant),
		playerSessions: make(map[string]string),
		lifetimes:      make(map[string]*time.Timer),
		graces:         make(map[string]*time.Timer),
		gen:            gen,
		store:          store,
		timing:         timing,
		log:            log,
	}
}

// RegisterPlayer creates a participant with a fresh unique id.
func (r *Registry) RegisterPlayer(name string) (*Participant, error) {
	switch {
	case name == "":
		return nil, ErrNameEmpty
	case len(name) > domain.MaxNameLength:
		return nil, fmt.Errorf("register %q: %w", name, ErrNameTooLong)
	case strings.EqualFold(name, domain.ReservedChatName):
		return nil, fmt.Errorf("register %q: %w", name, ErrNameReserved)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	for r.players[id] != nil {
		id = uuid.NewString()
	}

	p := &Participant{ID: id, Name: name}
	r.players[id] = p
	r.log.Info("registered player", "player", id, "name", name)
	return p, nil
}

// Player returns the participant with the given id.
func (r *Registry) Player(id string) (*Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[id]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, ErrPlayerNotFound)
	}
	return p, nil
}

// Session returns the session with the given id.
func (r *Registry) Session(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// PlayerSession returns the session the player is currently seated in.
func (r *Registry) PlayerSession(playerID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sid, ok := r.playerSessions[playerID]
	if !ok {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNoActiveSession)
	}
	s, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sid, ErrSessionNotFound)
	}
	return s, nil
}

// CreateSession builds a session for the playlist: rounds are generated
// first (several catalog lookups, may take a while), then the session is
// registered under a fresh id and its lifetime and empty-grace timers
// are armed. The durable total-sessions counter is bumped on success.
func (r *Registry) CreateSession(ctx context.Context, playlist domain.Playlist, typ domain.SessionType, vis domain.Visibility, opts domain.Options) (*Session, error) {
	opts = opts.Clamp()

	rounds, err := r.gen.Generate(ctx, playlist, typ, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	id := r.newSessionIDLocked()
	s := NewSession(id, typ, vis, playlist, opts, rounds, r.gen, r.timing, r.log)
	r.sessions[id] = s
	r.lifetimes[id] = time.AfterFunc(r.timing.MaxSessionLifetime, func() {
		r.log.Info("session exceeded max lifetime", "session", id)
		r.Teardown(id)
	})
	r.graces[id] = time.AfterFunc(r.timing.EmptySessionGrace, func() {
		r.expireIfEmpty(id)
	})
	r.mu.Unlock()

	if total, err := r.store.IncrementTotalSessions(ctx); err != nil {
		// The counter is best-effort bookkeeping; the session stands.
		r.log.Error("total-sessions counter update failed", "error", err)
	} else {
		r.log.Info("created session", "session", id, "playlist", playlist.ID, "total_played", total)
	}

	return s, nil
}

// Join seats the player in the session, removing them from any previous
// session first so a participant is never a member of two sessions.
func (r *Registry) Join(playerID, sessionID string) error {
	sessionID = strings.ToUpper(sessionID)

	p, err := r.Player(playerID)
	if err != nil {
		return err
	}
	s, err := r.Session(sessionID)
	if err != nil {
		return err
	}

	if err := r.Leave(playerID); err != nil && domain.KindOf(err) != domain.KindNotFound {
		return err
	}

	if err := s.Join(p); err != nil {
		return err
	}

	r.mu.Lock()
	r.playerSessions[playerID] = sessionID
	if g, ok := r.graces[sessionID]; ok {
		g.Stop()
		delete(r.graces, sessionID)
	}
	r.mu.Unlock()

	return nil
}

// Leave removes the player from their active session, tearing the
// session down when it empties.
func (r *Registry) Leave(playerID string) error {
	r.mu.Lock()
	sid, ok := r.playerSessions[playerID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("player %s: %w", playerID, ErrNoActiveSession)
	}
	delete(r.playerSessions, playerID)
	s := r.sessions[sid]
	r.mu.Unlock()

	if s == nil {
		return nil
	}

	remaining, err := s.Leave(playerID)
	if err != nil && domain.KindOf(err) != domain.KindInvalidState {
		return err
	}
	if remaining == 0 {
		r.Teardown(sid)
	}
	return nil
}

// Teardown removes the session: every seated player's membership is
// cleared, all of its timers are cancelled, and it stops being
// discoverable. Safe to call for an already removed session.
func (r *Registry) Teardown(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, sessionID)
	if t, ok := r.lifetimes[sessionID]; ok {
		t.Stop()
		delete(r.lifetimes, sessionID)
	}
	if g, ok := r.graces[sessionID]; ok {
		g.Stop()
		delete(r.graces, sessionID)
	}
	r.mu.Unlock()

	evicted := s.Close()

	r.mu.Lock()
	for _, pid := range evicted {
		if r.playerSessions[pid] == sessionID {
			delete(r.playerSessions, pid)
		}
	}
	r.mu.Unlock()

	r.log.Info("removed session", "session", sessionID)
}

// DisconnectPlayer handles a transport's permanent closure: the player
// leaves any session, their connection is closed, and the registry
// record is evicted. The session itself continues for remaining members.
func (r *Registry) DisconnectPlayer(playerID string) {
	if err := r.Leave(playerID); err != nil && domain.KindOf(err) != domain.KindNotFound {
		r.log.Warn("leave on disconnect failed", "player", playerID, "error", err)
	}

	r.mu.Lock()
	p, ok := r.players[playerID]
	delete(r.players, playerID)
	r.mu.Unlock()

	if !ok {
		return
	}
	if t := p.Transport(); t != nil {
		t.Close()
	}
	r.log.Info("evicted player", "player", playerID)
}

// ListJoinable returns snapshots of every public pending session for
// discovery.
func (r *Registry) ListJoinable() []*domain.SessionState {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	states := make([]*domain.SessionState, 0, len(all))
	for _, s := range all {
		if s.Visibility != domain.VisibilityPublic {
			continue
		}
		state := s.Snapshot()
		if state.Status != domain.StatusPending {
			continue
		}
		states = append(states, state)
	}
	return states
}

// TotalPlayed reports the durable count of sessions ever created.
func (r *Registry) TotalPlayed(ctx context.Context) (int64, error) {
	return r.store.TotalSessions(ctx)
}

// expireIfEmpty tears down a session that never gained a participant
// within the grace window after creation.
func (r *Registry) expireIfEmpty(sessionID string) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok || s.NumPlayers() > 0 {
		return
	}
	r.log.Info("removing session that never gained a player", "session", sessionID)
	r.Teardown(sessionID)
}

// newSessionIDLocked generates a 6-hex-char session id, collision-checked
// against the current active set.
func (r *Registry) newSessionIDLocked() string {
	for {
		var b [3]byte
		if _, err := rand.Read(b[:]); err != nil {
			// crypto/rand.Read does not fail on supported platforms.
			panic(err)
		}
		id := strings.ToUpper(hex.EncodeToString(b[:]))
		if _, taken := r.sessions[id]; !taken {
			return id
		}
	}
}
