package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trackdown/internal/domain"
)

// Timing groups the fixed delays driving session transitions. Tests
// shrink these to keep scenarios fast.
type Timing struct {
	// ReadyTimeout is the auto-ready delay armed when more than half of
	// a pending session's players are ready.
	ReadyTimeout time.Duration
	// PostRoundWait is the pause between a round's reveal and the next
	// round starting.
	PostRoundWait time.Duration
	// RematchDelay is the wait after a session ends before it is
	// recycled into a fresh pending session.
	RematchDelay time.Duration
	// MaxSessionLifetime is the absolute ceiling on a session's
	// existence, regardless of activity.
	MaxSessionLifetime time.Duration
	// EmptySessionGrace tears a session down when it never gains a
	// participant after creation.
	EmptySessionGrace time.Duration
}

// DefaultTiming mirrors production delays.
func DefaultTiming() Timing {
	return Timing{
		ReadyTimeout:       30 * time.Second,
		PostRoundWait:      5 * time.Second,
		RematchDelay:       10 * time.Second,
		MaxSessionLifetime: time.Hour,
		EmptySessionGrace:  5 * time.Minute,
	}
}

// Session is the authoritative state machine for one game instance. All
// mutations are serialized behind mu; the run loop suspends between
// rounds without holding it, so operations on other sessions are never
// blocked.
type Session struct {
	ID         string
	Type       domain.SessionType
	Visibility domain.Visibility

	mu       sync.Mutex
	status   domain.Status
	playlist domain.Playlist
	opts     domain.Options
	rounds   []domain.Round
	members  map[string]*Participant
	chat     []domain.ChatMessage
	current  *domain.CurrentRound

	// roundDone is closed, at most once per round, to resolve the run
	// loop's wait early when every player is ready.
	roundDone chan struct{}
	roundOver bool

	// stop aborts the run loop and any inter-round pause when the
	// session ends. Recreated on rematch.
	stop    chan struct{}
	stopped bool

	autoStart    *time.Timer
	rematchTimer *time.Timer

	gen    *Generator
	timing Timing
	log    *slog.Logger
}

// NewSession constructs a pending session around an already generated
// round set.
func NewSession(id string, typ domain.SessionType, vis domain.Visibility, playlist domain.Playlist, opts domain.Options, rounds []domain.Round, gen *Generator, timing Timing, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		ID:         id,
		Type:       typ,
		Visibility: vis,
		status:     domain.StatusPending,
		playlist:   playlist,
		opts:       opts,
		rounds:     rounds,
		members:    make(map[string]*Participant),
		stop:       make(chan struct{}),
		gen:        gen,
		timing:     timing,
		log:        log.With("session", id),
	}
}

// Join seats a participant. Only pending sessions are joinable.
func (s *Session) Join(p *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusPending {
		return fmt.Errorf("join session %s: %w", s.ID, ErrSessionNotJoinable)
	}

	s.members[p.ID] = p
	p.Membership = &Membership{
		SessionID: s.ID,
		Scores:    pendingScores(len(s.rounds)),
	}

	s.systemChatLocked(p.Name + " has joined the game.")
	s.broadcastLocked()
	s.checkReadinessLocked()
	return nil
}

// Leave unseats a participant in any status and returns how many players
// remain. The caller decides whether an empty session is torn down.
func (s *Session) Leave(playerID string) (remaining int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.members[playerID]
	if !ok {
		return len(s.members), fmt.Errorf("leave session %s: %w", s.ID, ErrNotInSession)
	}

	p.Membership = nil
	delete(s.members, playerID)

	s.systemChatLocked(p.Name + " has left the game.")
	s.broadcastLocked()
	s.checkReadinessLocked()
	return len(s.members), nil
}

// Ready marks the participant ready to advance.
func (s *Session) Ready(playerID string) error {
	return s.setReady(playerID, true)
}

// Unready clears the participant's readiness.
func (s *Session) Unready(playerID string) error {
	return s.setReady(playerID, false)
}

func (s *Session) setReady(playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.members[playerID]
	if !ok {
		return fmt.Errorf("ready in session %s: %w", s.ID, ErrNotInSession)
	}

	p.Membership.Ready = ready
	s.broadcastLocked()
	s.checkReadinessLocked()
	return nil
}

// Guess registers a player's answer for the current round. A correct
// guess earns a time-decayed score and marks the player ready so an
// all-ready table advances early. Rejections never partially record a
// score.
func (s *Session) Guess(playerID string, roundIndex int, trackID string) (domain.GuessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.members[playerID]
	if !ok {
		return domain.GuessResult{}, fmt.Errorf("guess in session %s: %w", s.ID, ErrNotInSession)
	}
	if s.status != domain.StatusActive || s.current == nil {
		return domain.GuessResult{}, fmt.Errorf("guess in session %s: %w", s.ID, ErrRoundNotActive)
	}
	if p.Membership.Ready {
		return domain.GuessResult{}, fmt.Errorf("guess in session %s: %w", s.ID, ErrAlreadyReady)
	}
	if roundIndex != s.current.Index {
		return domain.GuessResult{}, fmt.Errorf("guess round %d in session %s: %w", roundIndex, s.ID, ErrRoundMismatch)
	}
	if p.Membership.Scores[roundIndex] != nil {
		return domain.GuessResult{}, fmt.Errorf("guess round %d in session %s: %w", roundIndex, s.ID, ErrAlreadyGuessed)
	}

	round := &s.rounds[roundIndex]
	correct := trackID == round.TrackID
	elapsed := time.Now().UnixMilli() - round.StartTime
	score := domain.GuessScore(round.MaxDuration, elapsed, correct)

	p.Membership.Scores[roundIndex] = &score
	p.Membership.Ready = true

	s.broadcastLocked()
	s.checkReadinessLocked()

	return domain.GuessResult{Correct: correct, Score: score, CorrectTrackID: round.TrackID}, nil
}

// Chat appends a player message to the session log, clamped to the
// maximum message length.
func (s *Session) Chat(playerID, content string) error {
	if content == "" {
		return ErrEmptyChat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.members[playerID]
	if !ok {
		return fmt.Errorf("chat in session %s: %w", s.ID, ErrNotInSession)
	}

	if len(content) > domain.MaxChatLength {
		content = content[:domain.MaxChatLength]
	}
	s.appendChatLocked(domain.ChatMessage{Sender: p.Name, Content: content})
	s.broadcastLocked()
	return nil
}

// checkReadinessLocked applies the readiness policy after every
// join/leave/ready/unready while the session is pending or active.
func (s *Session) checkReadinessLocked() {
	total := len(s.members)
	ready := 0
	for _, p := range s.members {
		if p.Membership.Ready {
			ready++
		}
	}

	switch s.status {
	case domain.StatusPending:
		switch {
		case total > 0 && ready == total:
			s.cancelAutoStartLocked()
			s.startLocked()
		case ready*2 > total:
			// Over half ready: everyone gets force-readied after the
			// delay unless readiness drops back below the threshold.
			if s.autoStart == nil {
				s.autoStart = time.AfterFunc(s.timing.ReadyTimeout, s.autoReady)
			}
		default:
			s.cancelAutoStartLocked()
		}
	case domain.StatusActive:
		if total > 0 && ready == total {
			s.resolveRoundLocked()
		}
	}
}

// autoReady fires when the majority-ready timer elapses without being
// cancelled. It has no caller to report to; a stale fire is a no-op.
func (s *Session) autoReady() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.autoStart = nil
	if s.status != domain.StatusPending {
		return
	}

	s.log.Info("auto-readying players after majority-ready timeout")
	for _, p := range s.members {
		p.Membership.Ready = true
	}
	s.broadcastLocked()
	s.checkReadinessLocked()
}

func (s *Session) cancelAutoStartLocked() {
	if s.autoStart != nil {
		s.autoStart.Stop()
		s.autoStart = nil
	}
}

// startLocked transitions Pending -> Active and launches the run loop.
func (s *Session) startLocked() {
	s.status = domain.StatusActive
	for _, p := range s.members {
		p.Membership.Ready = false
	}
	s.broadcastLocked()
	s.log.Info("session started", "rounds", len(s.rounds))
	go s.run()
}

// run drives each round in order: start it, wait for all-ready or the
// time budget (whichever first), reveal the answer, pause, continue. The
// waits are raced against the stop channel so ending the session cancels
// them without leaking the timer.
func (s *Session) run() {
	for i := 0; ; i++ {
		s.mu.Lock()
		if s.status != domain.StatusActive || i >= len(s.rounds) {
			s.mu.Unlock()
			break
		}
		done := s.beginRoundLocked(i)
		duration := time.Duration(s.rounds[i].MaxDuration) * time.Millisecond
		s.mu.Unlock()

		timer := time.NewTimer(duration)
		select {
		case <-done:
			timer.Stop()
		case <-timer.C:
		case <-s.stop:
			timer.Stop()
			return
		}

		s.mu.Lock()
		if s.status != domain.StatusActive {
			s.mu.Unlock()
			return
		}
		s.revealRoundLocked(i)
		s.mu.Unlock()

		pause := time.NewTimer(s.timing.PostRoundWait)
		select {
		case <-pause.C:
		case <-s.stop:
			pause.Stop()
			return
		}
	}

	s.End()
}

// beginRoundLocked makes round i current: players are unreadied, the
// start timestamp is stamped exactly once, and the new state goes out.
func (s *Session) beginRoundLocked(i int) <-chan struct{} {
	for _, p := range s.members {
		p.Membership.Ready = false
	}

	round := &s.rounds[i]
	round.StartTime = time.Now().UnixMilli()
	s.current = &domain.CurrentRound{
		Index:    i,
		AudioURL: round.PreviewURL,
		Duration: round.MaxDuration,
		Choices:  round.Choices,
	}

	s.roundOver = false
	s.roundDone = make(chan struct{})

	s.broadcastLocked()
	s.log.Info("round started", "round", i, "track", round.TrackID)
	return s.roundDone
}

// resolveRoundLocked ends the running round's wait early. Safe to call
// more than once per round.
func (s *Session) resolveRoundLocked() {
	if s.roundDone != nil && !s.roundOver {
		s.roundOver = true
		close(s.roundDone)
	}
}

// revealRoundLocked publishes the finished round's answer and readies
// everyone for the scoreboard pause.
func (s *Session) revealRoundLocked(i int) {
	s.resolveRoundLocked()
	s.current.TrackID = s.rounds[i].TrackID
	for _, p := range s.members {
		p.Membership.Ready = true
	}
	s.broadcastLocked()
}

// End finishes the session: the in-flight round wait and the auto-ready
// timer are cancelled, status becomes Ended, and, when players remain
// seated, a rematch is scheduled.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusEnded {
		return
	}

	s.resolveRoundLocked()
	s.cancelAutoStartLocked()
	s.status = domain.StatusEnded
	s.broadcastLocked()
	s.log.Info("session ended")

	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}

	if len(s.members) > 0 {
		s.rematchTimer = time.AfterFunc(s.timing.RematchDelay, s.rematch)
	}
}

// rematch recycles an ended session in place: fresh rounds from the same
// playlist and configuration, per-player state reset, status back to
// Pending. On generation failure the session stays Ended, unchanged.
func (s *Session) rematch() {
	rounds, err := s.gen.Generate(context.Background(), s.playlist, s.Type, s.opts)
	if err != nil {
		s.log.Error("rematch round generation failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rematchTimer = nil
	if s.status != domain.StatusEnded || len(s.members) == 0 {
		return
	}

	for _, p := range s.members {
		p.Membership = &Membership{
			SessionID: s.ID,
			Scores:    pendingScores(len(rounds)),
		}
	}
	s.rounds = rounds
	s.current = nil
	s.roundDone = nil
	s.roundOver = false
	s.stop = make(chan struct{})
	s.stopped = false
	s.status = domain.StatusPending

	s.broadcastLocked()
	s.log.Info("rematch ready", "rounds", len(rounds))
}

// Close tears the session down on behalf of the registry: every timer is
// cancelled, the run loop is stopped, memberships are cleared, and the
// ids of evicted players are returned. No broadcast is sent; the session
// no longer exists for its players.
func (s *Session) Close() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAutoStartLocked()
	if s.rematchTimer != nil {
		s.rematchTimer.Stop()
		s.rematchTimer = nil
	}
	s.resolveRoundLocked()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.status = domain.StatusEnded

	evicted := make([]string, 0, len(s.members))
	for id, p := range s.members {
		p.Membership = nil
		evicted = append(evicted, id)
	}
	s.members = make(map[string]*Participant)
	return evicted
}

// Status returns the session's lifecycle stage.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// NumPlayers returns the seated participant count.
func (s *Session) NumPlayers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// NumRounds returns the length of the generated round list.
func (s *Session) NumRounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}

// Snapshot returns the serializable public projection of this session.
func (s *Session) Snapshot() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *domain.SessionState {
	players := make(map[string]domain.PlayerState, len(s.members))
	for id, p := range s.members {
		players[id] = domain.PlayerState{
			ID:      p.ID,
			Name:    p.Name,
			IsReady: p.Membership.Ready,
			Scores:  append([]*int(nil), p.Membership.Scores...),
		}
	}

	var current *domain.CurrentRound
	if s.status == domain.StatusActive && s.current != nil {
		c := *s.current
		current = &c
	}

	return &domain.SessionState{
		ID:         s.ID,
		Type:       s.Type,
		Visibility: s.Visibility,
		Status:     s.status,
		Playlist: domain.PlaylistSummary{
			ID:          s.playlist.ID,
			Name:        s.playlist.Name,
			URI:         s.playlist.URI,
			Description: s.playlist.Description,
			NumTracks:   s.playlist.TotalTracks,
		},
		Players:      players,
		CurrentRound: current,
		Options:      s.opts,
		ChatMessages: append([]domain.ChatMessage(nil), s.chat...),
	}
}

// broadcastLocked pushes the current snapshot to every seated player
// with a live transport. It runs under the session lock so players never
// observe snapshots out of mutation order.
func (s *Session) broadcastLocked() {
	state := s.snapshotLocked()
	for id, p := range s.members {
		t := p.Transport()
		if t == nil || !t.IsOpen() {
			continue
		}
		if err := t.Send(state); err != nil {
			s.log.Warn("snapshot delivery failed", "player", id, "error", err)
		}
	}
}

func (s *Session) systemChatLocked(content string) {
	s.appendChatLocked(domain.ChatMessage{Sender: domain.ReservedChatName, Content: content})
}

func (s *Session) appendChatLocked(msg domain.ChatMessage) {
	s.chat = append(s.chat, msg)
	if len(s.chat) > domain.MaxChatLog {
		s.chat = s.chat[len(s.chat)-domain.MaxChatLog:]
	}
}
