package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"trackdown/internal/domain"
)

// fakeTransport records every snapshot pushed to a player.
type fakeTransport struct {
	mu     sync.Mutex
	states []*domain.SessionState
	open   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{open: true}
}

func (f *fakeTransport) Send(state *domain.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeTransport) last() *domain.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return nil
	}
	return f.states[len(f.states)-1]
}

func testTiming() Timing {
	return Timing{
		ReadyTimeout:       40 * time.Millisecond,
		PostRoundWait:      10 * time.Millisecond,
		RematchDelay:       time.Hour,
		MaxSessionLifetime: time.Hour,
		EmptySessionGrace:  time.Hour,
	}
}

func testRounds(n int, durationMS int64) []domain.Round {
	rounds := make([]domain.Round, n)
	for i := range rounds {
		id := fmt.Sprintf("track%d", i)
		rounds[i] = domain.Round{
			TrackID:     id,
			PreviewURL:  "https://audio.example/" + id,
			MaxDuration: durationMS,
		}
	}
	return rounds
}

func newTestSession(rounds []domain.Round, timing Timing) *Session {
	playlist, catalog := testPlaylist(10)
	opts := domain.Options{NumRounds: len(rounds), RoundDuration: 30, NumChoices: 4}
	return NewSession("ABC123", domain.TypeNormal, domain.VisibilityPublic, playlist, opts, rounds, testGenerator(catalog), timing, nil)
}

func seatPlayers(t *testing.T, s *Session, n int) []*Participant {
	t.Helper()
	players := make([]*Participant, n)
	for i := range players {
		p := &Participant{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
		p.SetTransport(newFakeTransport())
		if err := s.Join(p); err != nil {
			t.Fatalf("Join(%s) error: %v", p.ID, err)
		}
		players[i] = p
	}
	return players
}

func waitFor(t *testing.T, timeout time.Duration, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func (s *Session) autoStartArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoStart != nil
}

func (s *Session) currentIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.StatusActive || s.current == nil {
		return 0, false
	}
	return s.current.Index, true
}

func TestJoinOnlyWhilePending(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 2)

	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready(%s) error: %v", p.ID, err)
		}
	}
	if got := s.Status(); got != domain.StatusActive {
		t.Fatalf("status after all ready = %s, want %s", got, domain.StatusActive)
	}

	late := &Participant{ID: "late", Name: "Latecomer"}
	if err := s.Join(late); !errors.Is(err, ErrSessionNotJoinable) {
		t.Errorf("Join after start error = %v, want ErrSessionNotJoinable", err)
	}
	s.End()
}

func TestAllReadyStartsImmediately(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 3)

	for i, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready(%s) error: %v", p.ID, err)
		}
		want := domain.StatusPending
		if i == len(players)-1 {
			want = domain.StatusActive
		}
		if got := s.Status(); got != want {
			t.Fatalf("status after %d ready = %s, want %s", i+1, got, want)
		}
	}
	s.End()
}

func TestMajorityArmsAutoStart(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 3)

	if err := s.Ready(players[0].ID); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	if s.autoStartArmed() {
		t.Fatal("1/3 ready should not arm the auto-start timer")
	}

	if err := s.Ready(players[1].ID); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	if !s.autoStartArmed() {
		t.Fatal("2/3 ready should arm the auto-start timer")
	}

	waitFor(t, time.Second, "auto-start to fire", func() bool {
		return s.Status() == domain.StatusActive
	})
	s.End()
}

func TestDroppingBelowMajorityCancelsAutoStart(t *testing.T) {
	timing := testTiming()
	timing.ReadyTimeout = time.Hour
	s := newTestSession(testRounds(1, 60000), timing)
	players := seatPlayers(t, s, 3)

	if err := s.Ready(players[0].ID); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	if err := s.Ready(players[1].ID); err != nil {
		t.Fatalf("Ready error: %v", err)
	}
	if !s.autoStartArmed() {
		t.Fatal("2/3 ready should arm the auto-start timer")
	}

	if err := s.Unready(players[1].ID); err != nil {
		t.Fatalf("Unready error: %v", err)
	}
	if s.autoStartArmed() {
		t.Fatal("1/3 ready should cancel the auto-start timer")
	}
	if got := s.Status(); got != domain.StatusPending {
		t.Errorf("status = %s, want %s", got, domain.StatusPending)
	}
	s.End()
}

func TestGuessValidation(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 2)

	if _, err := s.Guess(players[0].ID, 0, "track0"); !errors.Is(err, ErrRoundNotActive) {
		t.Fatalf("guess while pending error = %v, want ErrRoundNotActive", err)
	}

	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}
	waitFor(t, time.Second, "first round to begin", func() bool {
		_, ok := s.currentIndex()
		return ok
	})

	if _, err := s.Guess("stranger", 0, "track0"); !errors.Is(err, ErrNotInSession) {
		t.Errorf("stranger guess error = %v, want ErrNotInSession", err)
	}
	if _, err := s.Guess(players[0].ID, 5, "track0"); !errors.Is(err, ErrRoundMismatch) {
		t.Errorf("wrong round guess error = %v, want ErrRoundMismatch", err)
	}

	result, err := s.Guess(players[0].ID, 0, "track0")
	if err != nil {
		t.Fatalf("Guess error: %v", err)
	}
	if !result.Correct || result.Score <= 0 {
		t.Errorf("correct guess result = %+v, want correct with positive score", result)
	}
	if result.CorrectTrackID != "track0" {
		t.Errorf("CorrectTrackID = %s, want track0", result.CorrectTrackID)
	}

	if _, err := s.Guess(players[0].ID, 0, "track0"); !errors.Is(err, ErrAlreadyReady) {
		t.Errorf("guess while ready error = %v, want ErrAlreadyReady", err)
	}

	if err := s.Unready(players[0].ID); err != nil {
		t.Fatalf("Unready error: %v", err)
	}
	if _, err := s.Guess(players[0].ID, 0, "track0"); !errors.Is(err, ErrAlreadyGuessed) {
		t.Errorf("second guess error = %v, want ErrAlreadyGuessed", err)
	}
	s.End()
}

func TestIncorrectGuessScoresZero(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 2)
	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}
	waitFor(t, time.Second, "first round to begin", func() bool {
		_, ok := s.currentIndex()
		return ok
	})

	result, err := s.Guess(players[0].ID, 0, "wrong-track")
	if err != nil {
		t.Fatalf("Guess error: %v", err)
	}
	if result.Correct || result.Score != 0 {
		t.Errorf("wrong guess result = %+v, want incorrect with zero score", result)
	}
	if result.CorrectTrackID != "track0" {
		t.Errorf("CorrectTrackID = %s, want track0", result.CorrectTrackID)
	}
	s.End()
}

func TestLaterGuessScoresLess(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 3)
	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}
	waitFor(t, time.Second, "first round to begin", func() bool {
		_, ok := s.currentIndex()
		return ok
	})

	early, err := s.Guess(players[0].ID, 0, "track0")
	if err != nil {
		t.Fatalf("Guess error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	late, err := s.Guess(players[1].ID, 0, "track0")
	if err != nil {
		t.Fatalf("Guess error: %v", err)
	}

	if early.Score <= late.Score {
		t.Errorf("early score %d not greater than late score %d", early.Score, late.Score)
	}
	s.End()
}

func TestAllReadyEndsRoundEarly(t *testing.T) {
	s := newTestSession(testRounds(2, 60000), testTiming())
	players := seatPlayers(t, s, 2)
	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}
	waitFor(t, time.Second, "round 0 to begin", func() bool {
		i, ok := s.currentIndex()
		return ok && i == 0
	})

	// Both guesses resolve the 60s round well before its deadline.
	for _, p := range players {
		if _, err := s.Guess(p.ID, 0, "track0"); err != nil {
			t.Fatalf("Guess(%s) error: %v", p.ID, err)
		}
	}
	waitFor(t, time.Second, "round 1 to begin", func() bool {
		i, ok := s.currentIndex()
		return ok && i == 1
	})
	s.End()
}

func TestFullGameRunsToEnd(t *testing.T) {
	s := newTestSession(testRounds(2, 30), testTiming())
	players := seatPlayers(t, s, 2)
	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}

	waitFor(t, 2*time.Second, "session to end", func() bool {
		return s.Status() == domain.StatusEnded
	})

	last := players[0].Transport().(*fakeTransport).last()
	if last == nil {
		t.Fatal("player received no snapshots")
	}
	if last.Status != domain.StatusEnded {
		t.Errorf("final snapshot status = %s, want %s", last.Status, domain.StatusEnded)
	}
	if last.CurrentRound != nil {
		t.Errorf("final snapshot still carries a current round")
	}
}

func TestRevealPublishesAnswer(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 2)
	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}
	waitFor(t, time.Second, "round to begin", func() bool {
		_, ok := s.currentIndex()
		return ok
	})

	// The running round's snapshot must not leak the answer.
	if state := players[0].Transport().(*fakeTransport).last(); state.CurrentRound == nil {
		t.Fatal("no current round in snapshot")
	} else if state.CurrentRound.TrackID != "" {
		t.Fatal("running round snapshot leaks the answer")
	}

	for _, p := range players {
		if _, err := s.Guess(p.ID, 0, "track0"); err != nil {
			t.Fatalf("Guess error: %v", err)
		}
	}

	ft := players[0].Transport().(*fakeTransport)
	waitFor(t, time.Second, "reveal snapshot", func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		for _, state := range ft.states {
			if state.CurrentRound != nil && state.CurrentRound.TrackID == "track0" {
				return true
			}
		}
		return false
	})
	s.End()
}

func TestRematchResetsSession(t *testing.T) {
	timing := testTiming()
	timing.RematchDelay = 20 * time.Millisecond
	s := newTestSession(testRounds(1, 30), timing)
	players := seatPlayers(t, s, 2)
	for _, p := range players {
		if err := s.Ready(p.ID); err != nil {
			t.Fatalf("Ready error: %v", err)
		}
	}

	waitFor(t, 2*time.Second, "session to end", func() bool {
		return s.Status() == domain.StatusEnded
	})
	waitFor(t, 2*time.Second, "rematch to reset the session", func() bool {
		return s.Status() == domain.StatusPending
	})

	state := s.Snapshot()
	for id, p := range state.Players {
		if p.IsReady {
			t.Errorf("player %s still ready after rematch", id)
		}
		for i, score := range p.Scores {
			if score != nil {
				t.Errorf("player %s score[%d] not reset", id, i)
			}
		}
	}
	if state.CurrentRound != nil {
		t.Error("rematched session still carries a current round")
	}
	s.End()
}

func TestEndWithoutPlayersSkipsRematch(t *testing.T) {
	timing := testTiming()
	timing.RematchDelay = 10 * time.Millisecond
	s := newTestSession(testRounds(1, 60000), timing)
	players := seatPlayers(t, s, 1)

	if _, err := s.Leave(players[0].ID); err != nil {
		t.Fatalf("Leave error: %v", err)
	}
	s.End()

	time.Sleep(50 * time.Millisecond)
	if got := s.Status(); got != domain.StatusEnded {
		t.Errorf("empty ended session status = %s, want %s", got, domain.StatusEnded)
	}
}

func TestLeaveClearsMembership(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 2)

	remaining, err := s.Leave(players[0].ID)
	if err != nil {
		t.Fatalf("Leave error: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
	if players[0].Membership != nil {
		t.Error("membership not cleared on leave")
	}
	if _, err := s.Leave(players[0].ID); !errors.Is(err, ErrNotInSession) {
		t.Errorf("double leave error = %v, want ErrNotInSession", err)
	}
	s.End()
}

func TestChat(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 1)

	if err := s.Chat(players[0].ID, ""); !errors.Is(err, ErrEmptyChat) {
		t.Errorf("empty chat error = %v, want ErrEmptyChat", err)
	}

	long := make([]byte, domain.MaxChatLength+50)
	for i := range long {
		long[i] = 'a'
	}
	if err := s.Chat(players[0].ID, string(long)); err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	state := s.Snapshot()
	if len(state.ChatMessages) == 0 {
		t.Fatal("no chat messages recorded")
	}
	if state.ChatMessages[0].Sender != domain.ReservedChatName {
		t.Errorf("first message sender = %s, want the system sender", state.ChatMessages[0].Sender)
	}
	last := state.ChatMessages[len(state.ChatMessages)-1]
	if last.Sender != players[0].Name {
		t.Errorf("last message sender = %s, want %s", last.Sender, players[0].Name)
	}
	if len(last.Content) != domain.MaxChatLength {
		t.Errorf("message length = %d, want clamped to %d", len(last.Content), domain.MaxChatLength)
	}
	s.End()
}

func TestCloseEvictsEveryone(t *testing.T) {
	s := newTestSession(testRounds(1, 60000), testTiming())
	players := seatPlayers(t, s, 3)

	evicted := s.Close()
	if len(evicted) != 3 {
		t.Fatalf("Close evicted %d players, want 3", len(evicted))
	}
	for _, p := range players {
		if p.Membership != nil {
			t.Errorf("player %s membership survived Close", p.ID)
		}
	}
	if got := s.Status(); got != domain.StatusEnded {
		t.Errorf("status after Close = %s, want %s", got, domain.StatusEnded)
	}
}
