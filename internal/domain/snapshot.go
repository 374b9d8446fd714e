package domain

// SessionState is the serializable public projection of a session. It is
// what the broadcast sink pushes to every participant and what discovery
// queries return.
type SessionState struct {
	ID           string                 `json:"id"`
	Type         SessionType            `json:"type"`
	Visibility   Visibility             `json:"visibility"`
	Status       Status                 `json:"status"`
	Playlist     PlaylistSummary        `json:"playlist"`
	Players      map[string]PlayerState `json:"players"`
	CurrentRound *CurrentRound          `json:"currentRound,omitempty"`
	Options      Options                `json:"options"`
	ChatMessages []ChatMessage          `json:"chatMessages"`
}

// PlaylistSummary is the lobby-facing view of the session's playlist.
type PlaylistSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description"`
	NumTracks   int    `json:"numTracks"`
}

// PlayerState is the public per-participant state. A nil score slot means
// the round is still pending for that player.
type PlayerState struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsReady bool   `json:"isReady"`
	Scores  []*int `json:"scores"`
}

// CurrentRound is the client view of the round being played. TrackID is
// empty while the round is running and reveals the answer once finished.
type CurrentRound struct {
	Index    int      `json:"index"`
	AudioURL string   `json:"audioURL"`
	Duration int64    `json:"duration"`
	Choices  []Choice `json:"choices,omitempty"`
	TrackID  string   `json:"trackId,omitempty"`
}
