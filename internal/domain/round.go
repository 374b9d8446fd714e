package domain

// Round is one timed guess-the-track unit within a session. Rounds are
// built in bulk during session generation and are immutable once the
// session goes Active, except for StartTime which is stamped exactly once
// when the round begins.
type Round struct {
	// TrackID is the catalog id of the correct answer.
	TrackID string
	// PreviewURL locates the playable preview audio for this round.
	PreviewURL string
	// MaxDuration is the round's time budget in milliseconds.
	MaxDuration int64
	// StartTime is milliseconds since epoch, 0 until the round starts.
	StartTime int64
	// Choices is the ordered multiple-choice set, nil outside Choices
	// sessions.
	Choices []Choice
}

// Choice is one selectable answer in a multiple-choice round.
type Choice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
}

// GuessResult reports the outcome of a submitted guess.
type GuessResult struct {
	Correct        bool   `json:"isCorrect"`
	Score          int    `json:"score"`
	CorrectTrackID string `json:"correctTrackId"`
}
