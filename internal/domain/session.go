package domain

// Status is the lifecycle stage of a session. Transitions are monotonic:
// Pending -> Active -> Ended. A rematch resets an Ended session back to
// Pending as a side effect, never as a reverse transition mid-game.
type Status string

const (
	// StatusPending is the pre-game state where players can join.
	StatusPending Status = "Pending"
	// StatusActive is the in-game state where rounds are being played.
	StatusActive Status = "Active"
	// StatusEnded is the state after the final round concludes.
	StatusEnded Status = "Ended"
)

// SessionType selects the guessing mode for a session.
type SessionType string

const (
	// TypeNormal is the free-text guessing mode.
	TypeNormal SessionType = "Normal"
	// TypeChoices is the multiple-choice guessing mode.
	TypeChoices SessionType = "Choices"
	// TypeTheater is the co-located mode: identical to Normal on the
	// server, clients use the tag to play audio from a single device.
	TypeTheater SessionType = "Theater"
)

// Visibility controls whether a session appears in discovery listings.
type Visibility string

const (
	VisibilityPublic  Visibility = "Public"
	VisibilityPrivate Visibility = "Private"
)

// ChatMessage is one entry in a session's chat log.
type ChatMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

const (
	// ReservedChatName tags system-generated join/leave notices. Players
	// cannot register under this name.
	ReservedChatName = "System"

	// MaxChatLength bounds a single chat message.
	MaxChatLength = 200

	// MaxChatLog bounds the chat log; the oldest entries are dropped.
	MaxChatLog = 200

	// MaxNameLength bounds a player display name.
	MaxNameLength = 20
)
