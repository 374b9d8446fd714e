package ports

import "trackdown/internal/domain"

// Transport is the broadcast sink for one participant: a live delivery
// channel for session snapshots. The core never assumes a wire format
// beyond the snapshot being serializable.
type Transport interface {
	// Send pushes a snapshot to the participant. It must not block the
	// caller indefinitely.
	Send(state *domain.SessionState) error
	// IsOpen reports whether the channel can still deliver.
	IsOpen() bool
	// Close releases the underlying connection.
	Close() error
}
