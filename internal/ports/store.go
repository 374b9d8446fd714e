package ports

import "context"

// CounterStore persists the single datum that survives restarts: the
// monotonic count of sessions ever created.
type CounterStore interface {
	// TotalSessions returns the current counter value.
	TotalSessions(ctx context.Context) (int64, error)
	// IncrementTotalSessions atomically bumps the counter and returns
	// the new value.
	IncrementTotalSessions(ctx context.Context) (int64, error)
}
