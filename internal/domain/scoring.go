package domain

import "math"

// GuessGraceMS extends the scoring window past the round deadline so a
// guess racing the timeout is not unfairly zeroed. Matches three client
// countdown intervals of 400ms.
const GuessGraceMS = 1200

// GuessScore computes the points for a guess submitted elapsedMS after
// the round started. An incorrect guess scores 0. A correct guess earns a
// time-decayed value normalized to roughly 0-1000: full marks near the
// start, approaching zero at the duration limit. The grace window can
// push an instant answer slightly above 1000.
func GuessScore(maxDurationMS, elapsedMS int64, correct bool) int {
	if !correct {
		return 0
	}
	remaining := maxDurationMS - elapsedMS + GuessGraceMS
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Round(float64(remaining) / float64(maxDurationMS) * 1000))
}
