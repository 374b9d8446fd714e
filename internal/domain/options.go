package domain

// Options holds the player-tunable parameters for a session.
type Options struct {
	// NumRounds is the number of rounds to generate.
	NumRounds int `json:"numRounds"`
	// RoundDuration is the per-round time budget in seconds. It applies
	// identically to every round of the session.
	RoundDuration int `json:"roundDuration"`
	// NumChoices is the size of the multiple-choice set, only meaningful
	// for Choices sessions.
	NumChoices int `json:"numChoices"`
}

// OptionBound declares the allowed range and fallback for one option.
type OptionBound struct {
	Min     int
	Max     int
	Default int
}

// Bounds for each option. Out-of-range or unset values are replaced with
// the default, never rejected.
var (
	NumRoundsBound     = OptionBound{Min: 1, Max: 30, Default: 10}
	RoundDurationBound = OptionBound{Min: 5, Max: 60, Default: 30}
	NumChoicesBound    = OptionBound{Min: 2, Max: 8, Default: 4}
)

func (b OptionBound) clamp(v int) int {
	if v < b.Min || v > b.Max {
		return b.Default
	}
	return v
}

// Clamp returns a copy of o with every field forced into its declared
// bounds, substituting the default where out of range or unset.
func (o Options) Clamp() Options {
	return Options{
		NumRounds:     NumRoundsBound.clamp(o.NumRounds),
		RoundDuration: RoundDurationBound.clamp(o.RoundDuration),
		NumChoices:    NumChoicesBound.clamp(o.NumChoices),
	}
}

// RoundDurationMS is the round time budget in milliseconds.
func (o Options) RoundDurationMS() int64 {
	return int64(o.RoundDuration) * 1000
}
