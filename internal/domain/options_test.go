package domain

import (
	"testing"
)

func TestOptionsClamp(t *testing.T) {
	tests := []struct {
		name     string
		in       Options
		expected Options
	}{
		{
			name:     "zero value gets defaults",
			in:       Options{},
			expected: Options{NumRounds: 10, RoundDuration: 30, NumChoices: 4},
		},
		{
			name:     "in-range values kept",
			in:       Options{NumRounds: 5, RoundDuration: 15, NumChoices: 6},
			expected: Options{NumRounds: 5, RoundDuration: 15, NumChoices: 6},
		},
		{
			name:     "boundary values kept",
			in:       Options{NumRounds: 30, RoundDuration: 5, NumChoices: 8},
			expected: Options{NumRounds: 30, RoundDuration: 5, NumChoices: 8},
		},
		{
			name:     "above max falls back to default",
			in:       Options{NumRounds: 31, RoundDuration: 61, NumChoices: 9},
			expected: Options{NumRounds: 10, RoundDuration: 30, NumChoices: 4},
		},
		{
			name:     "below min falls back to default",
			in:       Options{NumRounds: -1, RoundDuration: 4, NumChoices: 1},
			expected: Options{NumRounds: 10, RoundDuration: 30, NumChoices: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp()
			if got != tt.expected {
				t.Errorf("Clamp(%+v) = %+v, want %+v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestRoundDurationMS(t *testing.T) {
	opts := Options{RoundDuration: 30}
	if got := opts.RoundDurationMS(); got != 30000 {
		t.Errorf("RoundDurationMS() = %d, want 30000", got)
	}
}
