package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"trackdown/internal/domain"
)

// fakeCatalog serves previews and track metadata from in-memory maps.
type fakeCatalog struct {
	previews map[string]string
	tracks   map[string]domain.Track
	failures map[string]error
}

func (f *fakeCatalog) FindPlaylist(ctx context.Context, id string) (domain.Playlist, error) {
	return domain.Playlist{}, errors.New("not implemented")
}

func (f *fakeCatalog) LookupTrack(ctx context.Context, id string) (domain.Track, error) {
	t, ok := f.tracks[id]
	if !ok {
		return domain.Track{}, errors.New("track not found")
	}
	return t, nil
}

func (f *fakeCatalog) ResolveTrackPreview(ctx context.Context, trackID string) (string, error) {
	if err := f.failures[trackID]; err != nil {
		return "", err
	}
	return f.previews[trackID], nil
}

func testPlaylist(n int) (domain.Playlist, *fakeCatalog) {
	catalog := &fakeCatalog{
		previews: make(map[string]string),
		tracks:   make(map[string]domain.Track),
		failures: make(map[string]error),
	}
	playlist := domain.Playlist{ID: "pl1", Name: "Test Playlist"}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("track%d", i)
		track := domain.Track{ID: id, Name: fmt.Sprintf("Song %d", i), Artists: []string{"Artist"}}
		playlist.Tracks = append(playlist.Tracks, track)
		catalog.tracks[id] = track
		catalog.previews[id] = "https://audio.example/" + id
	}
	return playlist, catalog
}

func testGenerator(catalog *fakeCatalog) *Generator {
	return NewGenerator(catalog, rand.New(rand.NewSource(1)))
}

func TestGenerateExactCount(t *testing.T) {
	playlist, catalog := testPlaylist(20)
	gen := testGenerator(catalog)

	opts := domain.Options{NumRounds: 10, RoundDuration: 30, NumChoices: 4}
	rounds, err := gen.Generate(context.Background(), playlist, domain.TypeNormal, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(rounds) != 10 {
		t.Fatalf("got %d rounds, want 10", len(rounds))
	}

	seen := map[string]bool{}
	for _, r := range rounds {
		if r.PreviewURL == "" {
			t.Errorf("round for %s has no preview", r.TrackID)
		}
		if r.MaxDuration != 30000 {
			t.Errorf("round duration = %d, want 30000", r.MaxDuration)
		}
		if r.StartTime != 0 {
			t.Errorf("round for %s already has a start time", r.TrackID)
		}
		if seen[r.TrackID] {
			t.Errorf("track %s appears twice despite a sufficient pool", r.TrackID)
		}
		seen[r.TrackID] = true
	}
}

func TestGeneratePadsSmallPool(t *testing.T) {
	playlist, catalog := testPlaylist(3)
	gen := testGenerator(catalog)

	opts := domain.Options{NumRounds: 10, RoundDuration: 30, NumChoices: 4}
	rounds, err := gen.Generate(context.Background(), playlist, domain.TypeNormal, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(rounds) != 10 {
		t.Fatalf("got %d rounds, want 10", len(rounds))
	}

	distinct := map[string]bool{}
	for _, r := range rounds {
		distinct[r.TrackID] = true
	}
	if len(distinct) != 3 {
		t.Errorf("padded set drew %d distinct tracks, want 3", len(distinct))
	}
}

func TestGenerateSkipsUnplayable(t *testing.T) {
	playlist, catalog := testPlaylist(6)
	catalog.previews["track0"] = ""
	catalog.failures["track1"] = errors.New("upstream down")
	playlist.Tracks[2].IsLocal = true
	gen := testGenerator(catalog)

	opts := domain.Options{NumRounds: 3, RoundDuration: 30, NumChoices: 4}
	rounds, err := gen.Generate(context.Background(), playlist, domain.TypeNormal, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for _, r := range rounds {
		switch r.TrackID {
		case "track0", "track1", "track2":
			t.Errorf("unplayable track %s was used", r.TrackID)
		}
	}
}

func TestGenerateNoPlayableContent(t *testing.T) {
	playlist, catalog := testPlaylist(4)
	for id := range catalog.previews {
		catalog.previews[id] = ""
	}
	gen := testGenerator(catalog)

	opts := domain.Options{NumRounds: 5, RoundDuration: 30, NumChoices: 4}
	_, err := gen.Generate(context.Background(), playlist, domain.TypeNormal, opts)
	if !errors.Is(err, ErrNoPlayableContent) {
		t.Fatalf("Generate() error = %v, want ErrNoPlayableContent", err)
	}
}

func TestGenerateChoices(t *testing.T) {
	playlist, catalog := testPlaylist(12)
	gen := testGenerator(catalog)

	opts := domain.Options{NumRounds: 5, RoundDuration: 30, NumChoices: 4}
	rounds, err := gen.Generate(context.Background(), playlist, domain.TypeChoices, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, r := range rounds {
		if len(r.Choices) != 4 {
			t.Fatalf("round %s has %d choices, want 4", r.TrackID, len(r.Choices))
		}
		seen := map[string]bool{}
		foundCorrect := false
		for _, c := range r.Choices {
			if seen[c.ID] {
				t.Errorf("round %s repeats choice %s", r.TrackID, c.ID)
			}
			seen[c.ID] = true
			if c.ID == r.TrackID {
				foundCorrect = true
			}
		}
		if !foundCorrect {
			t.Errorf("round %s choices do not include the answer", r.TrackID)
		}
	}
}

func TestGenerateChoicesBackfillsMetadata(t *testing.T) {
	playlist, catalog := testPlaylist(5)
	playlist.Tracks[0].Name = ""
	gen := testGenerator(catalog)

	opts := domain.Options{NumRounds: 5, RoundDuration: 30, NumChoices: 3}
	rounds, err := gen.Generate(context.Background(), playlist, domain.TypeChoices, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	for _, r := range rounds {
		for _, c := range r.Choices {
			if c.ID == r.TrackID && c.Name == "" {
				t.Errorf("round %s answer choice has empty name", r.TrackID)
			}
		}
	}
}
