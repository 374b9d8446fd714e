package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trackdown/internal/domain"
	"trackdown/internal/ports"
)

// Generator builds the playable round set for a session from a playlist.
type Generator struct {
	catalog ports.Catalog

	// rng is guarded by mu; sessions regenerate rounds concurrently.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator constructs a Generator with the provided rng or a
// time-seeded default.
func NewGenerator(catalog ports.Catalog, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{catalog: catalog, rng: rng}
}

// Generate produces exactly opts.NumRounds rounds for the playlist, or an
// error when the playlist yields no playable track at all.
//
// Local tracks are filtered out, the remainder is shuffled, and previews
// are resolved in shuffled order until enough distinct tracks are found
// or the list is exhausted. Tracks whose preview lookup fails or comes
// back empty are skipped, not retried. When fewer rounds than requested
// exist, the set is padded by re-sampling with replacement and reshuffled
// so duplicates are not clustered.
func (g *Generator) Generate(ctx context.Context, playlist domain.Playlist, typ domain.SessionType, opts domain.Options) ([]domain.Round, error) {
	viable := make([]domain.Track, 0, len(playlist.Tracks))
	for _, t := range playlist.Tracks {
		if !t.IsLocal {
			viable = append(viable, t)
		}
	}
	g.shuffleTracks(viable)

	duration := opts.RoundDurationMS()
	rounds := make([]domain.Round, 0, opts.NumRounds)
	for _, track := range viable {
		if len(rounds) >= opts.NumRounds {
			break
		}
		preview, err := g.catalog.ResolveTrackPreview(ctx, track.ID)
		if err != nil {
			// Best effort: an unavailable upstream for one track only
			// shrinks the pool.
			continue
		}
		if preview == "" {
			continue
		}
		round := domain.Round{
			TrackID:     track.ID,
			PreviewURL:  preview,
			MaxDuration: duration,
		}
		if typ == domain.TypeChoices {
			round.Choices = g.buildChoices(ctx, track, viable, opts.NumChoices)
		}
		rounds = append(rounds, round)
	}

	if len(rounds) == 0 {
		return nil, fmt.Errorf("generate rounds for playlist %s: %w", playlist.ID, ErrNoPlayableContent)
	}

	if len(rounds) < opts.NumRounds {
		g.mu.Lock()
		for len(rounds) < opts.NumRounds {
			rounds = append(rounds, rounds[g.rng.Intn(len(rounds))])
		}
		g.rng.Shuffle(len(rounds), func(i, j int) {
			rounds[i], rounds[j] = rounds[j], rounds[i]
		})
		g.mu.Unlock()
	}

	return rounds, nil
}

// buildChoices assembles the multiple-choice set for one round: the
// correct track plus numChoices-1 distractors sampled from the candidate
// pool, deduplicated by catalog id, shuffled.
func (g *Generator) buildChoices(ctx context.Context, correct domain.Track, pool []domain.Track, numChoices int) []domain.Choice {
	if correct.Name == "" {
		// Playlist entries occasionally arrive stripped of metadata;
		// reconcile through the catalog, tolerating failure.
		if full, err := g.catalog.LookupTrack(ctx, correct.ID); err == nil {
			correct = full
		}
	}

	distractors := make([]domain.Track, 0, len(pool))
	seen := map[string]bool{correct.ID: true}
	for _, t := range pool {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		distractors = append(distractors, t)
	}
	g.shuffleTracks(distractors)

	if len(distractors) > numChoices-1 {
		distractors = distractors[:numChoices-1]
	}

	chosen := append([]domain.Track{correct}, distractors...)
	g.shuffleTracks(chosen)

	choices := make([]domain.Choice, len(chosen))
	for i, t := range chosen {
		choices[i] = domain.Choice{ID: t.ID, Name: t.Name, Artist: t.ArtistLine()}
	}
	return choices
}

func (g *Generator) shuffleTracks(tracks []domain.Track) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
}
