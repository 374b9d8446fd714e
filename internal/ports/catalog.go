package ports

import (
	"context"

	"trackdown/internal/domain"
)

// Catalog is the external music-catalog collaborator. Lookups are
// best-effort: preview resolution in particular may legitimately return
// nothing for any given track.
type Catalog interface {
	// FindPlaylist fetches a playlist with its track listing.
	FindPlaylist(ctx context.Context, id string) (domain.Playlist, error)
	// LookupTrack fetches metadata for a single track.
	LookupTrack(ctx context.Context, id string) (domain.Track, error)
	// ResolveTrackPreview returns a short preview-audio URL for the
	// track, or "" when the catalog has none.
	ResolveTrackPreview(ctx context.Context, trackID string) (string, error)
}
