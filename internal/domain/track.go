package domain

// Track is a single entry from the music catalog.
type Track struct {
	ID      string
	Name    string
	Artists []string
	// IsLocal marks locally-stored playlist entries that cannot be
	// resolved through the catalog; they are never playable.
	IsLocal bool
}

// ArtistLine renders the track's attribution as a single display string.
func (t Track) ArtistLine() string {
	line := ""
	for i, a := range t.Artists {
		if i > 0 {
			line += ", "
		}
		line += a
	}
	return line
}

// Playlist is a music playlist fetched from the catalog.
type Playlist struct {
	ID          string
	Name        string
	URI         string
	Description string
	Tracks      []Track
	// TotalTracks is the catalog's total, which may exceed len(Tracks)
	// for very large playlists.
	TotalTracks int
}
