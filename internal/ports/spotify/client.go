// Package spotify implements the music-catalog port against the Spotify
// Web API using the client-credentials flow.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"trackdown/internal/domain"
)

const (
	defaultAPIBase     = "https://api.spotify.com/v1"
	defaultAccountBase = "https://accounts.spotify.com"
)

// Client is a Catalog implementation over the Spotify Web API.
type Client struct {
	httpClient  *http.Client
	apiBase     string
	accountBase string
	id          string
	secret      string
	log         *slog.Logger

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
	backoffUntil time.Time
}

// Option customizes a Client, mainly for tests.
type Option func(*Client)

// WithBaseURLs points the client at alternative API and account hosts.
func WithBaseURLs(apiBase, accountBase string) Option {
	return func(c *Client) {
		c.apiBase = apiBase
		c.accountBase = accountBase
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a catalog client with the given app credentials.
func NewClient(clientID, clientSecret string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		apiBase:     defaultAPIBase,
		accountBase: defaultAccountBase,
		id:          clientID,
		secret:      clientSecret,
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func upstreamErr(format string, args ...any) error {
	return &domain.Error{
		Kind:    domain.KindUpstreamUnavailable,
		Message: fmt.Sprintf(format, args...),
	}
}

// token returns a valid access token, refreshing it through the
// client-credentials flow when missing or about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpires) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.accountBase+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", upstreamErr("build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.id, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", upstreamErr("request token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamErr("token request returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", upstreamErr("decode token response: %v", err)
	}
	if body.AccessToken == "" {
		return "", upstreamErr("token response missing access_token")
	}

	c.accessToken = body.AccessToken
	c.tokenExpires = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	c.log.Debug("catalog access token refreshed", "expires_in", body.ExpiresIn)
	return c.accessToken, nil
}

// get performs an authenticated API GET, honoring any retry-after
// backoff the API previously requested.
func (c *Client) get(ctx context.Context, path string, out any) error {
	c.mu.Lock()
	wait := time.Until(c.backoffUntil)
	c.mu.Unlock()
	if wait > 0 {
		return upstreamErr("catalog rate limited for another %s", wait.Round(time.Second))
	}

	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return upstreamErr("build request %s: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstreamErr("request %s: %v", path, err)
	}
	defer resp.Body.Close()

	if retry := resp.Header.Get("Retry-After"); retry != "" {
		if secs, err := strconv.Atoi(retry); err == nil && secs > 0 {
			c.mu.Lock()
			c.backoffUntil = time.Now().Add(time.Duration(secs) * time.Second)
			c.mu.Unlock()
		}
	}
	if resp.StatusCode != http.StatusOK {
		return upstreamErr("request %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return upstreamErr("decode response %s: %v", path, err)
	}
	return nil
}

type trackPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsLocal    bool   `json:"is_local"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (tp trackPayload) toDomain() domain.Track {
	artists := make([]string, len(tp.Artists))
	for i, a := range tp.Artists {
		artists[i] = a.Name
	}
	return domain.Track{ID: tp.ID, Name: tp.Name, Artists: artists, IsLocal: tp.IsLocal}
}

// LookupTrack fetches metadata for a single track.
func (c *Client) LookupTrack(ctx context.Context, id string) (domain.Track, error) {
	var tp trackPayload
	if err := c.get(ctx, "/tracks/"+url.PathEscape(id), &tp); err != nil {
		return domain.Track{}, err
	}
	return tp.toDomain(), nil
}

// ResolveTrackPreview returns the preview-audio URL for the track, or ""
// when the catalog has none. Absence is not an error.
func (c *Client) ResolveTrackPreview(ctx context.Context, trackID string) (string, error) {
	var tp trackPayload
	if err := c.get(ctx, "/tracks/"+url.PathEscape(trackID), &tp); err != nil {
		return "", err
	}
	return tp.PreviewURL, nil
}

// FindPlaylist fetches a playlist with its track listing.
func (c *Client) FindPlaylist(ctx context.Context, id string) (domain.Playlist, error) {
	var pp struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		URI         string `json:"uri"`
		Description string `json:"description"`
		Tracks      struct {
			Total int `json:"total"`
			Items []struct {
				Track trackPayload `json:"track"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := c.get(ctx, "/playlists/"+url.PathEscape(id), &pp); err != nil {
		return domain.Playlist{}, err
	}

	tracks := make([]domain.Track, 0, len(pp.Tracks.Items))
	for _, item := range pp.Tracks.Items {
		tracks = append(tracks, item.Track.toDomain())
	}
	return domain.Playlist{
		ID:          pp.ID,
		Name:        pp.Name,
		URI:         pp.URI,
		Description: pp.Description,
		Tracks:      tracks,
		TotalTracks: pp.Tracks.Total,
	}, nil
}
