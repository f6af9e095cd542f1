// Package playlists serves the curated playlist summaries from a single-slot TTL cache.
package playlists

import (
	"context"
	"errors"
	"sync"
	"time"

	"spotify-relay-go/logcolors"
	"spotify-relay-go/services/spotify"

	log "github.com/sirupsen/logrus"
)

// ErrNoPlaylists is returned when every configured playlist failed to load.
var ErrNoPlaylists = errors.New("no playlists could be fetched")

// PlaylistSummary is one entry of the /api/playlists response.
type PlaylistSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	TrackCount  int    `json:"tracks"`
	OwnerName   string `json:"owner"`
}

type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Fetcher loads one playlist's metadata.
type Fetcher interface {
	Playlist(ctx context.Context, accessToken, id string) (*spotify.Playlist, error)
}

// Options configure a Cache.
type Options struct {
	IDs          []string
	TTL          time.Duration
	SingleFlight bool
}

// SnapshotInfo describes the cache slot for /health and /stats.
type SnapshotInfo struct {
	Populated  bool      `json:"populated"`
	Count      int       `json:"count"`
	FetchedAt  time.Time `json:"fetched_at"`
	AgeSeconds float64   `json:"age_seconds"`
	TTLSeconds float64   `json:"ttl_seconds"`
}

// inFlightRefresh is shared by every caller that misses while a refresh runs.
type inFlightRefresh struct {
	wg     sync.WaitGroup
	result []PlaylistSummary
	err    error
}

type Cache struct {
	tokens  TokenSource
	fetcher Fetcher
	opts    Options
	now     func() time.Time

	mu        sync.RWMutex
	playlists []PlaylistSummary
	fetchedAt time.Time

	flightMu sync.Mutex
	inFlight *inFlightRefresh
}

func NewCache(tokens TokenSource, fetcher Fetcher, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &Cache{
		tokens:  tokens,
		fetcher: fetcher,
		opts:    opts,
		now:     time.Now,
	}
}

// Get returns the cached summaries when younger than the TTL, otherwise refreshes
// synchronously. The bool reports whether the result came from the cache.
func (c *Cache) Get(ctx context.Context) ([]PlaylistSummary, bool, error) {
	if playlists, ok := c.fresh(); ok {
		log.Debugf("%s Serving %d cached playlists", logcolors.LogCache, len(playlists))
		return playlists, true, nil
	}

	if !c.opts.SingleFlight {
		playlists, err := c.refresh(ctx)
		return playlists, false, err
	}

	c.flightMu.Lock()
	if req := c.inFlight; req != nil {
		c.flightMu.Unlock()
		log.Infof("%s Waiting for in-flight playlist refresh", logcolors.LogCache)
		req.wg.Wait()
		return req.result, false, req.err
	}
	req := &inFlightRefresh{}
	req.wg.Add(1)
	c.inFlight = req
	c.flightMu.Unlock()

	// The refresh outlives the leader's request so waiters are not failed by its cancellation.
	req.result, req.err = c.refresh(context.WithoutCancel(ctx))

	c.flightMu.Lock()
	c.inFlight = nil
	c.flightMu.Unlock()
	req.wg.Done()

	return req.result, false, req.err
}

func (c *Cache) fresh() ([]PlaylistSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.playlists == nil || c.now().Sub(c.fetchedAt) >= c.opts.TTL {
		return nil, false
	}
	return c.playlists, true
}

// refresh fans out one fetch per configured ID and stores the result when non-empty.
func (c *Cache) refresh(ctx context.Context) ([]PlaylistSummary, error) {
	accessToken, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	log.Infof("%s Fetching %d playlists", logcolors.LogPlaylists, len(c.opts.IDs))

	results := make(chan PlaylistSummary, len(c.opts.IDs))
	var wg sync.WaitGroup
	for _, id := range c.opts.IDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			playlist, err := c.fetcher.Playlist(ctx, accessToken, id)
			if err != nil {
				log.Errorf("%s Failed to fetch playlist: %v", logcolors.Playlist(id), err)
				return
			}
			results <- summarize(playlist)
		}(id)
	}
	wg.Wait()
	close(results)

	playlists := make([]PlaylistSummary, 0, len(c.opts.IDs))
	for summary := range results {
		playlists = append(playlists, summary)
	}

	if len(playlists) == 0 {
		log.Errorf("%s All %d playlist fetches failed, keeping previous cache", logcolors.LogPlaylists, len(c.opts.IDs))
		return nil, ErrNoPlaylists
	}

	c.mu.Lock()
	c.playlists = playlists
	c.fetchedAt = c.now()
	c.mu.Unlock()

	log.Infof("%s Cached %d/%d playlists", logcolors.LogCache, len(playlists), len(c.opts.IDs))
	return playlists, nil
}

// Invalidate empties the slot so the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.playlists = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
	log.Infof("%s Playlist cache cleared", logcolors.LogCache)
}

func (c *Cache) Snapshot() SnapshotInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := SnapshotInfo{
		Populated:  c.playlists != nil,
		Count:      len(c.playlists),
		TTLSeconds: c.opts.TTL.Seconds(),
	}
	if info.Populated {
		info.FetchedAt = c.fetchedAt
		info.AgeSeconds = c.now().Sub(c.fetchedAt).Seconds()
	}
	return info
}

func summarize(p *spotify.Playlist) PlaylistSummary {
	s := PlaylistSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		URL:         p.ExternalURLs.Spotify,
		TrackCount:  p.Tracks.Total,
		OwnerName:   p.Owner.DisplayName,
	}
	if len(p.Images) > 0 {
		s.Image = p.Images[0].URL
	}
	return s
}
