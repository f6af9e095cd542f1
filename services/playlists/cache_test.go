package playlists

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spotify-relay-go/services/spotify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "access", nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   int

	started chan string   // optional, receives each id before it blocks
	release chan struct{} // optional, fetches block until closed
}

func (f *fakeFetcher) Playlist(ctx context.Context, accessToken, id string) (*spotify.Playlist, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failing[id]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- id
	}
	if f.release != nil {
		<-f.release
	}

	if fail {
		return nil, &spotify.UpstreamError{Endpoint: "/playlists/" + id, Status: http.StatusNotFound}
	}
	return &spotify.Playlist{
		ID:           id,
		Name:         "Playlist " + id,
		Description:  "about " + id,
		ExternalURLs: spotify.ExternalURLs{Spotify: "https://open.spotify.com/playlist/" + id},
		Images:       []spotify.Image{{URL: "https://img/" + id}},
		Tracks:       spotify.PlaylistTracks{Total: 10},
		Owner:        spotify.Owner{DisplayName: "curator"},
	}, nil
}

func (f *fakeFetcher) setFailing(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = map[string]bool{}
	for _, id := range ids {
		f.failing[id] = true
	}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(tokens TokenSource, fetcher Fetcher, ids []string, singleFlight bool) (*Cache, *testClock) {
	clock := &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(tokens, fetcher, Options{IDs: ids, TTL: time.Hour, SingleFlight: singleFlight})
	cache.now = clock.Now
	return cache, clock
}

func ids(playlists []PlaylistSummary) []string {
	out := make([]string, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, p.ID)
	}
	sort.Strings(out)
	return out
}

func TestGetMissThenHit(t *testing.T) {
	tokens := &fakeTokens{}
	fetcher := &fakeFetcher{}
	cache, _ := newTestCache(tokens, fetcher, []string{"a", "b", "c"}, true)

	playlists, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []string{"a", "b", "c"}, ids(playlists))

	playlists, cached, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, playlists, 3)

	assert.Equal(t, int32(1), tokens.calls.Load())
	assert.Equal(t, 3, fetcher.callCount())
}

func TestGetTTLBoundary(t *testing.T) {
	tokens := &fakeTokens{}
	fetcher := &fakeFetcher{}
	cache, clock := newTestCache(tokens, fetcher, []string{"a"}, true)

	_, _, err := cache.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(3599 * time.Second)
	_, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cached, "snapshot younger than the TTL must be served from cache")
	assert.Equal(t, 1, fetcher.callCount())

	clock.Advance(2 * time.Second)
	_, cached, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached, "snapshot older than the TTL must be refetched")
	assert.Equal(t, 2, fetcher.callCount())
}

func TestGetPartialFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.setFailing("b", "d")
	cache, _ := newTestCache(&fakeTokens{}, fetcher, []string{"a", "b", "c", "d", "e"}, true)

	playlists, _, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "e"}, ids(playlists))
	assert.Equal(t, 3, cache.Snapshot().Count)
}

func TestGetAllFailKeepsPreviousCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache, clock := newTestCache(&fakeTokens{}, fetcher, []string{"a", "b"}, true)

	_, _, err := cache.Get(context.Background())
	require.NoError(t, err)
	before := cache.Snapshot()

	clock.Advance(2 * time.Hour)
	fetcher.setFailing("a", "b")

	playlists, cached, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrNoPlaylists)
	assert.Nil(t, playlists)
	assert.False(t, cached)

	after := cache.Snapshot()
	assert.Equal(t, before.Count, after.Count)
	assert.Equal(t, before.FetchedAt, after.FetchedAt)
}

func TestGetAllFailOnEmptyCache(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.setFailing("a")
	cache, _ := newTestCache(&fakeTokens{}, fetcher, []string{"a"}, true)

	_, _, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrNoPlaylists)
	assert.False(t, cache.Snapshot().Populated)
}

func TestGetTokenError(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache, _ := newTestCache(&fakeTokens{err: spotify.ErrAuthNotConfigured}, fetcher, []string{"a"}, true)

	_, _, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, spotify.ErrAuthNotConfigured)
	assert.Equal(t, 0, fetcher.callCount())
}

func TestGetSingleFlight(t *testing.T) {
	tokens := &fakeTokens{}
	fetcher := &fakeFetcher{started: make(chan string, 16), release: make(chan struct{})}
	cache, _ := newTestCache(tokens, fetcher, []string{"a"}, true)

	var wg sync.WaitGroup
	results := make(chan int, 5)
	get := func() {
		defer wg.Done()
		playlists, _, err := cache.Get(context.Background())
		assert.NoError(t, err)
		results <- len(playlists)
	}

	wg.Add(1)
	go get()
	<-fetcher.started

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go get()
	}
	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()
	close(results)

	for n := range results {
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, int32(1), tokens.calls.Load())
	assert.Equal(t, 1, fetcher.callCount())
}

func TestGetWithoutSingleFlightRefetchesConcurrently(t *testing.T) {
	tokens := &fakeTokens{}
	fetcher := &fakeFetcher{started: make(chan string, 16), release: make(chan struct{})}
	cache, _ := newTestCache(tokens, fetcher, []string{"a"}, false)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.Get(context.Background())
			assert.NoError(t, err)
		}()
	}

	<-fetcher.started
	<-fetcher.started
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(2), tokens.calls.Load())
}

func TestGetSingleFlightSurvivesLeaderCancellation(t *testing.T) {
	fetcher := &fakeFetcher{started: make(chan string, 1), release: make(chan struct{})}
	cache, _ := newTestCache(&fakeTokens{}, &ctxCheckingFetcher{fetcher}, []string{"a"}, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := cache.Get(ctx)
		done <- err
	}()

	<-fetcher.started
	cancel()
	close(fetcher.release)

	require.NoError(t, <-done)
	assert.True(t, cache.Snapshot().Populated)
}

// ctxCheckingFetcher fails when the fetch context has been cancelled.
type ctxCheckingFetcher struct {
	*fakeFetcher
}

func (f *ctxCheckingFetcher) Playlist(ctx context.Context, accessToken, id string) (*spotify.Playlist, error) {
	p, err := f.fakeFetcher.Playlist(ctx, accessToken, id)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
	}
	return p, nil
}

func TestInvalidate(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache, _ := newTestCache(&fakeTokens{}, fetcher, []string{"a"}, true)

	_, _, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.True(t, cache.Snapshot().Populated)

	cache.Invalidate()
	assert.False(t, cache.Snapshot().Populated)

	_, cached, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestSnapshot(t *testing.T) {
	cache, clock := newTestCache(&fakeTokens{}, &fakeFetcher{}, []string{"a", "b"}, true)

	info := cache.Snapshot()
	assert.False(t, info.Populated)
	assert.Equal(t, 3600.0, info.TTLSeconds)

	_, _, err := cache.Get(context.Background())
	require.NoError(t, err)
	clock.Advance(90 * time.Second)

	info = cache.Snapshot()
	assert.True(t, info.Populated)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 90.0, info.AgeSeconds)
}

func TestSummarize(t *testing.T) {
	summary := summarize(&spotify.Playlist{
		ID:           "pl1",
		Name:         "Witch House",
		Description:  "dark",
		ExternalURLs: spotify.ExternalURLs{Spotify: "https://open.spotify.com/playlist/pl1"},
		Tracks:       spotify.PlaylistTracks{Total: 42},
		Owner:        spotify.Owner{DisplayName: "owner"},
	})

	assert.Equal(t, PlaylistSummary{
		ID:          "pl1",
		Name:        "Witch House",
		Description: "dark",
		URL:         "https://open.spotify.com/playlist/pl1",
		TrackCount:  42,
		OwnerName:   "owner",
	}, summary)
}

func TestNewCacheDefaultTTL(t *testing.T) {
	cache := NewCache(&fakeTokens{}, &fakeFetcher{}, Options{})
	assert.Equal(t, time.Hour, cache.opts.TTL)
}
