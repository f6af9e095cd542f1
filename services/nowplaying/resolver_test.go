package nowplaying

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"spotify-relay-go/services/spotify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token string
	err   error
	calls int
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

type fakePlayer struct {
	current    *spotify.CurrentlyPlaying
	currentErr error
	recent     []spotify.PlayHistory
	recentErr  error

	recentCalls int
	lastLimit   int
	lastToken   string
}

func (f *fakePlayer) CurrentlyPlaying(ctx context.Context, accessToken string) (*spotify.CurrentlyPlaying, error) {
	f.lastToken = accessToken
	return f.current, f.currentErr
}

func (f *fakePlayer) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]spotify.PlayHistory, error) {
	f.recentCalls++
	f.lastLimit = limit
	return f.recent, f.recentErr
}

func strPtr(s string) *string { return &s }

func sampleTrack(id, name string) spotify.Track {
	return spotify.Track{
		ID:      id,
		Name:    name,
		Artists: []spotify.Artist{{Name: "Crystal Castles"}, {Name: "Robert Smith"}},
		Album: spotify.Album{Images: []spotify.Image{
			{URL: "https://img/640"},
			{URL: "https://img/300"},
		}},
		ExternalURLs: spotify.ExternalURLs{Spotify: "https://open.spotify.com/track/" + id},
		PreviewURL:   strPtr("https://p.scdn.co/mp3-preview/" + id),
	}
}

func defaultOptions() Options {
	return Options{RecentFallback: true, RecentLimit: 5}
}

func TestResolveCurrentlyPlaying(t *testing.T) {
	track := sampleTrack("t1", "Not In Love")
	player := &fakePlayer{current: &spotify.CurrentlyPlaying{IsPlaying: true, Item: &track}}
	tokens := &fakeTokens{token: "access"}

	snapshot, err := NewResolver(tokens, player, defaultOptions()).Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TrackSnapshot{
		IsPlaying:     true,
		Title:         "Not In Love",
		Artist:        "Crystal Castles, Robert Smith",
		AlbumImageURL: "https://img/640",
		SongURL:       "https://open.spotify.com/track/t1",
		TrackID:       "t1",
		Source:        SourceCurrent,
	}, snapshot)
	assert.Equal(t, "access", player.lastToken)
	assert.Equal(t, 0, player.recentCalls, "recently-played must not be queried while a track is active")
}

func TestResolvePreviewURLFlag(t *testing.T) {
	track := sampleTrack("t1", "Not In Love")
	player := &fakePlayer{current: &spotify.CurrentlyPlaying{IsPlaying: true, Item: &track}}

	opts := defaultOptions()
	opts.IncludePreviewURL = true
	snapshot, err := NewResolver(&fakeTokens{token: "access"}, player, opts).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/t1", snapshot.PreviewURL)

	track.PreviewURL = nil
	snapshot, err = NewResolver(&fakeTokens{token: "access"}, player, opts).Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.PreviewURL)
}

func TestResolveFallsBackToRecent(t *testing.T) {
	paused := sampleTrack("t0", "Paused")
	tests := []struct {
		name       string
		current    *spotify.CurrentlyPlaying
		currentErr error
	}{
		{name: "no content", current: nil},
		{name: "paused", current: &spotify.CurrentlyPlaying{IsPlaying: false, Item: &paused}},
		{name: "no item", current: &spotify.CurrentlyPlaying{IsPlaying: true}},
		{name: "upstream error", currentErr: &spotify.UpstreamError{Endpoint: "/me/player/currently-playing", Status: http.StatusUnauthorized}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{
				current:    tt.current,
				currentErr: tt.currentErr,
				recent: []spotify.PlayHistory{
					{Track: sampleTrack("t2", "Vanished")},
					{Track: sampleTrack("t3", "Older")},
				},
			}

			snapshot, err := NewResolver(&fakeTokens{token: "access"}, player, defaultOptions()).Resolve(context.Background())
			require.NoError(t, err)

			assert.False(t, snapshot.IsPlaying)
			assert.Equal(t, "Vanished", snapshot.Title)
			assert.Equal(t, "Crystal Castles, Robert Smith", snapshot.Artist)
			assert.Equal(t, "t2", snapshot.TrackID)
			assert.Equal(t, SourceRecent, snapshot.Source)
			assert.Equal(t, 1, player.recentCalls)
			assert.Equal(t, 5, player.lastLimit)
		})
	}
}

func TestResolveNothingFound(t *testing.T) {
	tests := []struct {
		name      string
		recent    []spotify.PlayHistory
		recentErr error
	}{
		{name: "empty history"},
		{name: "recent upstream error", recentErr: &spotify.UpstreamError{Endpoint: "/me/player/recently-played", Status: http.StatusForbidden}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{recent: tt.recent, recentErr: tt.recentErr}

			snapshot, err := NewResolver(&fakeTokens{token: "access"}, player, defaultOptions()).Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, TrackSnapshot{IsPlaying: false, Source: SourceNone}, snapshot)
		})
	}
}

func TestResolveRecentFallbackDisabled(t *testing.T) {
	player := &fakePlayer{recent: []spotify.PlayHistory{{Track: sampleTrack("t2", "Vanished")}}}

	opts := defaultOptions()
	opts.RecentFallback = false
	snapshot, err := NewResolver(&fakeTokens{token: "access"}, player, opts).Resolve(context.Background())
	require.NoError(t, err)

	assert.False(t, snapshot.IsPlaying)
	assert.Empty(t, snapshot.Title)
	assert.Equal(t, 0, player.recentCalls)
}

func TestResolveTokenError(t *testing.T) {
	player := &fakePlayer{}
	tokens := &fakeTokens{err: spotify.ErrAuthNotConfigured}

	_, err := NewResolver(tokens, player, defaultOptions()).Resolve(context.Background())
	assert.ErrorIs(t, err, spotify.ErrAuthNotConfigured)
	assert.Empty(t, player.lastToken, "no Web API call without a token")
}

func TestResolveTransportErrorsAreFatal(t *testing.T) {
	transport := errors.New("request to /me/player/currently-playing failed: connection refused")

	_, err := NewResolver(&fakeTokens{token: "access"}, &fakePlayer{currentErr: transport}, defaultOptions()).Resolve(context.Background())
	assert.ErrorIs(t, err, transport)

	recentErr := errors.New("failed to decode /me/player/recently-played response")
	_, err = NewResolver(&fakeTokens{token: "access"}, &fakePlayer{recentErr: recentErr}, defaultOptions()).Resolve(context.Background())
	assert.ErrorIs(t, err, recentErr)
}

func TestNewResolverDefaultLimit(t *testing.T) {
	player := &fakePlayer{}
	_, err := NewResolver(&fakeTokens{token: "access"}, player, Options{RecentFallback: true}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, player.lastLimit)
}

func TestTrackSnapshotJSON(t *testing.T) {
	data, err := json.Marshal(TrackSnapshot{IsPlaying: false, Source: SourceNone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"isPlaying":false}`, string(data))

	data, err = json.Marshal(TrackSnapshot{
		IsPlaying:     true,
		Title:         "Song",
		Artist:        "A, B",
		AlbumImageURL: "https://img",
		SongURL:       "https://open.spotify.com/track/x",
		TrackID:       "x",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"isPlaying": true,
		"title": "Song",
		"artist": "A, B",
		"albumImageUrl": "https://img",
		"songUrl": "https://open.spotify.com/track/x",
		"trackId": "x"
	}`, string(data))
}
