// Package nowplaying resolves the account's current track, falling back to the most recently played one.
package nowplaying

import (
	"context"
	"strings"

	"spotify-relay-go/logcolors"
	"spotify-relay-go/services/spotify"

	log "github.com/sirupsen/logrus"
)

// Source tells which upstream call produced a snapshot.
type Source string

const (
	SourceCurrent Source = "current"
	SourceRecent  Source = "recent"
	SourceNone    Source = "none"
)

// TrackSnapshot is the normalized response served at /api/now-playing.
type TrackSnapshot struct {
	IsPlaying     bool   `json:"isPlaying"`
	Title         string `json:"title,omitempty"`
	Artist        string `json:"artist,omitempty"`
	AlbumImageURL string `json:"albumImageUrl,omitempty"`
	SongURL       string `json:"songUrl,omitempty"`
	TrackID       string `json:"trackId,omitempty"`
	PreviewURL    string `json:"previewUrl,omitempty"`

	Source Source `json:"-"`
}

// TokenSource yields a fresh access token per call.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// PlayerAPI is the subset of the Web API the resolver reads.
type PlayerAPI interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*spotify.CurrentlyPlaying, error)
	RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]spotify.PlayHistory, error)
}

// Options select between the two response-shape variants.
type Options struct {
	RecentFallback    bool // query recently-played when nothing is playing
	IncludePreviewURL bool
	RecentLimit       int
}

type Resolver struct {
	tokens TokenSource
	api    PlayerAPI
	opts   Options
}

func NewResolver(tokens TokenSource, api PlayerAPI, opts Options) *Resolver {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	return &Resolver{tokens: tokens, api: api, opts: opts}
}

// Resolve returns the active track, else the most recent one, else {isPlaying:false}.
// Upstream status failures on either call are logged and skipped; token, transport
// and decode failures are returned.
func (r *Resolver) Resolve(ctx context.Context) (TrackSnapshot, error) {
	accessToken, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return TrackSnapshot{}, err
	}

	current, err := r.api.CurrentlyPlaying(ctx, accessToken)
	if err != nil {
		if _, ok := spotify.IsUpstreamError(err); !ok {
			return TrackSnapshot{}, err
		}
		log.Errorf("%s currently-playing request failed: %v", logcolors.LogNowPlaying, err)
	} else if current != nil && current.Item != nil && current.IsPlaying {
		log.Infof("%s Now playing: %s", logcolors.LogNowPlaying, current.Item.Name)
		snapshot := r.snapshot(current.Item, true)
		snapshot.Source = SourceCurrent
		return snapshot, nil
	}

	if !r.opts.RecentFallback {
		return TrackSnapshot{IsPlaying: false, Source: SourceNone}, nil
	}

	log.Debugf("%s Nothing playing, requesting recently played tracks", logcolors.LogRecent)

	recent, err := r.api.RecentlyPlayed(ctx, accessToken, r.opts.RecentLimit)
	if err != nil {
		if _, ok := spotify.IsUpstreamError(err); !ok {
			return TrackSnapshot{}, err
		}
		log.Errorf("%s recently-played request failed: %v", logcolors.LogRecent, err)
	} else if len(recent) > 0 {
		last := recent[0].Track
		log.Infof("%s Last played: %s", logcolors.LogRecent, last.Name)
		snapshot := r.snapshot(&last, false)
		snapshot.Source = SourceRecent
		return snapshot, nil
	}

	log.Infof("%s No current or recent track found", logcolors.LogNowPlaying)
	return TrackSnapshot{IsPlaying: false, Source: SourceNone}, nil
}

func (r *Resolver) snapshot(track *spotify.Track, playing bool) TrackSnapshot {
	s := TrackSnapshot{
		IsPlaying: playing,
		Title:     track.Name,
		Artist:    joinArtists(track.Artists),
		SongURL:   track.ExternalURLs.Spotify,
		TrackID:   track.ID,
	}
	if len(track.Album.Images) > 0 {
		s.AlbumImageURL = track.Album.Images[0].URL
	}
	if r.opts.IncludePreviewURL && track.PreviewURL != nil {
		s.PreviewURL = *track.PreviewURL
	}
	return s
}

func joinArtists(artists []spotify.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
