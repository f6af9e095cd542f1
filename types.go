package main

import (
	"context"

	"spotify-relay-go/credentials"
	"spotify-relay-go/services/nowplaying"
	"spotify-relay-go/services/playlists"
	"spotify-relay-go/services/spotify"
	"spotify-relay-go/stats"
)

// authenticator drives the one-time authorization-code flow.
type authenticator interface {
	AuthURL() string
	ExchangeCode(ctx context.Context, code string) (spotify.TokenPair, error)
}

// server bundles the components behind the HTTP handlers.
type server struct {
	store     credentials.Store
	auth      authenticator
	resolver  *nowplaying.Resolver
	playlists *playlists.Cache
	stats     *stats.Stats

	adminKey       string
	allowedOrigins []string
}

// HealthResponse is the response format for /health
type HealthResponse struct {
	Status                 string                 `json:"status"`
	RefreshTokenConfigured bool                   `json:"refresh_token_configured"`
	PlaylistCache          playlists.SnapshotInfo `json:"playlist_cache"`
}
