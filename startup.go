package main

import (
	"context"
	"time"

	"spotify-relay-go/config"
	"spotify-relay-go/credentials"
	"spotify-relay-go/logcolors"
	"spotify-relay-go/services/nowplaying"
	"spotify-relay-go/services/playlists"
	"spotify-relay-go/services/spotify"
	"spotify-relay-go/stats"

	log "github.com/sirupsen/logrus"
)

// openCredentialStore picks the bbolt-backed store when TOKEN_STORE_PATH is set,
// otherwise the in-memory one. The returned func releases the store.
func openCredentialStore(cfg config.Config) (credentials.Store, func(), error) {
	seed := cfg.Spotify.RefreshToken

	if path := cfg.Configuration.TokenStorePath; path != "" {
		store, err := credentials.NewBoltStore(path, seed)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("%s Persisting refresh token at %s", logcolors.LogTokenStore, path)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Errorf("%s Failed to close token store: %v", logcolors.LogTokenStore, err)
			}
		}, nil
	}

	log.Infof("%s Keeping refresh token in memory only", logcolors.LogTokenStore)
	return credentials.NewMemoryStore(seed), func() {}, nil
}

// newServer wires the token exchanger, Web API client, resolver and playlist cache.
func newServer(cfg config.Config, store credentials.Store) *server {
	timeout := time.Duration(cfg.Spotify.UpstreamTimeoutSeconds) * time.Second

	exchanger := spotify.NewTokenExchanger(spotify.ExchangerConfig{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
		Scopes:       cfg.SpotifyScopes(),
		AuthURL:      cfg.Spotify.AuthURL,
		TokenURL:     cfg.Spotify.TokenURL,
		Timeout:      timeout,
	}, store)

	client := spotify.NewClient(cfg.Spotify.APIBaseURL, timeout)

	resolver := nowplaying.NewResolver(exchanger, client, nowplaying.Options{
		RecentFallback:    cfg.FeatureFlags.RecentFallback,
		IncludePreviewURL: cfg.FeatureFlags.PreviewURL,
		RecentLimit:       cfg.Configuration.RecentlyPlayedLimit,
	})

	cache := playlists.NewCache(exchanger, client, playlists.Options{
		IDs:          cfg.PlaylistIDs(),
		TTL:          time.Duration(cfg.Configuration.PlaylistCacheTTLInSeconds) * time.Second,
		SingleFlight: cfg.FeatureFlags.PlaylistSingleFlight,
	})

	return &server{
		store:          store,
		auth:           exchanger,
		resolver:       resolver,
		playlists:      cache,
		stats:          stats.Get(),
		adminKey:       cfg.Configuration.AdminAccessToken,
		allowedOrigins: cfg.AllowedOrigins(),
	}
}

// logStartupWarnings reports configuration that leaves the relay half working.
func logStartupWarnings(ctx context.Context, cfg config.Config, store credentials.Store) {
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		log.Warnf("%s SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET is not set", logcolors.LogWarning)
	}
	if cfg.Spotify.RedirectURI == "" {
		log.Warnf("%s SPOTIFY_REDIRECT_URI is not set, /login will not work", logcolors.LogWarning)
	}
	if !credentials.HasRefreshToken(ctx, store) {
		log.Warnf("%s No refresh token configured. Visit /login once to authorize", logcolors.LogWarning)
	}
	if len(cfg.AllowedOrigins()) == 0 {
		log.Warnf("%s FRONTEND_URI is empty, every cross-origin request will be rejected", logcolors.LogCORS)
	}
	if cfg.Configuration.AdminAccessToken == "" {
		log.Warnf("%s ADMIN_ACCESS_TOKEN is empty, /stats and /cache/clear are open", logcolors.LogAPIKey)
	}
	if len(cfg.PlaylistIDs()) == 0 {
		log.Warnf("%s CURATED_PLAYLIST_IDS is empty, /api/playlists will always fail", logcolors.LogPlaylists)
	}
}
