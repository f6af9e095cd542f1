package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                   string `envconfig:"PORT" default:"3000"`
		FrontendURI            string `envconfig:"FRONTEND_URI" default:""`
		LogLevel               string `envconfig:"LOG_LEVEL" default:"info"`
		ShutdownTimeoutSeconds int    `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"10"`
		AdminAccessToken       string `envconfig:"ADMIN_ACCESS_TOKEN" default:""`
		TokenStorePath         string `envconfig:"TOKEN_STORE_PATH" default:""` // empty keeps the refresh token in memory only
		// Playlist cache
		CuratedPlaylistIDs        []string `envconfig:"CURATED_PLAYLIST_IDS" default:"0Ne5hkctsl5Iw7qelG880O,1rJx32q5gJBlErYiNY4MEW,2hiCOKHVrOR6C3DlZu8YSR,4CdR4U4H0mNVN71laSoK02,0BSI9m9B0hXR4MZyIM8El3"`
		PlaylistCacheTTLInSeconds int      `envconfig:"PLAYLIST_CACHE_TTL_IN_SECONDS" default:"3600"`
		RecentlyPlayedLimit       int      `envconfig:"RECENTLY_PLAYED_LIMIT" default:"5"`
	}

	Spotify struct {
		ClientID               string   `envconfig:"SPOTIFY_CLIENT_ID" default:""`
		ClientSecret           string   `envconfig:"SPOTIFY_CLIENT_SECRET" default:""`
		RedirectURI            string   `envconfig:"SPOTIFY_REDIRECT_URI" default:""`
		RefreshToken           string   `envconfig:"SPOTIFY_REFRESH_TOKEN" default:""` // seed value, replaced by /callback
		Scopes                 []string `envconfig:"SPOTIFY_SCOPES" default:"user-read-currently-playing,user-read-recently-played,playlist-read-private"`
		AuthURL                string   `envconfig:"SPOTIFY_AUTH_URL" default:"https://accounts.spotify.com/authorize"`
		TokenURL               string   `envconfig:"SPOTIFY_TOKEN_URL" default:"https://accounts.spotify.com/api/token"`
		APIBaseURL             string   `envconfig:"SPOTIFY_API_BASE_URL" default:"https://api.spotify.com/v1"`
		UpstreamTimeoutSeconds int      `envconfig:"UPSTREAM_TIMEOUT_SECONDS" default:"10"`
	}

	FeatureFlags struct {
		RecentFallback       bool `envconfig:"FF_RECENT_FALLBACK" default:"true"`
		PreviewURL           bool `envconfig:"FF_PREVIEW_URL" default:"false"`
		PlaylistSingleFlight bool `envconfig:"FF_PLAYLIST_SINGLE_FLIGHT" default:"true"`
	}
}

// Load reads .env (if present) and the environment. A malformed value is an error
// rather than a partly filled Config.
func Load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func mustLoad() Config {
	c, err := Load()
	if err != nil {
		log.WithError(err).Fatalf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// AllowedOrigins splits FRONTEND_URI on commas, trimming whitespace and dropping empty entries.
func (c Config) AllowedOrigins() []string {
	return splitList(c.Configuration.FrontendURI)
}

// PlaylistIDs returns the curated playlist ids with whitespace and empty entries removed.
func (c Config) PlaylistIDs() []string {
	return trimAll(c.Configuration.CuratedPlaylistIDs)
}

// SpotifyScopes returns the requested OAuth scopes, trimmed.
func (c Config) SpotifyScopes() []string {
	return trimAll(c.Spotify.Scopes)
}

func splitList(s string) []string {
	return trimAll(strings.Split(s, ","))
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
