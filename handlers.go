package main

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"spotify-relay-go/credentials"
	"spotify-relay-go/logcolors"
	"spotify-relay-go/services/playlists"
	"spotify-relay-go/services/spotify"

	log "github.com/sirupsen/logrus"
)

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	log.Infof("%s Redirecting to Spotify authorization", logcolors.LogAuth)
	http.Redirect(w, r, s.auth.AuthURL(), http.StatusFound)
}

// callback finishes the authorization-code flow and shows the refresh token to the operator.
func (s *server) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if authErr := query.Get("error"); authErr != "" {
		log.Warnf("%s Authorization denied: %s", logcolors.LogAuth, authErr)
		http.Error(w, "Authorization failed: "+authErr, http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	pair, err := s.auth.ExchangeCode(r.Context(), code)
	if err != nil {
		s.stats.RecordUpstreamFailure()
		if ue, ok := spotify.IsUpstreamError(err); ok {
			log.Errorf("%s Code exchange rejected: %v", logcolors.LogAuth, err)
			description := ue.Description
			if description == "" {
				description = "unknown error"
			}
			status := ue.Status
			if status < 400 {
				status = http.StatusBadGateway
			}
			http.Error(w, "Failed to obtain token: "+description, status)
			return
		}
		log.Errorf("%s Code exchange failed: %v", logcolors.LogAuth, err)
		http.Error(w, "Internal server error while exchanging the authorization code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "Success! Your refresh token: %s<br>Add it to the SPOTIFY_REFRESH_TOKEN environment variable and restart the server.",
		html.EscapeString(pair.RefreshToken))
}

func (s *server) getNowPlaying(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.resolver.Resolve(r.Context())
	if err != nil {
		s.stats.RecordUpstreamFailure()
		log.Errorf("%s Failed to resolve now playing: %v", logcolors.LogNowPlaying, err)
		Respond(w, r).NoStore().Error(http.StatusInternalServerError, map[string]interface{}{
			"isPlaying": false,
			"error":     errorMessage(err),
		})
		return
	}

	s.stats.RecordNowPlayingSource(string(snapshot.Source))
	Respond(w, r).NoStore().JSON(snapshot)
}

func (s *server) getPlaylists(w http.ResponseWriter, r *http.Request) {
	list, cached, err := s.playlists.Get(r.Context())
	if err != nil {
		s.stats.RecordCacheMiss()
		s.stats.RecordUpstreamFailure()
		log.Errorf("%s Failed to load playlists: %v", logcolors.LogPlaylists, err)
		Respond(w, r).SetCacheStatus("MISS").Error(http.StatusInternalServerError, map[string]interface{}{
			"error": errorMessage(err),
		})
		return
	}

	status := "MISS"
	if cached {
		status = "HIT"
		s.stats.RecordCacheHit()
	} else {
		s.stats.RecordCacheMiss()
	}
	Respond(w, r).SetCacheStatus(status).JSON(list)
}

func (s *server) getHealthStatus(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:                 "ok",
		RefreshTokenConfigured: credentials.HasRefreshToken(r.Context(), s.store),
		PlaylistCache:          s.playlists.Snapshot(),
	}
	if !health.RefreshTokenConfigured {
		health.Status = "degraded"
	}
	Respond(w, r).JSON(health)
}

func (s *server) getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := s.stats.Snapshot()
	snapshot["playlist_cache"] = s.playlists.Snapshot()
	Respond(w, r).JSON(snapshot)
}

func (s *server) clearCache(w http.ResponseWriter, r *http.Request) {
	s.playlists.Invalidate()
	Respond(w, r).JSON(map[string]interface{}{
		"cleared": true,
	})
}

// errorMessage turns service errors into the text returned to the frontend.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, spotify.ErrAuthNotConfigured):
		return "Refresh token not found. Authorize via /login."
	case errors.Is(err, playlists.ErrNoPlaylists):
		return "Failed to fetch any playlist"
	default:
		return err.Error()
	}
}
