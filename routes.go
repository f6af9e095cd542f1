package main

import (
	"net/http"

	"spotify-relay-go/middleware"

	"github.com/gorilla/mux"
)

// routes configures all HTTP routes and wraps them in the middleware chain:
// logging, then the origin guard, then CORS headers.
func (s *server) routes() http.Handler {
	router := mux.NewRouter()
	adminOnly := middleware.APIKeyMiddleware(s.adminKey)

	// One-time authorization flow
	router.HandleFunc("/login", s.login).Methods(http.MethodGet)
	router.HandleFunc("/callback", s.callback).Methods(http.MethodGet)

	// Frontend API
	router.HandleFunc("/api/now-playing", s.getNowPlaying).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", s.getPlaylists).Methods(http.MethodGet)

	// Health and admin endpoints
	router.HandleFunc("/health", s.getHealthStatus).Methods(http.MethodGet)
	router.Handle("/stats", adminOnly(http.HandlerFunc(s.getStats))).Methods(http.MethodGet)
	router.Handle("/cache/clear", adminOnly(http.HandlerFunc(s.clearCache))).Methods(http.MethodPost)

	corsHandler := middleware.CORS(s.allowedOrigins).Handler(router)
	guarded := middleware.OriginGuard(s.allowedOrigins)(corsHandler)
	return middleware.LoggingMiddleware(guarded)
}
