package middleware

import (
	"net/http"

	"spotify-relay-go/logcolors"
	"spotify-relay-go/stats"

	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// OriginGuard rejects requests whose Origin header is not in allowed with a 403
// before they reach any handler. Requests without an Origin header pass.
// An empty allow-list rejects every cross-origin request.
func OriginGuard(allowed []string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || allowedSet[origin] {
				next.ServeHTTP(w, r)
				return
			}

			stats.Get().RecordOriginRejected()
			log.Warnf("%s Blocked request from origin %q to %s %s", logcolors.LogCORS, origin, r.Method, r.URL.Path)
			writeJSONError(w, http.StatusForbidden, `{"error":"Not allowed by CORS"}`)
		})
	}
}

// CORS adds the cross-origin response headers for allowed origins and answers preflights.
func CORS(allowed []string) *cors.Cors {
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedSet[origin] = true
	}

	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return allowedSet[origin]
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-Cache-Status"},
	})
}
