package middleware

import (
	"crypto/subtle"
	"net/http"

	"spotify-relay-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// APIKeyMiddleware guards the admin routes with the X-API-Key header.
// When apiKey is empty every request is let through with a warning.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				log.Warnf("%s ADMIN_ACCESS_TOKEN not configured, allowing %s", logcolors.LogAPIKey, r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"API key required","message":"Provide a valid API key via X-API-Key header"}`)
				return
			}

			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Invalid API key","message":"The provided API key is not valid"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
