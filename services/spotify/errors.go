package spotify

import (
	"errors"
	"fmt"
)

// ErrAuthNotConfigured is returned when no refresh token is available.
// The account owner has to complete the authorization flow at /login again.
var ErrAuthNotConfigured = errors.New("refresh token not configured: complete the authorization flow at /login")

// UpstreamError is a non-2xx answer from the Spotify accounts service or Web API.
type UpstreamError struct {
	Endpoint    string
	Status      int
	Description string
}

func (e *UpstreamError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("spotify %s returned status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("spotify %s returned status %d: %s", e.Endpoint, e.Status, e.Description)
}

// IsUpstreamError reports whether err wraps an *UpstreamError and returns it.
func IsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
