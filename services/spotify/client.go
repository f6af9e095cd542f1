package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spotify-relay-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultAPIBaseURL = "https://api.spotify.com/v1"

	// playlistFields trims /playlists/{id} down to what PlaylistSummary needs
	playlistFields = "id,name,description,external_urls,images,tracks.total,owner.display_name"

	// maxErrorBody caps how much of an error response is kept for the log
	maxErrorBody = 4096
)

// Client is a minimal Spotify Web API client. The caller supplies the bearer token per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a Web API client rooted at baseURL with a per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// getJSON performs an authenticated GET and decodes a 200 body into out.
// A 204 returns (204, nil) with out untouched. Any other status is an *UpstreamError.
func (c *Client) getJSON(ctx context.Context, accessToken, path string, query url.Values, out interface{}) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	log.Debugf("%s GET %s", logcolors.LogHTTP, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
		}
		return resp.StatusCode, nil
	case http.StatusNoContent:
		return resp.StatusCode, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &UpstreamError{
			Endpoint:    path,
			Status:      resp.StatusCode,
			Description: apiErrorMessage(body),
		}
	}
}

// apiErrorMessage extracts error.message from a Web API error body, falling back to the raw text.
func apiErrorMessage(body []byte) string {
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// CurrentlyPlaying returns the user's current playback, or nil on 204 No Content.
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*CurrentlyPlaying, error) {
	var cp CurrentlyPlaying
	status, err := c.getJSON(ctx, accessToken, "/me/player/currently-playing", nil, &cp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &cp, nil
}

// RecentlyPlayed returns up to limit recently played tracks, most recent first.
func (c *Client) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]PlayHistory, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var page recentlyPlayedPage
	if _, err := c.getJSON(ctx, accessToken, "/me/player/recently-played", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Playlist fetches playlist metadata (not its tracks).
func (c *Client) Playlist(ctx context.Context, accessToken, id string) (*Playlist, error) {
	query := url.Values{"fields": {playlistFields}}

	var playlist Playlist
	status, err := c.getJSON(ctx, accessToken, "/playlists/"+url.PathEscape(id), query, &playlist)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, fmt.Errorf("playlist %s returned no content", id)
	}
	return &playlist, nil
}
