package spotify

import "time"

// Image is an album or playlist artwork. Spotify lists the largest first.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// ExternalURLs holds the public share links of an object.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is the subset of the track object the relay reshapes.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	ExternalURLs ExternalURLs `json:"external_urls"`
	PreviewURL   *string      `json:"preview_url"`
	DurationMs   int          `json:"duration_ms"`
}

// CurrentlyPlaying is the /me/player/currently-playing payload.
// Item is nil when nothing is loaded or an ad is playing.
type CurrentlyPlaying struct {
	IsPlaying            bool   `json:"is_playing"`
	ProgressMs           int    `json:"progress_ms"`
	Timestamp            int64  `json:"timestamp"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Item                 *Track `json:"item"`
}

// PlayHistory is one entry of /me/player/recently-played.
type PlayHistory struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

type recentlyPlayedPage struct {
	Items []PlayHistory `json:"items"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type PlaylistTracks struct {
	Total int `json:"total"`
}

// Playlist is the subset of /playlists/{id} requested through the fields filter.
type Playlist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ExternalURLs ExternalURLs   `json:"external_urls"`
	Images       []Image        `json:"images"`
	Tracks       PlaylistTracks `json:"tracks"`
	Owner        Owner          `json:"owner"`
}

// apiError is the error envelope returned by the Web API.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
