package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
	Yellow = "\033[33m"
)

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
	LogHTTP   = Cyan + "[HTTP]" + Reset
	LogCORS   = Purple + "[CORS]" + Reset
	LogAPIKey = Purple + "[APIKey]" + Reset
)

// Auth log prefixes
const (
	LogAuth         = Purple + "[Auth]" + Reset
	LogRefreshToken = Cyan + "[Refresh Token]" + Reset
	LogTokenStore   = Blue + "[Token Store]" + Reset
)

// Upstream data log prefixes
const (
	LogNowPlaying = Green + "[NowPlaying]" + Reset
	LogRecent     = Cyan + "[Recent]" + Reset
	LogPlaylists  = Blue + "[Playlists]" + Reset
	LogCache      = Blue + "[Cache:Playlists]" + Reset
	LogWarning    = Red + "[Warning]" + Reset
)

// Playlist returns a colored playlist prefix with the given id
func Playlist(id string) string {
	return Blue + "[Playlist:" + id + "]" + Reset
}

// StatusColor returns the color used for an HTTP status code in request logs
func StatusColor(statusCode int) string {
	switch {
	case statusCode >= 500:
		return Red
	case statusCode >= 400:
		return Yellow
	case statusCode >= 300:
		return Cyan
	case statusCode >= 200:
		return Green
	default:
		return Reset
	}
}
