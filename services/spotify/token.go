package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spotify-relay-go/credentials"
	"spotify-relay-go/logcolors"

	log "github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultScopes are requested when no scopes are configured.
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopePlaylistReadPrivate,
}

// ExchangerConfig holds the static OAuth client credentials.
type ExchangerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string // defaults to the Spotify accounts authorize endpoint
	TokenURL     string // defaults to the Spotify accounts token endpoint
	Timeout      time.Duration
}

// TokenPair is the result of a successful authorization-code exchange.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenExchanger performs the two token grants against the accounts service.
// Access tokens are never cached: every call to AccessToken performs a refresh grant.
type TokenExchanger struct {
	oauth      *oauth2.Config
	store      credentials.Store
	httpClient *http.Client
	timeout    time.Duration

	// rotatedNotice throttles the "new refresh token offered" warning
	rotatedNotice rate.Sometimes
}

// NewTokenExchanger creates a token exchanger backed by store.
func NewTokenExchanger(cfg ExchangerConfig, store credentials.Store) *TokenExchanger {
	if cfg.AuthURL == "" {
		cfg.AuthURL = spotifyauth.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &TokenExchanger{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		store:         store,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		timeout:       cfg.Timeout,
		rotatedNotice: rate.Sometimes{Interval: time.Hour},
	}
}

// AuthURL returns the authorize URL the browser is redirected to by /login.
func (e *TokenExchanger) AuthURL() string {
	return e.oauth.AuthCodeURL("")
}

// clientContext bounds ctx by the upstream timeout and routes oauth2 through our HTTP client.
func (e *TokenExchanger) clientContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient), cancel
}

// ExchangeCode trades an authorization code for tokens and stores the refresh token.
func (e *TokenExchanger) ExchangeCode(ctx context.Context, code string) (TokenPair, error) {
	ctx, cancel := e.clientContext(ctx)
	defer cancel()

	tok, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		return TokenPair{}, translateTokenError(err)
	}

	if tok.RefreshToken == "" {
		log.Warnf("%s Code exchange succeeded but no refresh token was returned", logcolors.LogAuth)
		return TokenPair{AccessToken: tok.AccessToken}, nil
	}
	if err := e.store.SetRefreshToken(ctx, tok.RefreshToken); err != nil {
		return TokenPair{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	log.Infof("%s Authorization code exchanged, refresh token stored", logcolors.LogAuth)
	return TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// AccessToken exchanges the stored refresh token for a fresh access token.
func (e *TokenExchanger) AccessToken(ctx context.Context) (string, error) {
	refreshToken, err := e.store.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" {
		log.Errorf("%s Refresh token is not set", logcolors.LogRefreshToken)
		return "", ErrAuthNotConfigured
	}

	ctx, cancel := e.clientContext(ctx)
	defer cancel()

	tok, err := e.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		err = translateTokenError(err)
		log.Errorf("%s Token refresh failed: %v", logcolors.LogRefreshToken, err)
		return "", err
	}

	// Spotify may rotate the refresh token. The old one usually keeps working, and
	// the rotated value is not stored: operators reseed SPOTIFY_REFRESH_TOKEN instead.
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		e.rotatedNotice.Do(func() {
			log.Warnf("%s Spotify returned a new refresh token; update SPOTIFY_REFRESH_TOKEN to keep using it", logcolors.LogRefreshToken)
		})
	}

	return tok.AccessToken, nil
}

// translateTokenError turns an oauth2 retrieve error into an *UpstreamError
// carrying the vendor's error_description.
func translateTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("token request failed: %w", err)
	}

	ue := &UpstreamError{Endpoint: "token", Description: re.ErrorDescription}
	if re.Response != nil {
		ue.Status = re.Response.StatusCode
	}
	if ue.Description == "" {
		ue.Description = re.ErrorCode
	}
	return ue
}
