package google

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const DefaultTimeout = 60 * time.Second

// expiryDelta matches the early-expiry window used by oauth2.Token.Valid.
const expiryDelta = 10 * time.Second

// Credential is an access token that may be renewed.
type Credential interface {
	Expired() bool
	CanRefresh() bool
	Refresh(ctx context.Context) (*oauth2.Token, error)
	Token() *oauth2.Token
}

// authorizedUser covers both the google-auth "authorized user" JSON
// (token/token_uri/client_id...) and the oauth2.Token JSON shape.
type authorizedUser struct {
	Token        string   `json:"token"`
	AccessToken  string   `json:"access_token"`
	TokenType    string   `json:"token_type"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

type TokenCredential struct {
	config *oauth2.Config
	token  *oauth2.Token
	now    func() time.Time
}

func ParseCredential(b []byte) (*TokenCredential, error) {
	var info authorizedUser
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, errors.Wrap(err, "unable to parse Drive token JSON")
	}

	access := info.Token
	if access == "" {
		access = info.AccessToken
	}
	if access == "" && info.RefreshToken == "" {
		return nil, errors.New("Drive token JSON has neither an access token nor a refresh token")
	}

	expiry, err := parseExpiry(info.Expiry)
	if err != nil {
		return nil, err
	}

	endpoint := google.Endpoint
	if info.TokenURI != "" {
		endpoint.TokenURL = info.TokenURI
	}

	scopes := info.Scopes
	if len(scopes) == 0 {
		scopes = []string{drive.DriveScope}
	}

	return &TokenCredential{
		config: &oauth2.Config{
			ClientID:     info.ClientID,
			ClientSecret: info.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		token: &oauth2.Token{
			AccessToken:  access,
			TokenType:    info.TokenType,
			RefreshToken: info.RefreshToken,
			Expiry:       expiry,
		},
		now: time.Now,
	}, nil
}

func parseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	// google-auth writes naive UTC timestamps with a trailing Z, oauth2 uses
	// RFC 3339 with an offset. Both parse as RFC3339Nano; the zone-less form
	// is accepted as UTC.
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.999999999", s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unable to parse token expiry %q", s)
	}
	return t.UTC(), nil
}

func (c *TokenCredential) Token() *oauth2.Token {
	return c.token
}

func (c *TokenCredential) Expired() bool {
	if c.token.AccessToken == "" {
		return true
	}
	if c.token.Expiry.IsZero() {
		return false
	}
	return !c.token.Expiry.After(c.now().Add(expiryDelta))
}

func (c *TokenCredential) CanRefresh() bool {
	return c.token.RefreshToken != ""
}

func (c *TokenCredential) Refresh(ctx context.Context) (*oauth2.Token, error) {
	src := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: c.token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, errors.Wrap(err, "unable to refresh Drive token")
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.token.RefreshToken
	}
	c.token = tok
	return tok, nil
}

type Auth struct {
	cred    Credential
	timeout time.Duration
	client  *http.Client
}

func NewAuth(cred Credential, timeout time.Duration) *Auth {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Auth{
		cred:    cred,
		timeout: timeout,
	}
}

// GetClient returns an HTTP client that presents the current access token.
// The token is refreshed first when it has expired and can be refreshed;
// otherwise it is used as-is and the API reports the failure.
func (a *Auth) GetClient(ctx context.Context) (*http.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	logger := zerolog.Ctx(ctx)
	if a.cred.Expired() {
		if a.cred.CanRefresh() {
			logger.Info().Msg("Drive token expired, refreshing")
			refreshCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: a.timeout})
			if _, err := a.cred.Refresh(refreshCtx); err != nil {
				return nil, err
			}
		} else {
			logger.Warn().Msg("Drive token expired and has no refresh token")
		}
	}

	a.client = &http.Client{
		Timeout: a.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(a.cred.Token()),
			Base:   http.DefaultTransport,
		},
	}
	return a.client, nil
}

func (a *Auth) GetDriveService(ctx context.Context) (*drive.Service, error) {
	client, err := a.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve Drive client")
	}
	return srv, nil
}

func (a *Auth) GetSheetsService(ctx context.Context) (*sheets.Service, error) {
	client, err := a.GetClient(ctx)
	if err != nil {
		return nil, err
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve Sheets client")
	}
	return srv, nil
}

// NewAuthFromJSON parses a token JSON document and wraps it in an Auth.
func NewAuthFromJSON(tokenJSON []byte, timeout time.Duration) (*Auth, error) {
	cred, err := ParseCredential(tokenJSON)
	if err != nil {
		return nil, err
	}
	return NewAuth(cred, timeout), nil
}
