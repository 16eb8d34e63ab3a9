// Package discord exchanges OAuth authorization codes for user profiles.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://discord.com/api/oauth2/authorize"
	defaultTokenURL = "https://discord.com/api/oauth2/token"
	defaultUserURL  = "https://discord.com/api/users/@me"

	// scopeIdentify grants access to id, username and avatar only.
	scopeIdentify = "identify"
)

// Profile is the subset of the Discord user object the service consumes.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// ExchangeError reports a failed token exchange or profile fetch, carrying
// the upstream status and body where available.
type ExchangeError struct {
	Stage  string // "token" or "profile"
	Status int
	Body   string
	Err    error
}

func (e *ExchangeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("discord %s exchange failed: status %d: %s", e.Stage, e.Status, e.Body)
	}
	return fmt.Sprintf("discord %s exchange failed: %v", e.Stage, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Client performs the code-to-token exchange and the profile fetch against
// the Discord API. It keeps no state between calls.
type Client struct {
	conf       *oauth2.Config
	httpClient *http.Client
	userURL    string
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithBaseURL redirects all Discord endpoints to base (used in tests).
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		base = strings.TrimRight(base, "/")
		c.conf.Endpoint = oauth2.Endpoint{
			AuthURL:  base + "/oauth2/authorize",
			TokenURL: base + "/oauth2/token",
		}
		c.userURL = base + "/users/@me"
	}
}

// NewClient constructs a Client. redirectURI must match the URI used to
// obtain authorization codes byte for byte.
func NewClient(clientID, clientSecret, redirectURI string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{scopeIdentify},
			Endpoint: oauth2.Endpoint{
				AuthURL:  defaultAuthURL,
				TokenURL: defaultTokenURL,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		userURL:    defaultUserURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL returns the Discord authorize URL the browser is redirected to.
func (c *Client) AuthURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// ExchangeCode trades a one-time authorization code for the user's profile.
// Any transport error, non-2xx response or malformed payload surfaces as an
// *ExchangeError; no side effects are retained on failure.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Profile, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Profile{}, &ExchangeError{Stage: "token", Err: errors.New("authorization code is empty")}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return Profile{}, &ExchangeError{
				Stage:  "token",
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
				Err:    err,
			}
		}
		return Profile{}, &ExchangeError{Stage: "token", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL, nil)
	if err != nil {
		return Profile{}, &ExchangeError{Stage: "profile", Err: err}
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, &ExchangeError{Stage: "profile", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, &ExchangeError{Stage: "profile", Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Profile{}, &ExchangeError{
			Stage:  "profile",
			Status: resp.StatusCode,
			Body:   string(body),
			Err:    errors.New("unexpected status"),
		}
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return Profile{}, &ExchangeError{Stage: "profile", Status: resp.StatusCode, Err: err}
	}
	if profile.ID == "" || profile.Username == "" {
		return Profile{}, &ExchangeError{
			Stage:  "profile",
			Status: resp.StatusCode,
			Err:    errors.New("profile payload missing id or username"),
		}
	}
	return profile, nil
}
