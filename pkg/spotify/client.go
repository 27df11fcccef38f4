// Package spotify looks up album art through the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultAPIURL   = "https://api.spotify.com/v1"
)

// ErrDisabled is returned when no client credentials are configured.
var ErrDisabled = errors.New("spotify lookup disabled")

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration

	// TokenURL and APIURL default to the public Spotify endpoints.
	TokenURL string
	APIURL   string

	// FailureThreshold consecutive failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client resolves album art URLs with the client-credentials flow.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

// NewClient creates a Client. Without credentials every lookup returns ErrDisabled.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	threshold := cfg.FailureThreshold
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:    "spotify",
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		now: time.Now,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// AlbumArtURL returns the first album image of the best track match.
// No match yields "" and a nil error.
func (c *Client) AlbumArtURL(ctx context.Context, artist, title string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	return c.breaker.Execute(func() (string, error) {
		return c.search(ctx, artist, title)
	})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			Album struct {
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
		} `json:"items"`
	} `json:"tracks"`
}

func (c *Client) search(ctx context.Context, artist, title string) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("artist:%s track:%s", artist, title))
	params.Set("type", "track")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var body searchResponse
	status, err := c.do(req, &body)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized {
		c.resetToken()
		return "", fmt.Errorf("spotify search: token rejected")
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("spotify search: unexpected status %d", status)
	}

	if len(body.Tracks.Items) == 0 || len(body.Tracks.Items[0].Album.Images) == 0 {
		return "", nil
	}
	return body.Tracks.Items[0].Album.Images[0].URL, nil
}

// token returns a cached access token, requesting a new one when it expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	status, err := c.do(req, &tok)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || tok.AccessToken == "" {
		return "", fmt.Errorf("spotify token: unexpected status %d", status)
	}

	c.accessToken = tok.AccessToken
	// Refreshed one minute before the advertised expiry.
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

func (c *Client) do(req *http.Request, out interface{}) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", req.URL.Path, err)
		}
	}
	return resp.StatusCode, nil
}
