package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://plex.tv"

// HTTPDoer is the HTTP client subset used by Client. *http.Client satisfies
// it; tests inject stubs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for Plex API calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL overrides the plex.tv origin (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// Client talks to plex.tv and to individual media servers.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	clientID   string
	product    string
}

// NewClient builds a Client identifying itself with the given client
// identifier and product name on every request.
func NewClient(clientID, product string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		clientID:   clientID,
		product:    product,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) applyHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", c.product)
	if token != "" {
		req.Header.Set("X-Plex-Token", token)
	}
}

func (c *Client) getJSON(ctx context.Context, url, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.applyHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("plex returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type pinResponse struct {
	AuthToken string `json:"authToken"`
}

// CheckPin queries the token-status endpoint for the given handshake
// identifier. An empty token with a nil error means the user has not
// authorized yet.
func (c *Client) CheckPin(ctx context.Context, requestID string) (string, error) {
	var pin pinResponse
	url := fmt.Sprintf("%s/api/v2/pins/%s", c.baseURL, requestID)
	if err := c.getJSON(ctx, url, "", &pin); err != nil {
		return "", err
	}
	return pin.AuthToken, nil
}

// Server is one media server advertised for the account.
type Server struct {
	Name           string   `json:"name"`
	Owned          int      `json:"owned"`
	LocalAddresses []string `json:"localAddresses"`
	Port           int      `json:"port"`
}

// Reachable reports whether the server is owned by the account and
// advertises at least one usable address.
func (s Server) Reachable() bool {
	return s.Owned == 1 && len(s.LocalAddresses) > 0
}

// URL returns the base URL of the server's first advertised address.
func (s Server) URL() string {
	if len(s.LocalAddresses) == 0 {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", s.LocalAddresses[0], s.Port)
}

// Servers lists the media servers accessible to the authenticated account.
func (c *Client) Servers(ctx context.Context, token string) ([]Server, error) {
	var servers []Server
	url := c.baseURL + "/api/v2/servers"
	if err := c.getJSON(ctx, url, token, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// Directory is one library section of a server.
type Directory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type sectionsResponse struct {
	MediaContainer struct {
		Directory []Directory `json:"Directory"`
	} `json:"MediaContainer"`
}

// Sections lists the library sections of one server.
func (c *Client) Sections(ctx context.Context, serverURL, token string) ([]Directory, error) {
	var resp sectionsResponse
	url := strings.TrimRight(serverURL, "/") + "/library/sections"
	if err := c.getJSON(ctx, url, token, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Directory, nil
}

// Tag is Plex's wrapper around a single tag string (genres, roles, ...).
type Tag struct {
	Tag string `json:"tag"`
}

// Metadata is one item of a library section. Duration is milliseconds and
// LastViewedAt is a Unix timestamp; both may be zero.
type Metadata struct {
	RatingKey    string  `json:"ratingKey"`
	Key          string  `json:"key"`
	GUID         string  `json:"guid"`
	Title        string  `json:"title"`
	Summary      string  `json:"summary"`
	Thumb        string  `json:"thumb"`
	Art          string  `json:"art"`
	Year         int     `json:"year"`
	Duration     int64   `json:"duration"`
	Rating       float64 `json:"rating"`
	Tagline      string  `json:"tagline"`
	Genre        []Tag   `json:"Genre"`
	Role         []Tag   `json:"Role"`
	ViewCount    int     `json:"viewCount"`
	LastViewedAt int64   `json:"lastViewedAt"`
}

type itemsResponse struct {
	MediaContainer struct {
		Metadata []Metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

// SectionItems lists all items of one library section.
func (c *Client) SectionItems(ctx context.Context, serverURL, token, sectionKey string) ([]Metadata, error) {
	var resp itemsResponse
	url := fmt.Sprintf("%s/library/sections/%s/all", strings.TrimRight(serverURL, "/"), sectionKey)
	if err := c.getJSON(ctx, url, token, &resp); err != nil {
		return nil, err
	}
	return resp.MediaContainer.Metadata, nil
}
