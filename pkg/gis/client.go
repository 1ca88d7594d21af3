// Package gis provides a typed client for a hosted ArcGIS-style platform:
// token-based sessions, geocoding, the travel-mode catalog, and service-area
// solves. All calls are blocking request/response round trips; retry policy
// is left to the caller.
package gis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/drivetime-cli/internal/resilience"
)

const (
	defaultGeocodeURL     = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer"
	defaultRoutingUtilURL = "https://route.arcgis.com/arcgis/rest/services/World/Utilities"
	defaultServiceAreaURL = "https://route.arcgis.com/arcgis/rest/services/World/ServiceAreas/NAServer/ServiceArea_World"

	// tokenRefreshSlack refreshes the session token this long before it expires.
	tokenRefreshSlack = 60 * time.Second
)

// PlatformError is an error payload returned by the platform inside an
// HTTP 200 response body.
type PlatformError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *PlatformError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("gis: platform error %d: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("gis: platform error %d: %s", e.Code, e.Message)
}

// Client is a session-holding client for the GIS platform. It lazily
// acquires a token on first use and refreshes it before expiry.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	portalURL      string
	geocodeURL     string
	routingUtilURL string
	serviceAreaURL string

	username string
	password string
	referer  string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for platform calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithGeocodeURL overrides the geocoding service URL.
func WithGeocodeURL(u string) Option {
	return func(c *Client) { c.geocodeURL = strings.TrimRight(u, "/") }
}

// WithRoutingUtilURL overrides the routing utilities service URL.
func WithRoutingUtilURL(u string) Option {
	return func(c *Client) { c.routingUtilURL = strings.TrimRight(u, "/") }
}

// WithServiceAreaURL overrides the service-area solver URL.
func WithServiceAreaURL(u string) Option {
	return func(c *Client) { c.serviceAreaURL = strings.TrimRight(u, "/") }
}

// WithReferer sets the referer bound to generated tokens.
func WithReferer(ref string) Option {
	return func(c *Client) { c.referer = ref }
}

// NewClient creates a Client for the given portal. Credentials may be empty
// for services that accept anonymous access; the token round trip is skipped
// in that case.
func NewClient(portalURL, username, password string, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		limiter:        rate.NewLimiter(10, 10),
		portalURL:      strings.TrimRight(portalURL, "/"),
		geocodeURL:     defaultGeocodeURL,
		routingUtilURL: defaultRoutingUtilURL,
		serviceAreaURL: defaultServiceAreaURL,
		username:       username,
		password:       password,
		referer:        "drivetime-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenResponse is the generateToken payload.
type tokenResponse struct {
	Token   string         `json:"token"`
	Expires int64          `json:"expires"` // epoch ms
	Error   *PlatformError `json:"error"`
}

// ensureToken returns a valid session token, generating or refreshing one as
// needed. Returns "" without error when the client has no credentials.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if c.username == "" {
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshSlack)) {
		return c.token, nil
	}

	form := url.Values{
		"username":   {c.username},
		"password":   {c.password},
		"referer":    {c.referer},
		"expiration": {"60"},
		"f":          {"json"},
	}

	var tr tokenResponse
	if err := c.postForm(ctx, c.portalURL+"/sharing/rest/generateToken", form, &tr); err != nil {
		return "", eris.Wrap(err, "gis: generate token")
	}
	if tr.Error != nil {
		// Credential rejection is fatal, never transient.
		return "", eris.Wrap(tr.Error, "gis: authenticate")
	}
	if tr.Token == "" {
		return "", eris.New("gis: token response missing token")
	}

	c.token = tr.Token
	c.tokenExpiry = time.Unix(0, tr.Expires*int64(time.Millisecond))
	return c.token, nil
}

// get performs an authenticated GET against the platform and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	params.Set("f", "json")
	if token != "" {
		params.Set("token", token)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "gis: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "gis: build request")
	}
	return c.do(req, out)
}

// post performs an authenticated form POST against the platform and decodes
// the JSON response into out.
func (c *Client) post(ctx context.Context, rawURL string, form url.Values, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	form.Set("f", "json")
	if token != "" {
		form.Set("token", token)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "gis: rate limit")
	}
	return c.postForm(ctx, rawURL, form, out)
}

// postForm posts a form without touching the token. Used by ensureToken
// itself and by post.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "gis: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "gis: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "gis: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("gis: %s returned status %d", req.URL.Path, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	// The platform reports failures as an error object inside a 200.
	var probe struct {
		Error *PlatformError `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != nil {
		perr := probe.Error
		if resilience.IsTransientHTTPStatus(perr.Code) {
			return resilience.NewTransientError(perr, perr.Code)
		}
		return perr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "gis: parse response")
	}
	return nil
}
