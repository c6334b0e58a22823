package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout for API calls.
	// Content streams are bounded by their context only.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096
)

// Options configures a Client.
type Options struct {
	// Provider names the API in errors, e.g. "box".
	Provider string

	// BaseURL is prepended to relative paths.
	BaseURL string

	// Token is the bearer access token.
	Token string

	// Rate and Burst configure proactive throttling.
	Rate  float64
	Burst int

	// Timeout overrides DefaultTimeout for API calls.
	Timeout time.Duration
}

// Client is an authenticated, rate limited JSON API client.
type Client struct {
	provider    string
	base        *url.URL
	api         *http.Client
	stream      *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client for opts.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("%s: %w: access token is required", opts.Provider, domain.ErrAuthInvalid)
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base URL: %w", opts.Provider, err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	api := oauth2.NewClient(context.Background(), ts)
	api.Timeout = DefaultTimeout
	if opts.Timeout > 0 {
		api.Timeout = opts.Timeout
	}
	stream := oauth2.NewClient(context.Background(), ts)

	return &Client{
		provider:    opts.Provider,
		base:        base,
		api:         api,
		stream:      stream,
		rateLimiter: NewRateLimiter(opts.Rate, opts.Burst),
	}, nil
}

// GetJSON fetches target and decodes the JSON body into out.
// target is a path relative to the base URL or an absolute URL.
func (c *Client) GetJSON(ctx context.Context, target string, query url.Values, out any) error {
	resp, err := c.do(ctx, c.api, target, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", c.provider, resp.Request.URL.Path, err)
	}
	return nil
}

// Stream opens target for reading. The caller must close the body.
func (c *Client) Stream(ctx context.Context, target string) (*http.Response, error) {
	return c.do(ctx, c.stream, target, nil)
}

func (c *Client) do(ctx context.Context, hc *http.Client, target string, query url.Values) (*http.Response, error) {
	u, err := c.resolve(target, query)
	if err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request %s: %w", c.provider, req.URL.Path, err)
	}

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", c.provider, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.Status),
			URL:        req.URL.String(),
		}
	}

	return resp, nil
}

func (c *Client) resolve(target string, query url.Values) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(target, "/"))
	if err != nil {
		return "", fmt.Errorf("%s: invalid path %q: %w", c.provider, target, err)
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// errorMessage extracts a message from common JSON error shapes.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}
