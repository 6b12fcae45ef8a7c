// Package listing retrieves party-finder listings from the remote API.
package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"pfwatch/internal/filter"
	"pfwatch/internal/model"
)

// MaxPerPage is the largest page size the API accepts.
const MaxPerPage = 100

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Page is one page of the listings collection.
type Page struct {
	Listings   []model.Listing  `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// Client talks to the listing API. It owns its transport until Close.
type Client struct {
	baseURL   string
	client    HTTPClient
	limiter   *rate.Limiter
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing requests at rps per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, client HTTPClient, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		client:    client,
		limiter:   rate.NewLimiter(rate.Inf, 0),
		userAgent: "pfwatch/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	if ic, ok := c.client.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
}

// FetchPage fetches one page of listings matching the query-level part of
// cond. perPage is clamped to [1, MaxPerPage].
func (c *Client) FetchPage(ctx context.Context, page, perPage int, cond model.FilterCondition) (*Page, error) {
	perPage = min(max(perPage, 1), MaxPerPage)

	q := filter.QueryParams(cond)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	op := fmt.Sprintf("fetch page %d", page)
	resp, err := c.get(ctx, op, c.baseURL+"/listings?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var p Page
	if err := decode(resp.Body, &p); err != nil {
		return nil, &model.ValidationError{Op: op, Err: err}
	}
	return &p, nil
}

// FetchDetail fetches the detail record of a single listing. It returns an
// error wrapping model.ErrNotFound when the id no longer resolves.
func (c *Client) FetchDetail(ctx context.Context, id int64) (*model.Listing, error) {
	op := fmt.Sprintf("fetch listing %d", id)
	resp, err := c.get(ctx, op, c.baseURL+"/listing/"+url.PathEscape(strconv.FormatInt(id, 10)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, model.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var l model.Listing
	if err := decode(resp.Body, &l); err != nil {
		return nil, &model.ValidationError{Op: op, Err: err}
	}
	return &l, nil
}

// FetchAll pages through every listing matching cond at the maximum page
// size, stopping at the reported total page count or after maxPages pages
// when maxPages > 0. Any failed page fails the whole call.
func (c *Client) FetchAll(ctx context.Context, cond model.FilterCondition, maxPages int) ([]model.Listing, error) {
	var all []model.Listing
	for page := 1; ; page++ {
		p, err := c.FetchPage(ctx, page, MaxPerPage, cond)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Listings...)

		if page >= p.Pagination.TotalPages {
			break
		}
		if maxPages > 0 && page >= maxPages {
			break
		}
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, op, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: err}
	}
	return resp, nil
}

func decode(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return json.Unmarshal(data, v)
}
