// Package ramp is a small client for the list endpoints of the Ramp Developer
// API: bearer authentication, cursor pagination, pacing and retries.
package ramp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ramp/ramp-mcp-server/internal/logging"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

const (
	DefaultPageSize   = 100
	DefaultMaxPages   = 100
	DefaultMaxRetries = 3
	DefaultRPS        = 10
	DefaultTimeout    = 30 * time.Second
	DefaultMaxBackoff = 30 * time.Second
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	BaseURL           string
	PageSize          int
	MaxPages          int
	MaxRetries        int
	RequestsPerSecond float64
	Timeout           time.Duration
	MaxBackoff        time.Duration
	HTTPClient        *http.Client
	Logger            *logrus.Entry
}

// Page is one page of a list endpoint.
type Page struct {
	Records []json.RawMessage
	// Next is the absolute URL of the following page, empty on the last one.
	Next string
}

// Client fetches pages from Ramp. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	tokens  oauth2.TokenSource
	hc      *http.Client
	limiter *rate.Limiter
	opts    Options
	lg      *logrus.Entry
}

// New creates a client for opts.BaseURL using tokens for every request.
func New(tokens oauth2.TokenSource, opts Options) (*Client, error) {
	if tokens == nil {
		return nil, ErrNoCredentials
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRPS
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	lg := opts.Logger
	if lg == nil {
		lg = logging.Discard()
	}
	return &Client{
		base:    base,
		tokens:  tokens,
		hc:      hc,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		opts:    opts,
		lg:      lg,
	}, nil
}

// PageSize is the page_size sent with first-page requests.
func (c *Client) PageSize() int { return c.opts.PageSize }

// MaxPages is the ceiling Paginate enforces.
func (c *Client) MaxPages() int { return c.opts.MaxPages }

// FetchPage retrieves one page. With an empty cursor it requests
// base+path with params; otherwise it follows the cursor as is.
func (c *Client) FetchPage(ctx context.Context, path, cursor string, params url.Values) (Page, error) {
	target, err := c.pageURL(path, cursor, params)
	if err != nil {
		return Page{}, err
	}

	var page Page
	err = c.withRetry(ctx, target, func() error {
		var err error
		page, err = c.get(ctx, target)
		return err
	})
	return page, err
}

func (c *Client) pageURL(path, cursor string, params url.Values) (string, error) {
	if cursor != "" {
		u, err := url.Parse(cursor)
		if err != nil {
			return "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		// never send the bearer token anywhere but the API host
		if u.Scheme != c.base.Scheme || u.Host != c.base.Host {
			return "", fmt.Errorf("cursor %q points outside %s", cursor, c.base.Host)
		}
		return u.String(), nil
	}
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	if q.Get("page_size") == "" {
		q.Set("page_size", strconv.Itoa(c.opts.PageSize))
	}
	return c.base.String() + "/" + strings.TrimPrefix(path, "/") + "?" + q.Encode(), nil
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
	Page struct {
		Next *string `json:"next"`
	} `json:"page"`
}

func (c *Client) get(ctx context.Context, target string) (Page, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return Page{}, tokenError(c.base.String()+"/token", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	tok.SetAuthHeader(req)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, &TransientError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		return Page{}, statusError(resp.StatusCode, target, body, retryAfter(resp.Header.Get("Retry-After")))
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return Page{}, &TransientError{Status: resp.StatusCode, URL: target, Err: fmt.Errorf("decode page: %w", err)}
	}
	p := Page{Records: lr.Data}
	if lr.Page.Next != nil {
		p.Next = strings.TrimSpace(*lr.Page.Next)
	}
	return p, nil
}

// Paginate walks a list endpoint from the first page until the cursor runs
// out, calling fn with each page before the next one is requested. It stops
// with ErrPageLimit when more than MaxPages pages would be needed.
func (c *Client) Paginate(ctx context.Context, path string, params url.Values, fn func(index int, p Page) error) error {
	cursor := ""
	for i := 0; ; i++ {
		if i >= c.opts.MaxPages {
			return fmt.Errorf("%s: %w (more than %d pages)", path, ErrPageLimit, c.opts.MaxPages)
		}
		p, err := c.FetchPage(ctx, path, cursor, params)
		if err != nil {
			return err
		}
		c.lg.WithFields(logrus.Fields{"path": path, "page": i, "records": len(p.Records)}).Debug("page fetched")
		if err := fn(i, p); err != nil {
			return err
		}
		if p.Next == "" {
			return nil
		}
		cursor = p.Next
	}
}
