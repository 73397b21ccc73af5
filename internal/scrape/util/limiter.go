package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; JobSync/1.0)"

// HostLimiter rate-limits per hostname (smarthirepro.com, boards.greenhouse.io, etc).
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	r := rate.Limit(reqPerSec)
	if reqPerSec <= 0 {
		r = rate.Inf
	}
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: r,
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	if hl == nil {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}

// Client is the HTTP client shared by adapters: it waits on the host
// limiter and sets a user agent on every request.
type Client struct {
	HC        *http.Client
	Limiter   *HostLimiter
	UserAgent string
}

func NewClient(limiter *HostLimiter, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		HC:        &http.Client{Timeout: 20 * time.Second},
		Limiter:   limiter,
		UserAgent: userAgent,
	}
}

// Get fetches raw and returns the open response body. Statuses >= 400
// are errors.
func (c *Client) Get(ctx context.Context, raw string) (io.ReadCloser, error) {
	if err := c.Limiter.WaitURL(ctx, raw); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	res, err := c.HC.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", raw, err)
	}
	if res.StatusCode >= 400 {
		_ = res.Body.Close()
		return nil, fmt.Errorf("get %s: status %d", raw, res.StatusCode)
	}
	return res.Body, nil
}

// Document fetches raw and parses it as HTML.
func (c *Client) Document(ctx context.Context, raw string) (*goquery.Document, error) {
	body, err := c.Get(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", raw, err)
	}
	return doc, nil
}
