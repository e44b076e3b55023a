package engine

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/MOYARU/hprobe/internal/probe"
	appver "github.com/MOYARU/hprobe/internal/version"
)

// Options configures the shared client and its transport chain.
type Options struct {
	Timeout         time.Duration
	UserAgent       string
	FollowRedirects bool
	Delay           time.Duration
	RateLimit       float64
	RequestBudget   int64
	ScopeDomain     string
	Logger          *zerolog.Logger
}

// Client is the shared HTTP session: one transport chain, one cookie jar and
// one set of default headers, safe for concurrent use by the engines.
type Client struct {
	rc        *resty.Client
	transport http.RoundTripper
	metrics   *MetricsTransport
	budget    *RequestBudgetTransport
	pacer     *Pacer
	opts      Options

	mu      sync.RWMutex
	jar     http.CookieJar
	headers map[string]string
}

func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = appver.ProbeUserAgent()
	}

	jar, err := newJar()
	if err != nil {
		return nil, err
	}

	metrics := &MetricsTransport{Base: NewTransport(nil)}
	var rt http.RoundTripper = metrics
	if opts.ScopeDomain != "" {
		rt = &ScopeTransport{Base: rt, AllowedDomain: opts.ScopeDomain}
	}
	budget := &RequestBudgetTransport{Base: rt, Max: opts.RequestBudget}

	c := &Client{
		transport: budget,
		metrics:   metrics,
		budget:    budget,
		pacer:     NewPacer(opts.Delay, opts.RateLimit),
		opts:      opts,
		jar:       jar,
		headers:   map[string]string{},
	}
	c.rc = newResty(budget, opts, jar)
	return c, nil
}

func newJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return jar, nil
}

func newResty(rt http.RoundTripper, opts Options, jar http.CookieJar) *resty.Client {
	rc := resty.New().
		SetTransport(rt).
		SetTimeout(opts.Timeout).
		SetCookieJar(jar).
		SetRetryCount(0).
		SetLogger(newRestyLogger(opts.Logger))
	if opts.FollowRedirects {
		rc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	} else {
		rc.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	}
	return rc
}

// WithoutCookies returns a client sharing the transport chain and default
// headers but with cookie persistence disabled.
func (c *Client) WithoutCookies() *Client {
	c.mu.RLock()
	headers := maps.Clone(c.headers)
	c.mu.RUnlock()
	return &Client{
		rc:        newResty(c.transport, c.opts, nil),
		transport: c.transport,
		metrics:   c.metrics,
		budget:    c.budget,
		pacer:     c.pacer,
		opts:      c.opts,
		headers:   headers,
	}
}

// Do sends req and returns the exchange. Elapsed covers the client call and
// the body read only. Request building, header merging and pacing happen
// before the clock starts. Redirect hops are not paced.
func (c *Client) Do(ctx context.Context, req probe.ProbeRequest) probe.ProbeResult {
	if ctx == nil {
		ctx = context.Background()
	}

	r := c.rc.R().SetContext(ctx).SetDoNotParseResponse(true)
	r.SetHeader("User-Agent", c.opts.UserAgent)
	r.SetHeaders(c.Headers())
	r.SetHeaders(req.Headers)
	if req.ContentType != "" {
		r.SetHeader("Content-Type", req.ContentType)
	}
	switch {
	case req.Form != nil:
		r.SetFormData(req.Form)
	case len(req.Body) > 0:
		r.SetBody(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return probe.TransportFailure(req, err, 0)
	}

	start := time.Now()
	resp, err := r.Execute(method, req.URL)
	if err != nil {
		if resp != nil && resp.RawResponse != nil {
			resp.RawResponse.Body.Close()
		}
		return probe.TransportFailure(req, err, time.Since(start))
	}
	body, err := readBody(resp.RawResponse)
	elapsed := time.Since(start)
	if err != nil {
		return probe.TransportFailure(req, err, elapsed)
	}
	return probe.Completed(req, resp.StatusCode(), resp.Header(), body, elapsed)
}

// SetHeader stores a default header sent with every request.
func (c *Client) SetHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[http.CanonicalHeaderKey(strings.TrimSpace(name))] = value
}

func (c *Client) DeleteHeader(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := http.CanonicalHeaderKey(strings.TrimSpace(name))
	_, ok := c.headers[key]
	delete(c.headers, key)
	return ok
}

// Headers returns a copy of the default headers.
func (c *Client) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.headers)
}

func (c *Client) ReplaceHeaders(headers map[string]string) {
	next := make(map[string]string, len(headers))
	for k, v := range headers {
		next[http.CanonicalHeaderKey(k)] = v
	}
	c.mu.Lock()
	c.headers = next
	c.mu.Unlock()
}

// Cookies returns the cookies the jar would send to target.
func (c *Client) Cookies(target string) ([]*http.Cookie, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse cookie url %q: %w", target, err)
	}
	c.mu.RLock()
	jar := c.jar
	c.mu.RUnlock()
	if jar == nil {
		return nil, nil
	}
	cookies := jar.Cookies(u)
	slices.SortFunc(cookies, func(a, b *http.Cookie) int { return strings.Compare(a.Name, b.Name) })
	return cookies, nil
}

func (c *Client) SetCookies(target string, cookies []*http.Cookie) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse cookie url %q: %w", target, err)
	}
	c.mu.RLock()
	jar := c.jar
	c.mu.RUnlock()
	if jar == nil {
		return nil
	}
	jar.SetCookies(u, cookies)
	return nil
}

// ClearCookies swaps in an empty jar. Call it between runs, not during one.
func (c *Client) ClearCookies() error {
	jar, err := newJar()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jar == nil {
		return nil
	}
	c.jar = jar
	c.rc.SetCookieJar(jar)
	return nil
}

func (c *Client) Stats() Stats {
	return c.metrics.Snapshot()
}

// RemainingBudget returns the requests left before the budget trips, or -1.
func (c *Client) RemainingBudget() int64 {
	return c.budget.Remaining()
}
