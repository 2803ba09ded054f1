// Package http implements the captive-portal HTTP probe.
//
// The probe walks an ordered list of well-known "generate_204" style
// endpoints and succeeds on the first one that answers with a status code
// from its acceptable set. Any transport failure, or an unexpected status,
// moves on to the next endpoint.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/kylerisse/internetcheck/pkg/check"
)

const (
	// TypeName is the registered name for this check type.
	TypeName = "http"

	// DefaultTimeout is the default timeout for each endpoint request.
	DefaultTimeout = 3 * time.Second

	// DefaultUserAgent is sent with every probe request. Some portal
	// endpoints treat unknown clients differently, so this mimics curl.
	DefaultUserAgent = "curl/7.85.0"

	// MetricEndpoint is the metric key holding the index of the
	// endpoint that matched.
	MetricEndpoint = "endpoint"

	// maxBodyDrain bounds how much of a response body is read before closing.
	maxBodyDrain = 64 << 10
)

// Endpoint is a URL and the set of status codes that count as a working
// internet connection for it.
type Endpoint struct {
	URL    string
	Accept []int
}

// Accepts reports whether code is in the endpoint's acceptable set.
func (e Endpoint) Accepts(code int) bool {
	return slices.Contains(e.Accept, code)
}

// DefaultEndpoints returns a fresh copy of the built-in endpoint table.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{URL: "https://connectivitycheck.gstatic.com/generate_204", Accept: []int{http.StatusOK, http.StatusNoContent}},
		{URL: "https://www.google.com/generate_204", Accept: []int{http.StatusOK, http.StatusNoContent}},
		{URL: "https://1.1.1.1/cdn-cgi/trace", Accept: []int{http.StatusOK}},
	}
}

// Check implements check.Check by probing captive-portal endpoints in order.
type Check struct {
	endpoints  []Endpoint
	timeout    time.Duration
	userAgent  string
	skipVerify bool
	client     *http.Client
}

// Option is a functional option for configuring an HTTP Check.
type Option func(*Check) error

// WithTimeout sets the per-endpoint request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Check) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Check) error {
		if ua == "" {
			return fmt.Errorf("user agent must not be empty")
		}
		c.userAgent = ua
		return nil
	}
}

// WithSkipVerify sets whether to skip TLS certificate verification.
func WithSkipVerify(skip bool) Option {
	return func(c *Check) error {
		c.skipVerify = skip
		return nil
	}
}

// WithClient replaces the HTTP client. The per-endpoint timeout is still
// applied through the request context.
func WithClient(client *http.Client) Option {
	return func(c *Check) error {
		if client == nil {
			return fmt.Errorf("client must not be nil")
		}
		c.client = client
		return nil
	}
}

// New creates an HTTP Check for the given endpoints.
func New(endpoints []Endpoint, opts ...Option) (*Check, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("http: at least one endpoint is required")
	}
	for i, ep := range endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("http: endpoint %d has an empty URL", i)
		}
		if len(ep.Accept) == 0 {
			return nil, fmt.Errorf("http: endpoint %s has no acceptable status codes", ep.URL)
		}
	}

	c := &Check{
		endpoints: slices.Clone(endpoints),
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("http: %w", err)
		}
	}

	if c.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: c.skipVerify}
		transport.DisableKeepAlives = true
		c.client = &http.Client{
			Transport: transport,
			// A portal answering with a redirect to its login page is
			// exactly the case we must not report as connected.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return c, nil
}

// Type returns the check type name.
func (c *Check) Type() string {
	return TypeName
}

// Endpoints returns a copy of the configured endpoints.
func (c *Check) Endpoints() []Endpoint {
	return slices.Clone(c.endpoints)
}

// Run probes each endpoint in order and succeeds on the first acceptable
// status code. The remaining endpoints are not contacted. The response time
// of the matching endpoint is reported in microseconds.
func (c *Check) Run(ctx context.Context) check.Result {
	now := time.Now()
	var lastErr error

	for i, ep := range c.endpoints {
		start := time.Now()
		code, err := c.get(ctx, ep.URL)
		elapsed := time.Since(start)

		if err != nil {
			lastErr = fmt.Errorf("request to %s failed: %w", ep.URL, err)
			continue
		}
		if !ep.Accepts(code) {
			lastErr = fmt.Errorf("request to %s: unexpected status %d", ep.URL, code)
			continue
		}

		return check.Result{
			Timestamp: now,
			Success:   true,
			Metrics: map[string]float64{
				check.LatencyKey: float64(elapsed.Microseconds()),
				MetricEndpoint:   float64(i),
			},
		}
	}

	return check.Failed(now, lastErr)
}

// get issues one GET request bounded by the per-endpoint timeout and
// returns the status code.
func (c *Check) get(ctx context.Context, url string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	return resp.StatusCode, nil
}

// Factory creates an HTTP Check from a config map.
//
// Optional keys:
//   - "endpoints" (list of objects): each with "url" and "accept" (list of
//     status codes); defaults to DefaultEndpoints
//   - "timeout" (string): per-endpoint duration string (e.g. "3s")
//   - "user_agent" (string)
//   - "skip_verify" (bool): skip TLS cert verification (default: false)
func Factory(config map[string]any) (check.Check, error) {
	endpoints := DefaultEndpoints()
	if _, ok := config["endpoints"]; ok {
		var err error
		endpoints, err = extractEndpoints(config)
		if err != nil {
			return nil, err
		}
	}

	var opts []Option

	d, ok, err := check.Duration(config, "timeout")
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	if ok {
		opts = append(opts, WithTimeout(d))
	}

	ua, ok, err := check.String(config, "user_agent")
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	if ok {
		opts = append(opts, WithUserAgent(ua))
	}

	skip, ok, err := check.Bool(config, "skip_verify")
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	if ok {
		opts = append(opts, WithSkipVerify(skip))
	}

	return New(endpoints, opts...)
}

// extractEndpoints parses the "endpoints" list from the config map.
func extractEndpoints(config map[string]any) ([]Endpoint, error) {
	rawList, ok := config["endpoints"].([]any)
	if !ok {
		return nil, fmt.Errorf("http: 'endpoints' must be a list, got %T", config["endpoints"])
	}
	if len(rawList) == 0 {
		return nil, fmt.Errorf("http: 'endpoints' must not be empty")
	}

	endpoints := make([]Endpoint, 0, len(rawList))
	for i, item := range rawList {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("http: endpoint at index %d must be an object, got %T", i, item)
		}

		url, ok := m["url"].(string)
		if !ok || url == "" {
			return nil, fmt.Errorf("http: endpoint at index %d missing required 'url'", i)
		}

		rawAccept, ok := m["accept"].([]any)
		if !ok || len(rawAccept) == 0 {
			return nil, fmt.Errorf("http: endpoint at index %d missing required 'accept'", i)
		}
		accept := make([]int, 0, len(rawAccept))
		for _, v := range rawAccept {
			code, err := check.Int(v)
			if err != nil {
				return nil, fmt.Errorf("http: endpoint at index %d: 'accept': %w", i, err)
			}
			accept = append(accept, code)
		}

		endpoints = append(endpoints, Endpoint{URL: url, Accept: accept})
	}

	return endpoints, nil
}
