// Package dns implements a name resolution probe.
//
// By default the host's own resolver is used, which is what every other
// program on the machine sees. Optionally the probe can query a specific
// server directly with A and AAAA lookups. Either way the timeout is applied
// per call through the context; no process-wide resolver state is changed.
package dns

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/kylerisse/internetcheck/pkg/check"
	"github.com/miekg/dns"
)

const (
	// TypeName is the registered name for this check type.
	TypeName = "dns"

	// DefaultHost is the name resolved when none is configured.
	DefaultHost = "nixos.org"

	// DefaultTimeout is the default resolution timeout.
	DefaultTimeout = 2 * time.Second

	// MetricAddresses is the metric key holding the number of addresses
	// returned by a successful lookup.
	MetricAddresses = "addresses"
)

// Resolver resolves a host name to its addresses.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Check implements check.Check by resolving a single host name.
type Check struct {
	host     string
	server   string // host:port, empty for the system resolver
	timeout  time.Duration
	resolver Resolver
}

// Option is a functional option for configuring a DNS Check.
type Option func(*Check) error

// WithTimeout sets the resolution timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Check) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithServer queries the given server directly instead of using the system
// resolver. Port 53 is assumed when none is given.
func WithServer(server string) Option {
	return func(c *Check) error {
		if server == "" {
			return fmt.Errorf("server must not be empty")
		}
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		c.server = server
		return nil
	}
}

// WithResolver replaces the resolver. It takes precedence over WithServer.
func WithResolver(r Resolver) Option {
	return func(c *Check) error {
		if r == nil {
			return fmt.Errorf("resolver must not be nil")
		}
		c.resolver = r
		return nil
	}
}

// New creates a DNS Check that resolves host.
func New(host string, opts ...Option) (*Check, error) {
	if host == "" {
		return nil, fmt.Errorf("dns: host must not be empty")
	}

	c := &Check{
		host:    host,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("dns: %w", err)
		}
	}

	if c.resolver == nil {
		if c.server != "" {
			c.resolver = &serverResolver{
				server: c.server,
				client: &dns.Client{Timeout: c.timeout},
			}
		} else {
			c.resolver = net.DefaultResolver
		}
	}

	return c, nil
}

// Type returns the check type name.
func (c *Check) Type() string {
	return TypeName
}

// Run resolves the configured host within the timeout. It succeeds when the
// lookup returns at least one address without error.
func (c *Check) Run(ctx context.Context) check.Result {
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	addrs, err := c.resolver.LookupHost(ctx, c.host)
	elapsed := time.Since(start)

	if err != nil {
		return check.Failed(now, fmt.Errorf("dns %s: %w", c.host, err))
	}
	if len(addrs) == 0 {
		return check.Failed(now, fmt.Errorf("dns %s: no addresses returned", c.host))
	}

	return check.Result{
		Timestamp: now,
		Success:   true,
		Metrics: map[string]float64{
			check.LatencyKey: float64(elapsed.Microseconds()),
			MetricAddresses:  float64(len(addrs)),
		},
	}
}

// serverResolver looks up A and AAAA records against one server.
type serverResolver struct {
	server string
	client *dns.Client
}

// LookupHost mirrors net.Resolver.LookupHost: IP literals resolve to
// themselves, otherwise the A and AAAA answers are combined.
func (r *serverResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	var (
		addrs   []string
		lastErr error
	)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := r.query(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		addrs = append(addrs, found...)
	}

	if len(addrs) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no address records for %s from %s", host, r.server)
		}
		return nil, lastErr
	}
	return addrs, nil
}

func (r *serverResolver) query(ctx context.Context, host string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("%s query to %s: %w", dns.TypeToString[qtype], r.server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s query to %s: rcode %s", dns.TypeToString[qtype], r.server, dns.RcodeToString[resp.Rcode])
	}

	var addrs []string
	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.A:
			addrs = append(addrs, v.A.String())
		case *dns.AAAA:
			addrs = append(addrs, v.AAAA.String())
		}
	}
	return addrs, nil
}

// Factory creates a DNS Check from a config map.
//
// Optional keys:
//   - "host" (string): name to resolve, default "nixos.org"
//   - "timeout" (string): duration string (e.g. "2s")
//   - "server" (string): host[:port] to query instead of the system resolver
func Factory(config map[string]any) (check.Check, error) {
	host, ok, err := check.String(config, "host")
	if err != nil {
		return nil, fmt.Errorf("dns: %w", err)
	}
	if !ok {
		host = DefaultHost
	}

	var opts []Option

	d, ok, err := check.Duration(config, "timeout")
	if err != nil {
		return nil, fmt.Errorf("dns: %w", err)
	}
	if ok {
		opts = append(opts, WithTimeout(d))
	}

	server, ok, err := check.String(config, "server")
	if err != nil {
		return nil, fmt.Errorf("dns: %w", err)
	}
	if ok && server != "" {
		opts = append(opts, WithServer(server))
	}

	return New(host, opts...)
}
