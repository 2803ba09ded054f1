package connectivity

import (
	"fmt"

	"github.com/kylerisse/internetcheck/pkg/check"
	"github.com/kylerisse/internetcheck/pkg/check/dns"
	"github.com/kylerisse/internetcheck/pkg/check/http"
	"github.com/kylerisse/internetcheck/pkg/check/ping"
)

// NewRegistry returns a registry with the http, dns and ping probe types.
func NewRegistry() *check.Registry {
	reg := check.NewRegistry()
	for name, factory := range map[string]check.Factory{
		http.TypeName: http.Factory,
		dns.TypeName:  dns.Factory,
		ping.TypeName: ping.Factory,
	} {
		// Names are distinct constants, so Register cannot fail here.
		_ = reg.Register(name, factory)
	}
	return reg
}

// FromConfig builds a Checker whose probes are created by reg from the
// per-type config sections. A missing section yields a probe with default
// settings.
func FromConfig(reg *check.Registry, sections map[string]map[string]any, opts ...Option) (*Checker, error) {
	checks := make(map[string]check.Check, 3)
	for _, name := range []string{http.TypeName, dns.TypeName, ping.TypeName} {
		chk, err := reg.Create(name, sections[name])
		if err != nil {
			return nil, fmt.Errorf("connectivity: %w", err)
		}
		checks[name] = chk
	}
	return New(checks[http.TypeName], checks[dns.TypeName], checks[ping.TypeName], opts...)
}
