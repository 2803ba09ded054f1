// Package connectivity runs the probe cascade and folds the outcomes into a
// single verdict.
//
// The HTTP probe alone decides whether the host is connected. Only when it
// fails are the DNS and ICMP probes run, purely so the caller can tell "no
// network at all" apart from "limited" connectivity such as a captive
// portal or a filtering firewall.
package connectivity

import (
	"context"
	"fmt"
	"io"

	"github.com/kylerisse/internetcheck/pkg/check"
	"github.com/sirupsen/logrus"
)

const (
	// ExitConnected is the process exit code when the HTTP probe succeeded.
	ExitConnected = 0

	// ExitNotConnected is the process exit code when it did not.
	ExitNotConnected = 1
)

// Report is the outcome of one run of the cascade.
type Report struct {
	// Connected is true when the HTTP probe succeeded.
	Connected bool

	// Supplementary is true when the DNS and ICMP probes were run.
	Supplementary bool

	// DNS and ICMP hold the supplementary outcomes. Both are false when
	// Supplementary is false.
	DNS  bool
	ICMP bool

	// Limited is true when HTTP failed but DNS or ICMP worked.
	Limited bool

	// Results holds the raw result of every probe that ran, keyed by
	// check type.
	Results map[string]check.Result
}

// ExitCode maps the report to the process exit status.
func (r Report) ExitCode() int {
	if r.Connected {
		return ExitConnected
	}
	return ExitNotConnected
}

// Checker runs the HTTP, DNS and ICMP probes in order.
type Checker struct {
	http   check.Check
	dns    check.Check
	ping   check.Check
	logger *logrus.Logger
}

// Option is a functional option for configuring a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for per-probe debug output.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Checker from the three probes.
func New(httpCheck, dnsCheck, pingCheck check.Check, opts ...Option) (*Checker, error) {
	if httpCheck == nil || dnsCheck == nil || pingCheck == nil {
		return nil, fmt.Errorf("connectivity: http, dns and ping checks are all required")
	}

	c := &Checker{
		http:   httpCheck,
		dns:    dnsCheck,
		ping:   pingCheck,
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes the cascade sequentially and returns the Report.
// DNS and ICMP are only run when HTTP fails, and then always both.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Results: make(map[string]check.Result, 3),
	}

	report.Connected = c.run(ctx, c.http, &report)
	if report.Connected {
		return report
	}

	report.Supplementary = true
	report.DNS = c.run(ctx, c.dns, &report)
	report.ICMP = c.run(ctx, c.ping, &report)
	report.Limited = report.DNS || report.ICMP

	c.logger.WithFields(logrus.Fields{
		"dns":     report.DNS,
		"ping":    report.ICMP,
		"limited": report.Limited,
	}).Debug("http probe failed, supplementary probes done")

	return report
}

// run executes one probe, records its result and logs it.
func (c *Checker) run(ctx context.Context, chk check.Check, report *Report) bool {
	result := chk.Run(ctx)
	report.Results[chk.Type()] = result

	entry := c.logger.WithFields(logrus.Fields{
		"check":   chk.Type(),
		"success": result.Success,
	})
	for k, v := range result.Metrics {
		entry = entry.WithField(k, v)
	}
	if result.Err != nil {
		entry = entry.WithError(result.Err)
	}
	entry.Debug("probe finished")

	return result.Success
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
