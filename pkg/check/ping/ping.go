// Package ping implements an ICMP echo probe.
//
// It shells out to the system ping command. Only the exit status decides
// success; the command's output is captured, never shown, and mined for a
// round-trip time when one is present.
package ping

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kylerisse/internetcheck/pkg/check"
)

const (
	// TypeName is the registered name for this check type.
	TypeName = "ping"

	// DefaultTarget is the address pinged when none is configured.
	DefaultTarget = "1.1.1.1"

	// DefaultTimeout is the default ping timeout.
	DefaultTimeout = 2 * time.Second

	// DefaultCount is the default number of ping packets.
	DefaultCount = 1

	// executable is the command looked up on PATH.
	executable = "ping"

	// killGrace is added to the expected run time before a hung ping
	// process is killed.
	killGrace = time.Second
)

// Runner runs an external command and returns its combined output.
// A non-nil error means the command could not be started or exited
// with a non-zero status.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args, capturing stdout and stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}

// Ping implements check.Check using the system ping command.
type Ping struct {
	target   string
	timeout  time.Duration
	count    int
	runner   Runner
	lookPath func(file string) (string, error)
}

// New creates a Ping check with the given target and options.
func New(target string, opts ...Option) (*Ping, error) {
	if target == "" {
		return nil, fmt.Errorf("ping: target must not be empty")
	}

	p := &Ping{
		target:   target,
		timeout:  DefaultTimeout,
		count:    DefaultCount,
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
	}

	return p, nil
}

// Option is a functional option for configuring a Ping check.
type Option func(*Ping) error

// WithTimeout sets the ping timeout duration.
func WithTimeout(d time.Duration) Option {
	return func(p *Ping) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		p.timeout = d
		return nil
	}
}

// WithCount sets the number of ping packets to send.
func WithCount(n int) Option {
	return func(p *Ping) error {
		if n < 1 {
			return fmt.Errorf("count must be at least 1, got %d", n)
		}
		p.count = n
		return nil
	}
}

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(p *Ping) error {
		if r == nil {
			return fmt.Errorf("runner must not be nil")
		}
		p.runner = r
		return nil
	}
}

// WithLookPath replaces the PATH lookup used to find the ping executable.
func WithLookPath(fn func(file string) (string, error)) Option {
	return func(p *Ping) error {
		if fn == nil {
			return fmt.Errorf("lookPath must not be nil")
		}
		p.lookPath = fn
		return nil
	}
}

// Type returns the check type name.
func (p *Ping) Type() string {
	return TypeName
}

// Args returns the arguments passed to ping. The timeout is truncated to
// whole seconds as ping's -W flag expects.
func (p *Ping) Args() []string {
	return []string{
		"-c", strconv.Itoa(p.count),
		"-W", strconv.Itoa(int(p.timeout / time.Second)),
		p.target,
	}
}

// Run executes the ping check and returns a Result.
// A missing ping executable fails the check without running anything.
func (p *Ping) Run(ctx context.Context) check.Result {
	now := time.Now()

	path, err := p.lookPath(executable)
	if err != nil {
		return check.Failed(now, fmt.Errorf("ping %s: %w", p.target, err))
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.count)*p.timeout+killGrace)
	defer cancel()

	out, err := p.runner.Run(ctx, path, p.Args()...)
	if err != nil {
		return check.Failed(now, fmt.Errorf("ping %s: %w", p.target, err))
	}

	result := check.Result{
		Timestamp: now,
		Success:   true,
	}
	if latency, err := parseOutput(string(out)); err == nil {
		result.Metrics = map[string]float64{
			check.LatencyKey: float64(latency.Microseconds()),
		}
	}
	return result
}

// Factory creates a Ping check from a config map.
// Optional keys: "target" (string, default "1.1.1.1"), "timeout" (string
// parseable by time.ParseDuration), "count" (number).
func Factory(config map[string]any) (check.Check, error) {
	target, ok, err := check.String(config, "target")
	if err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if !ok {
		target = DefaultTarget
	}

	var opts []Option

	d, ok, err := check.Duration(config, "timeout")
	if err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if ok {
		opts = append(opts, WithTimeout(d))
	}

	if v, ok := config["count"]; ok {
		n, err := check.Int(v)
		if err != nil {
			return nil, fmt.Errorf("ping: 'count': %w", err)
		}
		opts = append(opts, WithCount(n))
	}

	return New(target, opts...)
}

// parseOutput extracts the round-trip time from ping command output.
func parseOutput(output string) (time.Duration, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "time=") {
			continue
		}

		start := strings.Index(line, "time=") + len("time=")
		end := strings.IndexAny(line[start:], " ")
		if end == -1 {
			end = len(line[start:])
		}
		rttStr := line[start : start+end]
		unit := strings.TrimSpace(line[start+end:])

		rtt, err := strconv.ParseFloat(strings.TrimSpace(rttStr), 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse RTT %q: %w", rttStr, err)
		}

		switch {
		case strings.HasPrefix(unit, "ms"):
			return time.Duration(rtt * float64(time.Millisecond)), nil
		case strings.HasPrefix(unit, "us") || strings.HasPrefix(unit, "µs"):
			return time.Duration(rtt * float64(time.Microsecond)), nil
		case unit == "s":
			return time.Duration(rtt * float64(time.Second)), nil
		}

		return 0, fmt.Errorf("could not determine time unit from %q", unit)
	}
	return 0, fmt.Errorf("RTT not found in ping output")
}
