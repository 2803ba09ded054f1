// Package report renders a connectivity.Report for a terminal or a script.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kylerisse/internetcheck/pkg/check"
	"github.com/kylerisse/internetcheck/pkg/check/dns"
	"github.com/kylerisse/internetcheck/pkg/check/http"
	"github.com/kylerisse/internetcheck/pkg/check/ping"
	"github.com/kylerisse/internetcheck/pkg/connectivity"
)

const (
	// MsgConnected is printed when the HTTP probe succeeded.
	MsgConnected = "Du har tilgang til internett."

	// MsgNotConnected is printed when it failed.
	MsgNotConnected = "Ingen internettilgang."

	// LimitedLabel prefixes the verbose breakdown when DNS or ICMP worked.
	LimitedLabel = "Begrenset"

	checkGlyph = "✔"
	crossGlyph = "✖"

	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// Options controls how a report is written.
type Options struct {
	// Quiet suppresses all output.
	Quiet bool

	// Verbose appends the per-probe breakdown to a failure line.
	Verbose bool

	// Color wraps the status glyph in ANSI colour codes.
	Color bool

	// JSON writes a single JSON object instead of the status line.
	JSON bool
}

// ColorEnabled reports whether colour should be used. isTerminal tells
// whether stdout is an interactive terminal; a nil func means it is not.
func ColorEnabled(isTerminal func() bool) bool {
	return isTerminal != nil && isTerminal()
}

// Write renders r to w according to opts.
func Write(w io.Writer, r connectivity.Report, opts Options) error {
	if opts.Quiet {
		return nil
	}
	if opts.JSON {
		return writeJSON(w, r)
	}
	_, err := fmt.Fprintln(w, Line(r, opts))
	return err
}

// Line returns the human-readable status line without a trailing newline.
func Line(r connectivity.Report, opts Options) string {
	if r.Connected {
		return glyph(checkGlyph, ansiGreen, opts.Color) + " " + MsgConnected
	}

	msg := MsgNotConnected
	if opts.Verbose {
		details := strings.Join([]string{
			"HTTP=" + status(r.Connected),
			"DNS=" + status(r.DNS),
			"PING=" + status(r.ICMP),
		}, ", ")
		if r.Limited {
			msg += " (" + LimitedLabel + ": " + details + ")"
		} else {
			msg += " (" + details + ")"
		}
	}
	return glyph(crossGlyph, ansiRed, opts.Color) + " " + msg
}

func glyph(g, color string, enabled bool) string {
	if !enabled {
		return g
	}
	return color + g + ansiReset
}

func status(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

type jsonProbe struct {
	OK        bool     `json:"ok"`
	LatencyUS *float64 `json:"latency_us,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type jsonReport struct {
	Connected bool       `json:"connected"`
	Limited   bool       `json:"limited"`
	HTTP      *jsonProbe `json:"http,omitempty"`
	DNS       *jsonProbe `json:"dns,omitempty"`
	Ping      *jsonProbe `json:"ping,omitempty"`
}

func writeJSON(w io.Writer, r connectivity.Report) error {
	out := jsonReport{
		Connected: r.Connected,
		Limited:   r.Limited,
		HTTP:      probe(r.Results, http.TypeName),
		DNS:       probe(r.Results, dns.TypeName),
		Ping:      probe(r.Results, ping.TypeName),
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// probe converts the named result, or returns nil if that probe did not run.
func probe(results map[string]check.Result, name string) *jsonProbe {
	res, ok := results[name]
	if !ok {
		return nil
	}
	p := &jsonProbe{OK: res.Success}
	if v, ok := res.Metric(check.LatencyKey); ok {
		p.LatencyUS = &v
	}
	if res.Err != nil {
		p.Error = res.Err.Error()
	}
	return p
}
