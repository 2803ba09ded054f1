package ping

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/kylerisse/internetcheck/pkg/check"
)

// fakeRunner records invocations and returns canned output.
type fakeRunner struct {
	out   []byte
	err   error
	calls int
	name  string
	args  []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls++
	f.name = name
	f.args = args
	return f.out, f.err
}

func foundAt(path string) func(string) (string, error) {
	return func(string) (string, error) { return path, nil }
}

func notFound(file string) (string, error) {
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

const linuxReply = `PING 1.1.1.1 (1.1.1.1) 56(84) bytes of data.
64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=11.5 ms

--- 1.1.1.1 ping statistics ---
1 packets transmitted, 1 received, 0% packet loss, time 0ms
rtt min/avg/max/mdev = 11.500/11.500/11.500/0.000 ms`

func TestNew_ValidTarget(t *testing.T) {
	p, err := New("localhost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.target != "localhost" {
		t.Errorf("expected target 'localhost', got %q", p.target)
	}
	if p.timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, p.timeout)
	}
	if p.count != DefaultCount {
		t.Errorf("expected default count %d, got %d", DefaultCount, p.count)
	}
}

func TestNew_EmptyTarget(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty target")
	}
}

func TestNew_WithOptions(t *testing.T) {
	p, err := New("example.com",
		WithTimeout(5*time.Second),
		WithCount(3),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", p.timeout)
	}
	if p.count != 3 {
		t.Errorf("expected count 3, got %d", p.count)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New("localhost", WithTimeout(0)); err == nil {
		t.Error("expected error for zero timeout")
	}
	if _, err := New("localhost", WithTimeout(-1*time.Second)); err == nil {
		t.Error("expected error for negative timeout")
	}
	if _, err := New("localhost", WithCount(0)); err == nil {
		t.Error("expected error for zero count")
	}
	if _, err := New("localhost", WithRunner(nil)); err == nil {
		t.Error("expected error for nil runner")
	}
	if _, err := New("localhost", WithLookPath(nil)); err == nil {
		t.Error("expected error for nil lookPath")
	}
}

func TestType(t *testing.T) {
	p, _ := New("localhost")
	if p.Type() != "ping" {
		t.Errorf("expected type 'ping', got %q", p.Type())
	}
}

func TestArgs_TruncatesTimeout(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    string
	}{
		{2 * time.Second, "2"},
		{2900 * time.Millisecond, "2"},
		{1500 * time.Millisecond, "1"},
		{500 * time.Millisecond, "0"},
	}
	for _, tt := range tests {
		p, err := New("1.1.1.1", WithTimeout(tt.timeout))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"-c", "1", "-W", tt.want, "1.1.1.1"}
		if got := p.Args(); !slices.Equal(got, want) {
			t.Errorf("timeout %v: expected args %v, got %v", tt.timeout, want, got)
		}
	}
}

func TestRun_ExitZero(t *testing.T) {
	runner := &fakeRunner{out: []byte(linuxReply)}
	p, err := New(DefaultTarget, WithRunner(runner), WithLookPath(foundAt("/usr/bin/ping")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := p.Run(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if runner.calls != 1 {
		t.Errorf("expected 1 invocation, got %d", runner.calls)
	}
	if runner.name != "/usr/bin/ping" {
		t.Errorf("expected resolved path to be executed, got %q", runner.name)
	}
	want := []string{"-c", "1", "-W", "2", "1.1.1.1"}
	if !slices.Equal(runner.args, want) {
		t.Errorf("expected args %v, got %v", want, runner.args)
	}
	if v, ok := result.Metric(check.LatencyKey); !ok || v != 11500 {
		t.Errorf("expected latency_us=11500, got %v (ok=%v)", v, ok)
	}
}

func TestRun_ExitZeroUnparseableOutput(t *testing.T) {
	runner := &fakeRunner{out: []byte("something unexpected")}
	p, _ := New(DefaultTarget, WithRunner(runner), WithLookPath(foundAt("/bin/ping")))

	result := p.Run(context.Background())
	if !result.Success {
		t.Fatalf("exit status alone should decide success, got %v", result.Err)
	}
	if result.Metrics != nil {
		t.Errorf("expected no metrics, got %v", result.Metrics)
	}
}

func TestRun_ExitNonZero(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	p, _ := New(DefaultTarget, WithRunner(runner), WithLookPath(foundAt("/bin/ping")))

	result := p.Run(context.Background())
	if result.Success {
		t.Error("expected failure for non-zero exit")
	}
	if result.Err == nil {
		t.Error("expected non-nil error")
	}
}

func TestRun_NoExecutable(t *testing.T) {
	runner := &fakeRunner{}
	p, _ := New(DefaultTarget, WithRunner(runner), WithLookPath(notFound))

	result := p.Run(context.Background())
	if result.Success {
		t.Error("expected failure when ping is not installed")
	}
	if !errors.Is(result.Err, exec.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", result.Err)
	}
	if runner.calls != 0 {
		t.Errorf("expected no process to be started, got %d", runner.calls)
	}
}

// writeScript creates an executable shell script standing in for ping.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "ping")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestExecRunner_ExitStatus(t *testing.T) {
	ok := writeScript(t, `echo "64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=3.25 ms"; exit 0`)
	p, _ := New(DefaultTarget, WithLookPath(foundAt(ok)))
	result := p.Run(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}
	if v, _ := result.Metric(check.LatencyKey); v != 3250 {
		t.Errorf("expected latency_us=3250, got %v", v)
	}

	fail := writeScript(t, `echo "100% packet loss" >&2; exit 1`)
	p, _ = New(DefaultTarget, WithLookPath(foundAt(fail)))
	result = p.Run(context.Background())
	if result.Success {
		t.Error("expected failure for exit 1")
	}
	var exitErr *exec.ExitError
	if !errors.As(result.Err, &exitErr) {
		t.Errorf("expected *exec.ExitError, got %v", result.Err)
	}
}

func TestExecRunner_KillsHungProcess(t *testing.T) {
	hung := writeScript(t, `exec sleep 30`)
	p, _ := New(DefaultTarget, WithLookPath(foundAt(hung)), WithTimeout(100*time.Millisecond))

	start := time.Now()
	if result := p.Run(context.Background()); result.Success {
		t.Error("expected killed process to fail")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("expected hung ping to be killed, took %v", elapsed)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	p, _ := New(DefaultTarget, WithLookPath(foundAt(filepath.Join(t.TempDir(), "missing"))))
	if result := p.Run(context.Background()); result.Success {
		t.Error("expected launch failure to fail the check")
	}
}

func TestParseOutput_Milliseconds(t *testing.T) {
	d, err := parseOutput(linuxReply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != time.Duration(11.5*float64(time.Millisecond)) {
		t.Errorf("expected ~11.5ms, got %v", d)
	}
}

func TestParseOutput_Microseconds(t *testing.T) {
	output := `64 bytes from localhost: icmp_seq=1 ttl=64 time=42 us`

	d, err := parseOutput(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 42*time.Microsecond {
		t.Errorf("expected 42µs, got %v", d)
	}
}

func TestParseOutput_MicrosecondsUnicode(t *testing.T) {
	output := `64 bytes from localhost: icmp_seq=1 ttl=64 time=42 µs`

	d, err := parseOutput(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 42*time.Microsecond {
		t.Errorf("expected 42µs, got %v", d)
	}
}

func TestParseOutput_Seconds(t *testing.T) {
	output := `64 bytes from host: icmp_seq=1 ttl=64 time=1.5 s`

	d, err := parseOutput(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", d)
	}
}

func TestParseOutput_Errors(t *testing.T) {
	tests := map[string]string{
		"no rtt":       "1 packets transmitted, 0 received, 100% packet loss",
		"invalid rtt":  "64 bytes from localhost: icmp_seq=1 ttl=64 time=abc ms",
		"unknown unit": "64 bytes from localhost: icmp_seq=1 ttl=64 time=42 furlongs",
	}
	for name, output := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseOutput(output); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFactory_Valid(t *testing.T) {
	config := map[string]any{
		"target":  "localhost",
		"timeout": "5s",
		"count":   float64(2),
	}

	chk, err := Factory(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chk.Type() != "ping" {
		t.Errorf("expected type 'ping', got %q", chk.Type())
	}

	p := chk.(*Ping)
	if p.target != "localhost" {
		t.Errorf("expected target 'localhost', got %q", p.target)
	}
	if p.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", p.timeout)
	}
	if p.count != 2 {
		t.Errorf("expected count 2, got %d", p.count)
	}
}

func TestFactory_MinimalConfig(t *testing.T) {
	chk, err := Factory(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := chk.(*Ping)
	if p.target != DefaultTarget {
		t.Errorf("expected default target %q, got %q", DefaultTarget, p.target)
	}
	if p.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", p.timeout)
	}
	if p.count != DefaultCount {
		t.Errorf("expected default count, got %d", p.count)
	}
}

func TestFactory_IntCount(t *testing.T) {
	chk, err := Factory(map[string]any{"count": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chk.(*Ping).count != 3 {
		t.Errorf("expected count 3, got %d", chk.(*Ping).count)
	}
}

func TestFactory_InvalidConfig(t *testing.T) {
	tests := map[string]map[string]any{
		"empty target":       {"target": ""},
		"wrong target type":  {"target": 123},
		"bad timeout":        {"timeout": "not-a-duration"},
		"wrong timeout type": {"timeout": 5},
		"wrong count type":   {"count": "three"},
		"zero count":         {"count": 0},
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Factory(config); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegistryIntegration(t *testing.T) {
	reg := check.NewRegistry()
	if err := reg.Register(TypeName, Factory); err != nil {
		t.Fatalf("failed to register ping: %v", err)
	}

	chk, err := reg.Create(TypeName, map[string]any{"target": "10.0.0.1"})
	if err != nil {
		t.Fatalf("failed to create ping check: %v", err)
	}
	if chk.Type() != TypeName {
		t.Errorf("expected type %q, got %q", TypeName, chk.Type())
	}
}

func TestCheckInterface(t *testing.T) {
	var _ check.Check = &Ping{}
}
