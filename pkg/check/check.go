// Package check defines the core interfaces and types for connectivity probes.
//
// A Check represents a single probe that can be executed against a target.
// Probe types (http, dns, ping) implement the Check interface with their own
// logic and configuration.
//
// Results from check execution are captured in a Result struct, which gives
// a uniform shape regardless of probe type: success/failure, a set of named
// metrics, and an optional error. A probe never reports failure any other
// way; transport, resolver and process errors all end up in Result.Err.
//
// The Registry provides type discovery, allowing probe types to be
// registered by name and instantiated from configuration at runtime.
package check

import (
	"context"
)

// Check is the interface that all probe types must implement.
type Check interface {
	// Type returns the registered name of this check type (e.g. "ping", "http").
	Type() string

	// Run executes the check and returns a Result.
	// The provided context can be used for cancellation. Each check
	// applies its own timeout on top of it.
	Run(ctx context.Context) Result
}
