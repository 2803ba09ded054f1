package check

import (
	"fmt"
	"time"
)

// String reads an optional string value from a factory config map.
// ok is false when the key is absent.
func String(config map[string]any, key string) (s string, ok bool, err error) {
	v, ok := config[key]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, fmt.Errorf("'%s' must be a string, got %T", key, v)
	}
	return s, true, nil
}

// Duration reads an optional duration string (e.g. "3s") from a factory
// config map.
func Duration(config map[string]any, key string) (d time.Duration, ok bool, err error) {
	s, ok, err := String(config, key)
	if !ok || err != nil {
		return 0, ok, err
	}
	d, err = time.ParseDuration(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, true, nil
}

// Bool reads an optional boolean from a factory config map.
func Bool(config map[string]any, key string) (b bool, ok bool, err error) {
	v, ok := config[key]
	if !ok {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, true, fmt.Errorf("'%s' must be a bool, got %T", key, v)
	}
	return b, true, nil
}

// Int converts a decoded config number to an int. YAML decoders produce
// ints while JSON produces float64; both are accepted as long as the value
// is integral.
func Int(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
