package rc

import (
	"fmt"
	"time"
)

// Payload is the decoded command payload merged with the request context.
type Payload map[string]any

// Payload keys added by the dispatcher.
const (
	KeyPeerID   = "peer_id"
	KeyWindowID = "window_id"
	KeyAsyncID  = "async_id"
)

// String returns the string at key, or "" when missing or of another type.
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Bool returns the bool at key, or false.
func (p Payload) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Strings returns the string list at key. JSON arrays decode as []any.
func (p Payload) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Duration parses the Go duration string at key.
func (p Payload) Duration(key string) (time.Duration, error) {
	raw := p.String(key)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
