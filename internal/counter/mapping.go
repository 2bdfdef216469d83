package counter

import "strings"

// Counter names. All counters share one flat namespace so the whole set fits
// in a single cookie value.
const (
	TotalSessions        = "totalSessions"
	TotalActionsPrefix   = "totalActions/"
	SessionActionsPrefix = "sessionActions/"
)

// Mapping is a flat set of named counters. Absent names count as zero and are
// only materialized by Bump.
type Mapping map[string]int64

// TotalActions returns the lifetime counter name for a route.
func TotalActions(route string) string {
	return TotalActionsPrefix + route
}

// SessionActions returns the current-session counter name for a route.
func SessionActions(route string) string {
	return SessionActionsPrefix + route
}

// Get returns the value of name and whether it has ever been recorded.
func (m Mapping) Get(name string) (int64, bool) {
	v, ok := m[name]
	return v, ok
}

// Clone returns an independent copy of m. A nil mapping clones to an empty one.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports whether both mappings hold the same keys and values.
func (m Mapping) Equal(other Mapping) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// WithPrefix returns the counters under prefix, keyed by the name with the
// prefix stripped.
func (m Mapping) WithPrefix(prefix string) map[string]int64 {
	out := make(map[string]int64)
	for k, v := range m {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			out[rest] = v
		}
	}
	return out
}

// Bump returns a copy of m with name incremented by one, inserting it at 1
// when absent. m itself is not modified.
func Bump(m Mapping, name string) Mapping {
	out := m.Clone()
	out[name]++
	return out
}

// Without returns a copy of m with every counter under prefix removed.
func Without(m Mapping, prefix string) Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		if !strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}
