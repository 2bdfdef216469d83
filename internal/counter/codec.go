package counter

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Report describes what Decode had to discard.
type Report struct {
	// Rejected is set when a non-empty value was not a JSON object at all.
	Rejected bool
	// Dropped counts members that could not be read as a non-negative count.
	Dropped int
}

// Decode parses a transport value into a Mapping. Absent, malformed or
// non-object input yields an empty mapping; a bad member only loses itself.
func Decode(raw string) Mapping {
	m, _ := DecodeReport(raw)
	return m
}

// DecodeReport is Decode plus a description of the discarded input.
func DecodeReport(raw string) (Mapping, Report) {
	m := make(Mapping)
	var rep Report

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return m, rep
	}
	if !gjson.Valid(raw) {
		rep.Rejected = true
		return m, rep
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		rep.Rejected = true
		return m, rep
	}

	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if n, ok := parseCount(value); ok {
			m[name] = n
			return true
		}
		// Older cookies nested the per-route tables as JSON objects, sometimes
		// serialized into a string member.
		if name+"/" == TotalActionsPrefix || name+"/" == SessionActionsPrefix {
			if nested, ok := nestedObject(value); ok {
				rep.Dropped += flatten(m, name+"/", nested)
				return true
			}
		}
		rep.Dropped++
		return true
	})
	return m, rep
}

// Encode serializes m as a compact JSON object with sorted keys.
func Encode(m Mapping) string {
	if m == nil {
		m = Mapping{}
	}
	b, err := json.Marshal(map[string]int64(m))
	if err != nil {
		return "{}"
	}
	return string(b)
}

func parseCount(v gjson.Result) (int64, bool) {
	var s string
	switch v.Type {
	case gjson.Number:
		s = v.Raw
	case gjson.String:
		s = strings.TrimSpace(v.Str)
	default:
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func nestedObject(v gjson.Result) (gjson.Result, bool) {
	if v.IsObject() {
		return v, true
	}
	if v.Type == gjson.String && gjson.Valid(v.Str) {
		inner := gjson.Parse(v.Str)
		if inner.IsObject() {
			return inner, true
		}
	}
	return gjson.Result{}, false
}

func flatten(m Mapping, prefix string, obj gjson.Result) (dropped int) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := prefix + key.String()
		if _, exists := m[name]; exists {
			return true
		}
		if n, ok := parseCount(value); ok {
			m[name] = n
		} else {
			dropped++
		}
		return true
	})
	return dropped
}
