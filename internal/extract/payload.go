package extract

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// The two vendor feeds name the same field differently, so every accessor
// takes the candidate keys in precedence order and returns the first value
// present. A malformed value casts to its zero value, never to an error.

func pick(payload map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Str returns the first present key as a trimmed string.
func Str(payload map[string]any, keys ...string) string {
	v, ok := pick(payload, keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// F64 returns the first present key as a float, tolerating money formatting.
func F64(payload map[string]any, keys ...string) float64 {
	v, ok := pick(payload, keys...)
	if !ok {
		return 0
	}
	if s, isStr := v.(string); isStr {
		v = cleanMoney(s)
	}
	out, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return out
}

// Whole returns the first present key truncated to an int.
func Whole(payload map[string]any, keys ...string) int {
	return int(F64(payload, keys...))
}

// Flag returns the first present key as a bool; report exports write yes/no
// rather than booleans.
func Flag(payload map[string]any, keys ...string) bool {
	v, ok := pick(payload, keys...)
	if !ok {
		return false
	}
	out, err := cast.ToBoolE(v)
	if err != nil {
		switch strings.ToLower(strings.TrimSpace(cast.ToString(v))) {
		case "yes", "y":
			return true
		default:
			return false
		}
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
}

// Date returns the first present key parsed as a date, nil when absent or
// unparseable.
func Date(payload map[string]any, keys ...string) *time.Time {
	v, ok := pick(payload, keys...)
	if !ok {
		return nil
	}
	if t, isTime := v.(time.Time); isTime {
		u := t.UTC()
		return &u
	}
	s := strings.TrimSpace(cast.ToString(v))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func cleanMoney(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	return s
}
