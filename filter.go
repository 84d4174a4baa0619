package records

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MatchMode selects how string targets compare.
type MatchMode int

const (
	// MatchContains is a case-insensitive substring match.
	MatchContains MatchMode = iota
	// MatchStrict requires exact string equality.
	MatchStrict
	// MatchExclude inverts a substring match.
	MatchExclude
)

func (m MatchMode) String() string {
	switch m {
	case MatchStrict:
		return "strict"
	case MatchExclude:
		return "exclude"
	default:
		return "contains"
	}
}

// ParseMatchMode maps "strict", "exclude"/"false" and anything else to a mode.
func ParseMatchMode(s string) MatchMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return MatchStrict
	case "exclude", "false", "not":
		return MatchExclude
	default:
		return MatchContains
	}
}

// Match reports whether value satisfies by.
//
// by may be a predicate func(any) bool, a *regexp.Regexp, a map of per-field
// targets, or a primitive. A primitive or regexp tested against a map value
// matches when any field matches; a field map requires every listed field to
// match. MatchExclude negates each primitive comparison.
func Match(value any, by any, mode MatchMode) bool {
	switch target := by.(type) {
	case nil:
		return true
	case func(any) bool:
		return target(value)
	case map[string]any:
		fields, ok := value.(map[string]any)
		if !ok {
			return false
		}
		for key, want := range target {
			if !Match(fields[key], want, mode) {
				return false
			}
		}
		return true
	}

	if fields, ok := value.(map[string]any); ok {
		hit := false
		for _, field := range fields {
			if matchPrimitive(field, by, mode) {
				hit = true
				break
			}
		}
		if mode == MatchExclude {
			return !hit
		}
		return hit
	}
	positive := matchPrimitive(value, by, mode)
	if mode == MatchExclude {
		return !positive
	}
	return positive
}

// matchPrimitive is the positive comparison; callers apply exclusion.
func matchPrimitive(value any, by any, mode MatchMode) bool {
	if value == nil {
		return false
	}
	switch target := by.(type) {
	case *regexp.Regexp:
		return target.MatchString(stringValue(value))
	case string:
		if mode == MatchStrict {
			return stringValue(value) == target
		}
		return containsFold(stringValue(value), target)
	case bool:
		b, ok := value.(bool)
		return ok && b == target
	default:
		return looseEqual(value, by)
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
