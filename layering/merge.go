// Package layering composes parameter maps ordered from strongest to weakest.
package layering

// MergeMaps composes maps ordered from strongest to weakest, returning a new
// map that keeps every key from stronger layers while filling missing keys
// from weaker ones. Nested map[string]any values merge recursively; any
// other value from a stronger layer replaces the weaker one wholesale. Nil
// layers are skipped. Inputs are never mutated.
func MergeMaps(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = overlay(layers[i], merged)
	}
	return merged
}

func overlay(strong, weak map[string]any) map[string]any {
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = Clone(value)
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := result[key].(map[string]any)
		if strongIsMap && weakIsMap {
			result[key] = overlay(strongMap, weakMap)
			continue
		}
		result[key] = Clone(value)
	}
	return result
}

// Clone deep copies map[string]any and []any containers; other values are
// returned as-is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Clone(item)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	default:
		return value
	}
}
