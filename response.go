package records

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

func (m *Model) normalize(call Call, cfg resolvedOperation, raw any) (Result, error) {
	if !isSuccessful(cfg, raw) {
		return Result{}, wrapRemote(call.Scope, call.Op, raw, ErrUnsuccessful)
	}
	switch call.Scope {
	case ScopeRecord:
		return normalizeRecord(call, cfg, raw), nil
	case ScopeStore:
		return normalizeStore(cfg, raw), nil
	default:
		return Result{Data: raw, Raw: raw}, nil
	}
}

func normalizeRecord(call Call, cfg resolvedOperation, raw any) Result {
	res := Result{Raw: raw}
	data := raw
	if cfg.rootProp != "" {
		data, _ = lookupPath(raw, cfg.rootProp)
	}
	res.Data = data
	if obj, ok := data.(map[string]any); ok {
		res.ID, _ = NormalizeID(obj[cfg.idProp])
	}
	if res.ID == "" {
		if value, ok := lookupPath(raw, cfg.idProp); ok {
			res.ID, _ = NormalizeID(value)
		}
	}
	if res.ID == "" {
		res.ID = call.ID
	}
	return res
}

func normalizeStore(cfg resolvedOperation, raw any) Result {
	res := Result{Raw: raw}
	data := raw
	if cfg.rootProp != "" {
		data, _ = lookupPath(raw, cfg.rootProp)
	}
	res.Data = data
	if cfg.totalProp != "" {
		if value, ok := lookupPath(raw, cfg.totalProp); ok {
			res.Total = toIntDefault(value)
		}
	}
	if res.Total == 0 {
		res.Total = len(res.List())
	}
	return res
}

func isSuccessful(cfg resolvedOperation, raw any) bool {
	if cfg.successFunc != nil {
		return cfg.successFunc(raw)
	}
	if cfg.successProp != "" {
		value, _ := lookupPath(raw, cfg.successProp)
		return truthy(value)
	}
	return true
}

// lookupPath walks a dotted path through nested maps. Numeric segments
// index into lists.
func lookupPath(value any, path string) (any, bool) {
	if path == "" {
		return value, true
	}
	current := value
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// truthy follows loose truthiness: nil, false, zero, NaN and "" are false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32:
		return rv.Float() != 0
	}
	return true
}

func toIntDefault(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	n, _ := toInt(value)
	return n
}
