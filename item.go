package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Item is a member of a Store: either a typed *Record or a Plain payload.
type Item interface {
	ItemID() string
	ItemData() map[string]any
	IsDirty() bool
}

// Plain is an untyped payload held by a store whose model has no type.
type Plain struct {
	ID   string
	Data map[string]any
}

// ItemID implements Item.
func (p *Plain) ItemID() string { return p.ID }

// ItemData implements Item.
func (p *Plain) ItemData() map[string]any { return p.Data }

// IsDirty implements Item. Plain payloads carry no change tracking.
func (p *Plain) IsDirty() bool { return false }

// RecordID returns the identity of item regardless of its variant.
func RecordID(item Item) string {
	if item == nil {
		return ""
	}
	return item.ItemID()
}

// RecordData returns the payload of item regardless of its variant.
func RecordData(item Item) map[string]any {
	if item == nil {
		return nil
	}
	return item.ItemData()
}

// NormalizeID converts a wire identifier to its canonical string form.
// Integral numbers drop their fraction so 7 and 7.0 share an identity.
func NormalizeID(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		return v.String(), v.String() != ""
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return NormalizeID(float64(v))
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case fmt.Stringer:
		return NormalizeID(v.String())
	default:
		s := fmt.Sprint(v)
		return s, s != ""
	}
}

func cloneData(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
