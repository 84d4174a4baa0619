package records

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// FieldType identifies how a field converts between wire and application form.
type FieldType int

const (
	FieldAny FieldType = iota
	FieldString
	FieldInt
	FieldFloat
	FieldBool
	FieldDate
)

// DateTimestamp is the Field.Format value selecting unix seconds on the wire.
const DateTimestamp = "timestamp"

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInt:
		return "int"
	case FieldFloat:
		return "float"
	case FieldBool:
		return "bool"
	case FieldDate:
		return "date"
	default:
		return "any"
	}
}

// ParseFieldType converts a textual type name. Unknown names map to FieldAny.
func ParseFieldType(name string) FieldType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str", "text":
		return FieldString
	case "int", "integer", "number":
		return FieldInt
	case "float", "double", "decimal":
		return FieldFloat
	case "bool", "boolean":
		return FieldBool
	case "date", "datetime", "time":
		return FieldDate
	default:
		return FieldAny
	}
}

// FieldHook adjusts a value during conversion. rec may be nil.
type FieldHook func(rec *Record, value any) any

// Field declares the conversion rules of one model field.
type Field struct {
	Type    FieldType
	Format  string
	Restore FieldHook
	Store   FieldHook
}

// RestoreField converts a wire value into its application form.
func (m *Model) RestoreField(rec *Record, name string, value any) any {
	field, ok := m.field(name)
	if !ok {
		return value
	}
	out := restoreValue(field, value)
	if field.Restore != nil {
		out = field.Restore(rec, out)
	}
	return out
}

// StoreField converts an application value into its wire form.
func (m *Model) StoreField(rec *Record, name string, value any) any {
	field, ok := m.field(name)
	if !ok {
		return value
	}
	if field.Store != nil {
		value = field.Store(rec, value)
	}
	return storeValue(field, value)
}

func (m *Model) field(name string) (Field, bool) {
	if m == nil || len(m.Fields) == 0 {
		return Field{}, false
	}
	field, ok := m.Fields[name]
	return field, ok
}

func restoreValue(field Field, value any) any {
	if value == nil {
		return nil
	}
	switch field.Type {
	case FieldString:
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprint(value)
	case FieldInt:
		if i, ok := toInt(value); ok {
			return i
		}
		return 0
	case FieldFloat:
		if f, ok := toFloat(value); ok {
			return f
		}
		return 0.0
	case FieldBool:
		return toBool(value)
	case FieldDate:
		if t, ok := toTime(value, field.Format); ok {
			return t
		}
		return nil
	default:
		return value
	}
}

func storeValue(field Field, value any) any {
	if value == nil {
		return nil
	}
	switch field.Type {
	case FieldDate:
		t, ok := value.(time.Time)
		if !ok {
			return value
		}
		switch field.Format {
		case DateTimestamp:
			if t.Nanosecond() != 0 {
				return float64(t.Unix()) + float64(t.Nanosecond())/1e9
			}
			return t.Unix()
		case "":
			return t.Format(time.RFC3339Nano)
		default:
			return t.Format(field.Format)
		}
	case FieldBool:
		return toBool(value)
	case FieldInt:
		if i, ok := toInt(value); ok {
			return i
		}
		return value
	case FieldFloat:
		if f, ok := toFloat(value); ok {
			return f
		}
		return value
	default:
		return value
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case uint:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
		if f, err := v.Float64(); err == nil {
			return int(f), true
		}
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on", "y":
			return true
		}
		return false
	case nil:
		return false
	}
	if f, ok := toFloat(value); ok {
		return f != 0
	}
	return !reflect.ValueOf(value).IsZero()
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTime(value any, format string) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if format != "" && format != DateTimestamp {
			if t, err := time.Parse(format, s); err == nil {
				return t, true
			}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(f), true
		}
		return time.Time{}, false
	}
	if f, ok := toFloat(value); ok {
		return unixTime(f), true
	}
	return time.Time{}, false
}

func unixTime(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
