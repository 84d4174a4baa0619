package records

import (
	"reflect"
	"testing"
	"time"
)

func TestParseFieldType(t *testing.T) {
	cases := map[string]FieldType{
		"string":   FieldString,
		" Text ":   FieldString,
		"Integer":  FieldInt,
		"double":   FieldFloat,
		"BOOLEAN":  FieldBool,
		"datetime": FieldDate,
		"blob":     FieldAny,
		"":         FieldAny,
	}
	for name, want := range cases {
		if got := ParseFieldType(name); got != want {
			t.Fatalf("ParseFieldType(%q) = %v, want %v", name, got, want)
		}
	}
	for _, typ := range []FieldType{FieldString, FieldInt, FieldFloat, FieldBool, FieldDate} {
		if ParseFieldType(typ.String()) != typ {
			t.Fatalf("%v does not round trip through its name", typ)
		}
	}
}

func TestRestoreValue(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		field Field
		in    any
		want  any
	}{
		{"int from string", Field{Type: FieldInt}, "42", 42},
		{"int truncates float text", Field{Type: FieldInt}, "4.7", 4},
		{"int from float", Field{Type: FieldInt}, 9.0, 9},
		{"int fallback", Field{Type: FieldInt}, "x", 0},
		{"float from string", Field{Type: FieldFloat}, "1.5", 1.5},
		{"float fallback", Field{Type: FieldFloat}, "abc", 0.0},
		{"string from number", Field{Type: FieldString}, 12, "12"},
		{"bool yes", Field{Type: FieldBool}, "Yes", true},
		{"bool on", Field{Type: FieldBool}, "on", true},
		{"bool no", Field{Type: FieldBool}, "no", false},
		{"bool zero", Field{Type: FieldBool}, 0, false},
		{"bool number", Field{Type: FieldBool}, 2, true},
		{"date iso", Field{Type: FieldDate}, "2024-03-01", day},
		{"date format", Field{Type: FieldDate, Format: "02/01/2006"}, "01/03/2024", day},
		{"date unix", Field{Type: FieldDate, Format: DateTimestamp}, float64(day.Unix()), day},
		{"date unix text", Field{Type: FieldDate}, "1709251200", day},
		{"date invalid", Field{Type: FieldDate}, "someday", nil},
		{"nil stays nil", Field{Type: FieldInt}, nil, nil},
		{"any passes through", Field{}, []any{1}, []any{1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := restoreValue(tc.field, tc.in)
			if want, ok := tc.want.(time.Time); ok {
				gotTime, ok := got.(time.Time)
				if !ok || !gotTime.Equal(want) {
					t.Fatalf("expected %v, got %#v", want, got)
				}
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestStoreValue(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		name  string
		field Field
		in    any
		want  any
	}{
		{"date default", Field{Type: FieldDate}, at, "2024-03-01T10:30:00Z"},
		{"date format", Field{Type: FieldDate, Format: "2006-01-02"}, at, "2024-03-01"},
		{"date timestamp", Field{Type: FieldDate, Format: DateTimestamp}, at, at.Unix()},
		{"date timestamp fraction", Field{Type: FieldDate, Format: DateTimestamp}, at.Add(250 * time.Millisecond), float64(at.Unix()) + 0.25},
		{"date non time", Field{Type: FieldDate}, "raw", "raw"},
		{"bool", Field{Type: FieldBool}, "1", true},
		{"int", Field{Type: FieldInt}, 3.0, 3},
		{"float", Field{Type: FieldFloat}, 3, 3.0},
		{"nil", Field{Type: FieldDate}, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := storeValue(tc.field, tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestUndeclaredFieldsPassThrough(t *testing.T) {
	model := NewModel("user", WithField("age", Field{Type: FieldInt}))
	if got := model.RestoreField(nil, "name", 42); got != 42 {
		t.Fatalf("undeclared field must not be converted, got %#v", got)
	}
	if got := model.StoreField(nil, "age", "7"); got != 7 {
		t.Fatalf("declared field converts on store, got %#v", got)
	}
}

func TestFieldValuesRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		name  string
		field Field
		value any
	}{
		{"bool true", Field{Type: FieldBool}, true},
		{"bool false", Field{Type: FieldBool}, false},
		{"int", Field{Type: FieldInt}, 42},
		{"float", Field{Type: FieldFloat}, 2.5},
		{"string", Field{Type: FieldString}, "Jane"},
		{"date iso", Field{Type: FieldDate}, at},
		{"date iso nanos", Field{Type: FieldDate}, at.Add(123456789 * time.Nanosecond)},
		{"date timestamp", Field{Type: FieldDate, Format: DateTimestamp}, at},
		{"date timestamp fraction", Field{Type: FieldDate, Format: DateTimestamp}, at.Add(250 * time.Millisecond)},
		{"date timestamp half", Field{Type: FieldDate, Format: DateTimestamp}, at.Add(500 * time.Millisecond)},
		{"date layout", Field{Type: FieldDate, Format: "2006-01-02"}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := restoreValue(tc.field, storeValue(tc.field, tc.value))
			if want, ok := tc.value.(time.Time); ok {
				gotTime, isTime := got.(time.Time)
				if !isTime || !gotTime.Equal(want) {
					t.Fatalf("expected %v, got %#v", want, got)
				}
				return
			}
			if !reflect.DeepEqual(got, tc.value) {
				t.Fatalf("expected %#v, got %#v", tc.value, got)
			}
		})
	}
}
