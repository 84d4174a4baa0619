package records

import (
	"sort"
	"strings"
	"time"
)

// SortDir is the direction of a store sort.
type SortDir int

const (
	Asc SortDir = iota
	Desc
)

// ParseSortDir maps "desc"/"descending" to Desc and anything else to Asc.
func ParseSortDir(s string) SortDir {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending", "-1":
		return Desc
	default:
		return Asc
	}
}

// CompareFunc orders two items; negative means a sorts first.
type CompareFunc func(a, b Item) int

// CompareValues orders two field values. Numbers compare numerically, times
// chronologically, everything else as case-insensitive strings. nil sorts first.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(strings.ToLower(stringValue(a)), strings.ToLower(stringValue(b)))
}

// FieldComparator orders items by the value of field.
func FieldComparator(field string) CompareFunc {
	return func(a, b Item) int {
		return CompareValues(fieldValue(a, field), fieldValue(b, field))
	}
}

func fieldValue(item Item, field string) any {
	if rec, ok := item.(*Record); ok {
		return rec.Get(field)
	}
	data := item.ItemData()
	if data == nil {
		return nil
	}
	return data[field]
}

// sortItems stable-sorts items in place.
func sortItems(items []Item, cmp CompareFunc, dir SortDir) {
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
}
