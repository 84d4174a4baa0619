package records

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/goliatone/go-records/internal/hydrate"
)

// Record is one entity instance with change tracking. A Record is not safe
// for concurrent mutation; confine it to the goroutine that owns its stores.
type Record struct {
	model *Model
	id    string

	data     map[string]any
	orig     map[string]any
	modified map[string]struct{}

	loaded     bool
	loading    bool
	destroyed  bool
	standalone bool

	owners map[string]struct{}
	bus    *Bus
}

// RecordOption configures a Record at construction.
type RecordOption func(*recordConfig)

type recordConfig struct {
	id         any
	data       map[string]any
	standalone bool
}

// WithID assigns the record identifier.
func WithID(id any) RecordOption {
	return func(c *recordConfig) {
		c.id = id
	}
}

// WithData imports initial wire data.
func WithData(data map[string]any) RecordOption {
	return func(c *recordConfig) {
		c.data = data
	}
}

// Standalone controls whether the record survives losing its last store.
// Records created directly are standalone; records a store materializes are not.
func Standalone(v bool) RecordOption {
	return func(c *recordConfig) {
		c.standalone = v
	}
}

// NewRecord constructs a record of model. Initial data goes through
// ImportData, so the record starts clean.
func NewRecord(model *Model, opts ...RecordOption) *Record {
	cfg := recordConfig{standalone: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if model == nil {
		model = NewModel("")
	}
	rec := &Record{
		model:      model,
		data:       map[string]any{},
		orig:       map[string]any{},
		modified:   map[string]struct{}{},
		standalone: cfg.standalone,
		owners:     map[string]struct{}{},
		bus:        NewBus(),
	}
	if id, ok := NormalizeID(cfg.id); ok {
		rec.assignID(id)
	}
	if cfg.data != nil {
		rec.ImportData(cfg.data)
	}
	return rec
}

// ID returns the identifier, empty until assigned.
func (r *Record) ID() string { return r.id }

// Model returns the record's model.
func (r *Record) Model() *Model { return r.model }

// Events returns the record's event bus.
func (r *Record) Events() *Bus { return r.bus }

// On subscribes to a record event.
func (r *Record) On(name string, handler Handler) func() { return r.bus.On(name, handler) }

// ItemID implements Item.
func (r *Record) ItemID() string { return r.id }

// ItemData implements Item. The returned map is the live value set and must
// not be mutated by callers.
func (r *Record) ItemData() map[string]any { return r.data }

// IsDirty reports whether any field changed since the last load or save.
func (r *Record) IsDirty() bool { return len(r.modified) > 0 }

func (r *Record) IsLoaded() bool    { return r.loaded }
func (r *Record) IsLoading() bool   { return r.loading }
func (r *Record) IsDestroyed() bool { return r.destroyed }
func (r *Record) IsStandalone() bool {
	return r.standalone
}

// Get returns the application value of key.
func (r *Record) Get(key string) any {
	if key == r.model.IDProp() && r.id != "" {
		if v, ok := r.data[key]; ok {
			return v
		}
		return r.id
	}
	return r.data[key]
}

// Set coerces value through the field rules and stores it. A value loosely
// equal to the current one is ignored. It reports whether the value changed.
func (r *Record) Set(key string, value any) bool {
	if r.destroyed {
		return false
	}
	value = r.model.RestoreField(r, key, value)
	if key == r.model.IDProp() {
		id, ok := NormalizeID(value)
		if !ok {
			return false
		}
		if r.id != "" && r.id != id {
			return false
		}
		r.assignID(id)
	}
	old, had := r.data[key]
	if had && looseEqual(old, value) {
		return false
	}
	if !had && value == nil {
		return false
	}
	r.data[key] = value

	wasDirty := r.IsDirty()
	if orig, ok := r.orig[key]; ok && looseEqual(orig, value) {
		delete(r.modified, key)
	} else {
		r.modified[key] = struct{}{}
	}

	evt := Event{Record: r, Key: key, Value: value, Old: old}
	evt.Name = EventChange
	r.bus.Trigger(evt)
	evt.Name = ChangeEvent(key)
	r.bus.Trigger(evt)
	r.dirtyTransition(wasDirty)
	return true
}

// SetData sets every key of values.
func (r *Record) SetData(values map[string]any) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		r.Set(key, values[key])
	}
}

// GetData returns a copy of the application values, limited to keys when given.
func (r *Record) GetData(keys ...string) map[string]any {
	if len(keys) == 0 {
		out := cloneData(r.data)
		if r.id != "" {
			if _, ok := out[r.model.IDProp()]; !ok {
				out[r.model.IDProp()] = r.id
			}
		}
		return out
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if v, ok := r.data[key]; ok {
			out[key] = v
		}
	}
	return out
}

// StoreData returns the wire form of the values, limited to keys when given.
func (r *Record) StoreData(keys ...string) map[string]any {
	values := r.GetData(keys...)
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = r.model.StoreField(r, key, value)
	}
	return out
}

// ImportData coerces wire values into the record, snapshots them as the
// clean state and marks the record loaded. Keys absent from data keep
// their current value. Once assigned, the id is never overwritten.
func (r *Record) ImportData(data map[string]any) {
	if r.destroyed {
		return
	}
	idProp := r.model.IDProp()
	for key, value := range data {
		if key == idProp {
			id, ok := NormalizeID(value)
			if r.id != "" && (!ok || id != r.id) {
				continue
			}
			if ok {
				r.assignID(id)
			}
		}
		r.data[key] = r.model.RestoreField(r, key, value)
	}
	wasDirty := r.IsDirty()
	r.markClean()
	r.loaded = true
	r.dirtyTransition(wasDirty)
}

// Revert restores the last clean snapshot.
func (r *Record) Revert() {
	if !r.IsDirty() {
		return
	}
	r.data = cloneData(r.orig)
	r.modified = map[string]struct{}{}
	r.dirtyTransition(true)
}

// Modified lists the keys changed since the last clean snapshot.
func (r *Record) Modified() []string {
	keys := make([]string, 0, len(r.modified))
	for key := range r.modified {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Decode unmarshals the application values into dst, a struct pointer.
func (r *Record) Decode(dst any) error {
	return hydrate.Into(hydrate.Context{Type: r.model.Type, ID: r.id}, r.GetData(), dst)
}

// DecodeAs decodes rec into a new T.
func DecodeAs[T any](rec *Record) (T, error) {
	var zero T
	if rec == nil {
		return zero, fmt.Errorf("records: decode nil record")
	}
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{Type: rec.model.Type, ID: rec.id}, rec.GetData())
}

// AttachStore records storeID as an owner.
func (r *Record) AttachStore(storeID string) {
	if r.destroyed || storeID == "" {
		return
	}
	r.owners[storeID] = struct{}{}
}

// DetachStore drops storeID as an owner. A non-standalone record left
// without owners is destroyed.
func (r *Record) DetachStore(storeID string) {
	if r.destroyed {
		return
	}
	delete(r.owners, storeID)
	if len(r.owners) == 0 && !r.standalone {
		r.Destroy()
	}
}

// Owners lists the ids of the stores holding the record.
func (r *Record) Owners() []string {
	out := make([]string, 0, len(r.owners))
	for id := range r.owners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Destroy evicts the record from the identity cache, notifies listeners and
// drops every subscription. Further calls are no-ops.
func (r *Record) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	if r.id != "" && r.model.IsTyped() {
		if cached, ok := r.model.cache.Get(r.model.Type, r.id); ok && cached == r {
			r.model.cache.Evict(r.model.Type, r.id)
		}
	}
	r.bus.Trigger(Event{Name: EventDestroy, Record: r})
	r.bus.Clear()
	r.owners = map[string]struct{}{}
}

func (r *Record) assignID(id string) {
	if r.id != "" {
		return
	}
	r.id = id
	if r.model.IsTyped() {
		if _, ok := r.model.cache.Get(r.model.Type, id); !ok {
			r.model.cache.Put(r)
		}
	}
	r.bus.Trigger(Event{Name: EventIdentify, Record: r, Value: id})
}

func (r *Record) markClean() {
	r.orig = cloneData(r.data)
	r.modified = map[string]struct{}{}
}

func (r *Record) dirtyTransition(wasDirty bool) {
	if dirty := r.IsDirty(); dirty != wasDirty {
		r.bus.Trigger(Event{Name: EventDirtyChange, Record: r, Value: dirty, Old: wasDirty})
	}
}

// looseEqual compares values the way a form layer would: numbers by value,
// times by instant, everything else by its textual form.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return fa == fb
		}
	}
	switch a.(type) {
	case map[string]any, []any:
		return reflect.DeepEqual(a, b)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func numeric(v any) (float64, bool) {
	switch v.(type) {
	case string, bool:
		return 0, false
	}
	return toFloat(v)
}
