package records

import (
	"strings"
	"sync"
)

// Event names shared by records and stores.
const (
	EventChange       = "change"
	EventDirtyChange  = "dirty-change"
	EventDestroy      = "destroy"
	EventAdd          = "add"
	EventRemove       = "remove"
	EventReplace      = "replace"
	EventClear        = "clear"
	EventUpdate       = "update"
	EventItemChange   = "item-change"
	EventLoadingStart = "loading-start"
	EventLoadingEnd   = "loading-end"
	EventLoad         = "load"
	EventSave         = "save"
	EventDelete       = "delete"
	EventIdentify     = "identify"
)

// BeforeEvent returns the vetoable event name emitted ahead of op.
func BeforeEvent(op string) string { return "before-" + op }

// FailedEvent returns the event name emitted when op fails.
func FailedEvent(op string) string { return "failed-" + op }

// ChangeEvent returns the key scoped change event name.
func ChangeEvent(key string) string { return EventChange + "-" + key }

// Event is the payload delivered to handlers. Only the fields relevant to
// the event name are populated.
type Event struct {
	Name   string
	Record *Record
	Store  *Store
	Key    string
	Value  any
	Old    any
	Index  int
	Items  []Item
	Params map[string]any
	Total  int
	Err    error
}

// Handler observes an event.
type Handler func(Event)

// GuardFunc observes a vetoable event; returning false cancels the operation.
type GuardFunc func(Event) bool

type subscription struct {
	id      uint64
	handler Handler
	guard   GuardFunc
	once    bool
}

// Bus is a synchronous, per-owner event channel. Events triggered while the
// bus is suspended are dropped, which lets bulk operations emit a single
// trailing notification.
type Bus struct {
	mu        sync.Mutex
	subs      map[string][]subscription
	nextID    uint64
	suspended int
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: map[string][]subscription{}}
}

// On subscribes handler to name and returns the unsubscribe function.
func (b *Bus) On(name string, handler Handler) func() {
	return b.add(name, subscription{handler: handler})
}

// Once subscribes handler for a single delivery.
func (b *Bus) Once(name string, handler Handler) func() {
	return b.add(name, subscription{handler: handler, once: true})
}

// Guard subscribes a vetoing handler to name.
func (b *Bus) Guard(name string, guard GuardFunc) func() {
	return b.add(name, subscription{guard: guard})
}

func (b *Bus) add(name string, sub subscription) func() {
	name = strings.TrimSpace(name)
	if b == nil || name == "" || (sub.handler == nil && sub.guard == nil) {
		return func() {}
	}
	b.mu.Lock()
	if b.subs == nil {
		b.subs = map[string][]subscription{}
	}
	b.nextID++
	sub.id = b.nextID
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	id := sub.id
	return func() { b.remove(name, id) }
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Has reports whether anything listens to name.
func (b *Bus) Has(name string) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name]) > 0
}

// Trigger delivers event to the subscribers of event.Name in subscription
// order. It returns false when a guard vetoed the event.
func (b *Bus) Trigger(event Event) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	if b.suspended > 0 {
		b.mu.Unlock()
		return true
	}
	subs := append([]subscription(nil), b.subs[event.Name]...)
	b.mu.Unlock()

	allowed := true
	for _, sub := range subs {
		if sub.once {
			b.remove(event.Name, sub.id)
		}
		if sub.guard != nil {
			if !sub.guard(event) {
				allowed = false
			}
			continue
		}
		sub.handler(event)
	}
	return allowed
}

// Suspend stops delivery until a matching Resume.
func (b *Bus) Suspend() {
	b.mu.Lock()
	b.suspended++
	b.mu.Unlock()
}

// Resume re-enables delivery once every Suspend has been matched.
func (b *Bus) Resume() {
	b.mu.Lock()
	if b.suspended > 0 {
		b.suspended--
	}
	b.mu.Unlock()
}

// Suspended reports whether delivery is currently suspended.
func (b *Bus) Suspended() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suspended > 0
}

// Batch runs fn with delivery suspended.
func (b *Bus) Batch(fn func()) {
	b.Suspend()
	defer b.Resume()
	fn()
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subs = map[string][]subscription{}
	b.mu.Unlock()
}
