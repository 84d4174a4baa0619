package records

import (
	"sync"

	"github.com/goliatone/go-records/layering"
	"github.com/google/uuid"
)

// Store is an ordered, identity-mapped collection of items with a derived
// filtered and sorted view. Mutations, including a Load applying its result,
// must happen on one goroutine. Abort, IsLoading and Destroy may be called
// from others; a Load left waiting on the transport by another goroutine is
// superseded without touching the store.
type Store struct {
	id    string
	model *Model
	bus   *Bus

	items       []Item
	byID        map[string]Item
	current     []Item
	currentByID map[string]Item

	totalLength int
	start       int
	pageSize    int
	maxLength   int
	local       bool
	clearOnLoad bool
	loaded      bool
	extraParams map[string]any
	lastParams  map[string]any

	filter  func(Item) bool
	sortCmp CompareFunc
	sortDir SortDir

	subs    map[*Record][]func()
	initial []any
	evicted []Item

	source      *Store
	sourceUnsub []func()

	mu         sync.Mutex
	loadSeq    uint64
	loadCancel func()
	loading    bool
	ingesting  int
	destroyed  bool
	tornDown   bool
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithStoreID sets the store identifier used for record ownership.
func WithStoreID(id string) StoreOption {
	return func(s *Store) {
		if id != "" {
			s.id = id
		}
	}
}

// WithPageSize enables pagination with n items per page.
func WithPageSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithStart sets the initial pagination offset.
func WithStart(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.start = n
		}
	}
}

// WithLocal marks the store as local only; remote operations are refused.
func WithLocal(v bool) StoreOption {
	return func(s *Store) {
		s.local = v
	}
}

// WithClearOnLoad controls whether a plain load replaces the contents.
// Defaults to true.
func WithClearOnLoad(v bool) StoreOption {
	return func(s *Store) {
		s.clearOnLoad = v
	}
}

// WithMaxLength caps the number of items held.
func WithMaxLength(n int) StoreOption {
	return func(s *Store) {
		if n >= 0 {
			s.maxLength = n
		}
	}
}

// WithExtraParams adds parameters sent with every load.
func WithExtraParams(params map[string]any) StoreOption {
	return func(s *Store) {
		s.extraParams = layering.MergeMaps(params, s.extraParams)
	}
}

// WithInitialData ingests raw items once the store is built.
func WithInitialData(raw ...any) StoreOption {
	return func(s *Store) {
		s.initial = append(s.initial, raw...)
	}
}

// WithSource makes the store a mirror of src: it holds the same items with
// its own filter and sort and resyncs whenever src updates.
func WithSource(src *Store) StoreOption {
	return func(s *Store) {
		if src != nil {
			s.source = src
		}
	}
}

// NewStore constructs a store for model. A nil model yields an untyped store.
func NewStore(model *Model, opts ...StoreOption) *Store {
	if model == nil {
		model = NewModel("")
	}
	s := &Store{
		id:          uuid.NewString(),
		model:       model,
		bus:         NewBus(),
		byID:        map[string]Item{},
		currentByID: map[string]Item{},
		clearOnLoad: true,
		subs:        map[*Record][]func(){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.source != nil {
		s.bindSource()
	}
	if len(s.initial) > 0 {
		initial := s.initial
		s.initial = nil
		s.AddMany(initial)
	}
	return s
}

// ID returns the store identifier.
func (s *Store) ID() string { return s.id }

// Model returns the store's model.
func (s *Store) Model() *Model { return s.model }

// Events returns the store's event bus.
func (s *Store) Events() *Bus { return s.bus }

// On subscribes to a store event.
func (s *Store) On(name string, handler Handler) func() { return s.bus.On(name, handler) }

// Len is the number of items, ignoring the filter.
func (s *Store) Len() int { return len(s.items) }

// CurrentLen is the number of items in the derived view.
func (s *Store) CurrentLen() int { return len(s.current) }

// TotalLen is the total reported by the server on the last load.
func (s *Store) TotalLen() int { return s.totalLength }

// At returns the item at view position i, or nil.
func (s *Store) At(i int) Item {
	if i < 0 || i >= len(s.current) {
		return nil
	}
	return s.current[i]
}

// ByID returns the item with id, ignoring the filter.
func (s *Store) ByID(id string) Item {
	return s.byID[id]
}

// CurrentByID returns the item with id if it is part of the view.
func (s *Store) CurrentByID(id string) Item {
	return s.currentByID[id]
}

// Has reports whether an item with id is held.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// IndexOf returns the view position of item, or -1.
func (s *Store) IndexOf(item Item) int {
	return indexOf(s.current, item)
}

// IndexOfID returns the view position of the item with id, or -1.
func (s *Store) IndexOfID(id string) int {
	item, ok := s.currentByID[id]
	if !ok {
		return -1
	}
	return indexOf(s.current, item)
}

// Items returns a copy of every item in insertion order, ignoring the filter.
func (s *Store) Items() []Item {
	return append([]Item(nil), s.items...)
}

// ToArray returns a copy of the derived view.
func (s *Store) ToArray() []Item {
	return append([]Item(nil), s.current...)
}

// Each visits the view in order until fn returns false.
func (s *Store) Each(fn func(i int, item Item) bool) {
	for i, item := range s.ToArray() {
		if !fn(i, item) {
			return
		}
	}
}

func (s *Store) IsLoaded() bool { return s.loaded }
func (s *Store) IsLocal() bool  { return s.local }

// IsLoading reports whether a load is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// IsDestroyed reports whether Destroy was called.
func (s *Store) IsDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func indexOf(items []Item, item Item) int {
	if item == nil {
		return -1
	}
	for i, candidate := range items {
		if candidate == item {
			return i
		}
	}
	return -1
}
