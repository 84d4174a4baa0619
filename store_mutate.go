package records

// MutateOption adjusts a single store mutation.
type MutateOption func(*mutateConfig)

type mutateConfig struct {
	unfiltered bool
	silent     bool
}

// Unfiltered makes indices refer to the unfiltered item order instead of the view.
func Unfiltered() MutateOption {
	return func(c *mutateConfig) { c.unfiltered = true }
}

// Silent skips events and view re-derivation for the mutation.
func Silent() MutateOption {
	return func(c *mutateConfig) { c.silent = true }
}

func applyMutateOptions(opts []MutateOption) mutateConfig {
	cfg := mutateConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Add appends raw and returns the resulting item, or nil if raw cannot be
// held by this store.
func (s *Store) Add(raw any, opts ...MutateOption) Item {
	cfg := applyMutateOptions(opts)
	cfg.unfiltered = true
	return s.insert(len(s.items), raw, cfg)
}

// AddMany appends every entry of raws and emits a single add event.
func (s *Store) AddMany(raws []any, opts ...MutateOption) []Item {
	cfg := applyMutateOptions(opts)
	return s.insertMany(len(s.items), raws, cfg)
}

// Insert places raw at index, a view position unless Unfiltered is given.
func (s *Store) Insert(index int, raw any, opts ...MutateOption) (Item, error) {
	cfg := applyMutateOptions(opts)
	rawIndex, err := s.insertionIndex(index, cfg)
	if err != nil {
		return nil, err
	}
	cfg.unfiltered = true
	return s.insert(rawIndex, raw, cfg), nil
}

// InsertMany places raws starting at index and emits a single add event.
func (s *Store) InsertMany(index int, raws []any, opts ...MutateOption) ([]Item, error) {
	cfg := applyMutateOptions(opts)
	rawIndex, err := s.insertionIndex(index, cfg)
	if err != nil {
		return nil, err
	}
	return s.insertMany(rawIndex, raws, cfg), nil
}

// Replace swaps old for raw at the same position.
func (s *Store) Replace(old Item, raw any, opts ...MutateOption) (Item, error) {
	cfg := applyMutateOptions(opts)
	idx := indexOf(s.items, old)
	if idx < 0 {
		return nil, ErrIndexRange
	}
	item := s.toItem(raw)
	if item == nil {
		return nil, ErrUntyped
	}
	if item == old {
		return old, nil
	}
	s.removeRaw(idx, true)
	s.place(idx, item)
	evicted := s.takeEvicted(nil)
	if !cfg.silent {
		s.announceEvicted(evicted)
		s.bus.Trigger(Event{Name: EventReplace, Store: s, Index: idx, Value: item, Old: old, Items: []Item{item}})
		s.Update()
	}
	return item, nil
}

// RemoveAt removes the item at index, a view position unless Unfiltered is given.
func (s *Store) RemoveAt(index int, opts ...MutateOption) (Item, error) {
	cfg := applyMutateOptions(opts)
	rawIndex, err := s.resolveIndex(index, cfg)
	if err != nil {
		return nil, err
	}
	item := s.removeRaw(rawIndex, true)
	s.afterRemove(cfg, rawIndex, []Item{item})
	return item, nil
}

// RemoveRange removes positions [from, to). Positions are resolved to items
// before anything is removed.
func (s *Store) RemoveRange(from, to int, opts ...MutateOption) ([]Item, error) {
	cfg := applyMutateOptions(opts)
	length := len(s.current)
	if cfg.unfiltered {
		length = len(s.items)
	}
	if from < 0 || to > length || from > to {
		return nil, ErrIndexRange
	}
	targets := make([]Item, 0, to-from)
	for i := from; i < to; i++ {
		if cfg.unfiltered {
			targets = append(targets, s.items[i])
		} else {
			targets = append(targets, s.current[i])
		}
	}
	first := -1
	for _, item := range targets {
		idx := indexOf(s.items, item)
		if idx < 0 {
			continue
		}
		if first < 0 || idx < first {
			first = idx
		}
		s.removeRaw(idx, true)
	}
	s.afterRemove(cfg, first, targets)
	return targets, nil
}

// Remove removes item and reports whether it was held.
func (s *Store) Remove(item Item, opts ...MutateOption) bool {
	cfg := applyMutateOptions(opts)
	idx := indexOf(s.items, item)
	if idx < 0 {
		return false
	}
	s.removeRaw(idx, true)
	s.afterRemove(cfg, idx, []Item{item})
	return true
}

// RemoveID removes the item with id and returns it.
func (s *Store) RemoveID(id string, opts ...MutateOption) Item {
	item, ok := s.byID[id]
	if !ok {
		return nil
	}
	s.Remove(item, opts...)
	return item
}

// Clear removes every item, detaching records from this store.
func (s *Store) Clear(opts ...MutateOption) {
	cfg := applyMutateOptions(opts)
	s.clearItems()
	if !cfg.silent {
		s.bus.Trigger(Event{Name: EventClear, Store: s})
		s.Update()
	}
}

func (s *Store) clearItems() {
	items := s.items
	s.items = nil
	s.byID = map[string]Item{}
	for _, item := range items {
		s.release(item, true)
	}
}

func (s *Store) afterRemove(cfg mutateConfig, index int, items []Item) {
	if cfg.silent {
		return
	}
	s.bus.Trigger(Event{Name: EventRemove, Store: s, Index: index, Items: items})
	s.Update()
}

func (s *Store) insertMany(rawIndex int, raws []any, cfg mutateConfig) []Item {
	placed := make(map[Item]struct{}, len(raws))
	idx := rawIndex
	for _, raw := range raws {
		item := s.place(idx, raw)
		if item == nil {
			continue
		}
		placed[item] = struct{}{}
		idx = indexOf(s.items, item) + 1
	}
	// a repeated id keeps only its last entry, and entries evicted by a
	// later one in the same batch were never announced
	added := make([]Item, 0, len(placed))
	for _, item := range s.items {
		if _, ok := placed[item]; ok {
			added = append(added, item)
		}
	}
	evicted := s.takeEvicted(placed)
	if !cfg.silent && len(added) > 0 {
		s.announceEvicted(evicted)
		s.bus.Trigger(Event{Name: EventAdd, Store: s, Index: rawIndex, Items: added})
		s.Update()
	}
	return added
}

func (s *Store) insert(rawIndex int, raw any, cfg mutateConfig) Item {
	item := s.place(rawIndex, raw)
	if item == nil {
		return nil
	}
	evicted := s.takeEvicted(nil)
	if !cfg.silent {
		s.announceEvicted(evicted)
		s.bus.Trigger(Event{Name: EventAdd, Store: s, Index: indexOf(s.items, item), Items: []Item{item}})
		s.Update()
	}
	return item
}

// takeEvicted drains the items dropped by maxLength, leaving out those in skip.
func (s *Store) takeEvicted(skip map[Item]struct{}) []Item {
	evicted := s.evicted
	s.evicted = nil
	out := evicted[:0]
	for _, item := range evicted {
		if _, ok := skip[item]; !ok {
			out = append(out, item)
		}
	}
	return out
}

func (s *Store) announceEvicted(items []Item) {
	if len(items) == 0 {
		return
	}
	s.bus.Trigger(Event{Name: EventRemove, Store: s, Index: -1, Items: items})
}

// place converts raw and inserts it at rawIndex, replacing any held item with
// the same id and enforcing maxLength.
func (s *Store) place(rawIndex int, raw any) Item {
	item := s.toItem(raw)
	if item == nil {
		return nil
	}
	if id := item.ItemID(); id != "" {
		if existing, ok := s.byID[id]; ok {
			idx := indexOf(s.items, existing)
			s.removeRaw(idx, existing != item)
			if idx < rawIndex {
				rawIndex--
			}
		}
	}
	if rawIndex < 0 {
		rawIndex = 0
	}
	if rawIndex > len(s.items) {
		rawIndex = len(s.items)
	}
	s.placeRaw(rawIndex, item)
	s.enforceMaxLength(rawIndex)
	return item
}

func (s *Store) placeRaw(rawIndex int, item Item) {
	s.items = append(s.items, nil)
	copy(s.items[rawIndex+1:], s.items[rawIndex:])
	s.items[rawIndex] = item
	if id := item.ItemID(); id != "" {
		s.byID[id] = item
	}
	s.retain(item)
}

// enforceMaxLength evicts from the end farther from the insertion point.
// Evicted items are queued for the remove event of the enclosing add; a
// silent add, such as a load, drops them without one.
func (s *Store) enforceMaxLength(inserted int) {
	for s.maxLength > 0 && len(s.items) > s.maxLength {
		last := len(s.items) - 1
		if inserted >= last-inserted {
			s.evicted = append(s.evicted, s.removeRaw(0, true))
			inserted--
		} else {
			s.evicted = append(s.evicted, s.removeRaw(last, true))
		}
	}
}

// removeRaw removes position idx. detach=false keeps ownership, used when
// the same record is re-placed.
func (s *Store) removeRaw(idx int, detach bool) Item {
	if idx < 0 || idx >= len(s.items) {
		return nil
	}
	item := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	if id := item.ItemID(); id != "" && s.byID[id] == item {
		delete(s.byID, id)
	}
	if detach {
		s.release(item, true)
	}
	return item
}

func (s *Store) resolveIndex(index int, cfg mutateConfig) (int, error) {
	if cfg.unfiltered {
		if index < 0 || index >= len(s.items) {
			return -1, ErrIndexRange
		}
		return index, nil
	}
	if index < 0 || index >= len(s.current) {
		return -1, ErrIndexRange
	}
	return indexOf(s.items, s.current[index]), nil
}

// insertionIndex maps a view position to a raw insertion point. The view end
// maps to the raw end.
func (s *Store) insertionIndex(index int, cfg mutateConfig) (int, error) {
	if cfg.unfiltered {
		if index < 0 || index > len(s.items) {
			return -1, ErrIndexRange
		}
		return index, nil
	}
	if index < 0 || index > len(s.current) {
		return -1, ErrIndexRange
	}
	if index == len(s.current) {
		return len(s.items), nil
	}
	return indexOf(s.items, s.current[index]), nil
}

// toItem materializes raw. Typed stores reuse the cached record for a known
// id and refresh it when it holds no local changes.
func (s *Store) toItem(raw any) Item {
	switch v := raw.(type) {
	case nil:
		return nil
	case *Record:
		if v.IsDestroyed() {
			return nil
		}
		return v
	case *Plain:
		if s.model.IsTyped() {
			return s.toItem(v.Data)
		}
		return v
	case Plain:
		return s.toItem(&v)
	case map[string]any:
		if !s.model.IsTyped() {
			id, _ := NormalizeID(v[s.model.IDProp()])
			return &Plain{ID: id, Data: v}
		}
		if id, ok := NormalizeID(v[s.model.IDProp()]); ok {
			if rec, ok := s.model.cache.Get(s.model.Type, id); ok && !rec.IsDestroyed() {
				if !rec.IsDirty() {
					rec.ImportData(v)
				}
				return rec
			}
		}
		return NewRecord(s.model, WithData(v), Standalone(false))
	default:
		if s.model.IsTyped() {
			return nil
		}
		return &Plain{Data: map[string]any{"value": raw}}
	}
}

// retain attaches a record to this store and listens to it.
func (s *Store) retain(item Item) {
	rec, ok := item.(*Record)
	if !ok {
		return
	}
	rec.AttachStore(s.id)
	if _, subscribed := s.subs[rec]; subscribed {
		return
	}
	s.subs[rec] = []func(){
		rec.On(EventChange, s.onRecordChange),
		rec.On(EventDestroy, s.onRecordDestroy),
		rec.On(EventIdentify, s.onRecordIdentified),
	}
}

// release undoes retain. A record whose last owner lets go is destroyed.
func (s *Store) release(item Item, detach bool) {
	rec, ok := item.(*Record)
	if !ok {
		return
	}
	for _, unsub := range s.subs[rec] {
		unsub()
	}
	delete(s.subs, rec)
	if detach {
		rec.DetachStore(s.id)
	}
}

func (s *Store) onRecordChange(evt Event) {
	s.bus.Trigger(Event{Name: EventItemChange, Store: s, Record: evt.Record, Key: evt.Key, Value: evt.Value, Old: evt.Old})
	if s.filter != nil || s.sortCmp != nil {
		s.Update()
	}
}

func (s *Store) onRecordDestroy(evt Event) {
	idx := indexOf(s.items, evt.Record)
	if idx < 0 {
		return
	}
	s.removeRaw(idx, false)
	s.release(evt.Record, false)
	s.afterRemove(mutateConfig{}, idx, []Item{evt.Record})
}

// onRecordIdentified indexes a record that received its id after insertion.
func (s *Store) onRecordIdentified(evt Event) {
	rec := evt.Record
	if rec == nil || rec.ID() == "" {
		return
	}
	if _, ok := s.byID[rec.ID()]; ok {
		return
	}
	s.byID[rec.ID()] = rec
	if indexOf(s.current, rec) >= 0 {
		s.currentByID[rec.ID()] = rec
	}
}
