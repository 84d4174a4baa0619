package records

// bindSource subscribes to the source store and performs the first sync.
func (s *Store) bindSource() {
	src := s.source
	s.local = true
	s.sourceUnsub = []func(){
		src.On(EventUpdate, func(Event) { s.syncFromSource() }),
		src.On(EventDestroy, func(Event) {
			s.unbindSource()
			s.Clear()
		}),
	}
	s.syncFromSource()
}

func (s *Store) unbindSource() {
	for _, unsub := range s.sourceUnsub {
		unsub()
	}
	s.sourceUnsub = nil
	s.source = nil
}

// Source returns the mirrored store, or nil.
func (s *Store) Source() *Store { return s.source }

// syncFromSource replaces the items with the source's items under one batch
// and re-derives the view with this store's own filter and sort.
func (s *Store) syncFromSource() {
	if s.source == nil || s.IsDestroyed() {
		return
	}
	items := s.source.Items()
	s.bus.Batch(func() {
		stale := s.items
		s.items = nil
		s.byID = map[string]Item{}
		for _, item := range items {
			s.placeRaw(len(s.items), item)
		}
		for _, item := range stale {
			if indexOf(s.items, item) < 0 {
				s.release(item, true)
			}
		}
	})
	s.totalLength = s.source.TotalLen()
	s.loaded = s.source.IsLoaded()
	s.Update()
}
