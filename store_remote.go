package records

import (
	"context"
	"fmt"

	"github.com/goliatone/go-records/layering"
	"github.com/goliatone/go-records/pkg/activity"
)

// LoadOptions adjust how a load merges into the store.
type LoadOptions struct {
	// Append adds the batch after the current items.
	Append bool
	// Prepend adds the batch before the current items.
	Prepend bool
	// KeepOnEmpty leaves the store untouched when the batch is empty.
	KeepOnEmpty bool
}

// Load fetches items with params merged over the store's extra params and
// pagination. Starting a load cancels the one in flight; the superseded call
// returns ErrLoadSuperseded and never touches the store.
func (s *Store) Load(ctx context.Context, params map[string]any, opts LoadOptions) error {
	if s.local {
		return ErrLocalStore
	}
	if s.IsDestroyed() {
		return ErrDestroyed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	merged := layering.MergeMaps(params, s.extraParams)
	if s.pageSize > 0 {
		if _, ok := merged[s.model.startParam()]; !ok {
			merged[s.model.startParam()] = s.start
		}
		if _, ok := merged[s.model.limitParam()]; !ok {
			merged[s.model.limitParam()] = s.pageSize
		}
	}
	if !s.bus.Trigger(Event{Name: BeforeEvent(OpLoad), Store: s, Params: merged}) {
		return ErrAborted
	}
	s.lastParams = s.pageParams(params)

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.loadSeq++
	seq := s.loadSeq
	s.loadCancel = cancel
	s.loading = true
	s.mu.Unlock()

	s.bus.Trigger(Event{Name: EventLoadingStart, Store: s, Params: merged})
	res, err := s.model.request(loadCtx, Call{Scope: ScopeStore, Op: OpLoad, Params: merged})

	s.mu.Lock()
	current := seq == s.loadSeq && !s.destroyed
	if current {
		s.loading = false
		s.loadCancel = nil
		s.ingesting++
	}
	s.mu.Unlock()
	if !current {
		return ErrLoadSuperseded
	}

	err = s.ingest(ctx, res, err, opts)
	s.endIngest()
	return err
}

// pageParams strips the pagination keys from params. The store's own start
// and page size drive later page loads; a start given by the caller becomes
// the store's offset.
func (s *Store) pageParams(params map[string]any) map[string]any {
	out := layering.MergeMaps(params)
	if s.pageSize <= 0 {
		return out
	}
	if start, ok := toInt(out[s.model.startParam()]); ok && start >= 0 {
		s.start = start
	}
	delete(out, s.model.startParam())
	delete(out, s.model.limitParam())
	return out
}

// ingest applies a load result. A Destroy issued while it runs, from a
// handler or another goroutine, is completed by endIngest.
func (s *Store) ingest(ctx context.Context, res Result, err error, opts LoadOptions) error {
	s.bus.Trigger(Event{Name: EventLoadingEnd, Store: s})
	if s.IsDestroyed() {
		return ErrDestroyed
	}
	if err != nil {
		s.bus.Trigger(Event{Name: FailedEvent(OpLoad), Store: s, Err: err})
		return err
	}

	batch := res.List()
	if opts.KeepOnEmpty && len(batch) == 0 {
		s.loaded = true
		s.bus.Trigger(Event{Name: EventLoad, Store: s, Total: s.totalLength})
		return nil
	}

	var added []Item
	s.bus.Batch(func() {
		// replaced items are released only after the batch is placed, so
		// records present in both keep their instance
		var stale []Item
		if s.clearOnLoad && !opts.Append && !opts.Prepend {
			stale = s.items
			s.items = nil
			s.byID = map[string]Item{}
		}
		if opts.Prepend {
			added = s.insertMany(0, batch, mutateConfig{silent: true})
		} else {
			added = s.insertMany(len(s.items), batch, mutateConfig{silent: true})
		}
		for _, item := range stale {
			if indexOf(s.items, item) < 0 {
				s.release(item, true)
			}
		}
	})
	if s.IsDestroyed() {
		return ErrDestroyed
	}
	s.totalLength = res.Total
	s.loaded = true
	s.Update()
	s.bus.Trigger(Event{Name: EventLoad, Store: s, Items: added, Total: s.totalLength})
	s.model.emitStoreActivity(ctx, activity.VerbStoreLoaded, s.id, len(added), res.RequestID)
	return nil
}

// endIngest closes an ingest and tears the store down when it was destroyed
// in the meantime.
func (s *Store) endIngest() {
	s.mu.Lock()
	s.ingesting--
	teardown := s.ingesting == 0 && s.destroyed && !s.tornDown
	if teardown {
		s.tornDown = true
	}
	s.mu.Unlock()
	if teardown {
		s.teardown()
	}
}

// Abort cancels the load in flight and reports whether there was one.
func (s *Store) Abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loading {
		return false
	}
	if s.loadCancel != nil {
		s.loadCancel()
	}
	s.loadSeq++
	s.loadCancel = nil
	s.loading = false
	return true
}

// Reload repeats the last load with the current pagination.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx, s.lastParams, LoadOptions{})
}

// Save sends every dirty record keyed by id, or by "new:<index>" for
// records without one, and re-imports the returned data into the live
// records.
func (s *Store) Save(ctx context.Context) error {
	if s.local {
		return ErrLocalStore
	}
	if !s.model.IsTyped() {
		return ErrUntyped
	}
	if s.IsDestroyed() {
		return ErrDestroyed
	}

	sent := map[string]*Record{}
	payload := map[string]any{}
	for i, item := range s.items {
		rec, ok := item.(*Record)
		if !ok || !rec.IsDirty() {
			continue
		}
		key := rec.ID()
		if key == "" {
			key = fmt.Sprintf("new:%d", i)
		}
		sent[key] = rec
		payload[key] = rec.StoreData()
	}
	if len(sent) == 0 {
		return ErrNothingDirty
	}
	if !s.bus.Trigger(Event{Name: BeforeEvent(OpSave), Store: s, Params: payload}) {
		return ErrAborted
	}

	res, err := s.model.request(ctx, Call{Scope: ScopeStore, Op: OpSave, Data: payload})
	if err != nil {
		s.bus.Trigger(Event{Name: FailedEvent(OpSave), Store: s, Err: err})
		return err
	}

	returned := savedData(res.Data, s.model.IDProp())
	for key, rec := range sent {
		if data, ok := returned[key]; ok {
			rec.ImportData(data)
			continue
		}
		wasDirty := rec.IsDirty()
		rec.markClean()
		rec.dirtyTransition(wasDirty)
	}
	s.reindex()
	s.Update()
	s.bus.Trigger(Event{Name: EventSave, Store: s})
	s.model.emitStoreActivity(ctx, activity.VerbStoreSaved, s.id, len(sent), res.RequestID)
	return nil
}

// savedData indexes a store save response. A map keyed by id and a list of
// objects carrying the id property are both accepted.
func savedData(data any, idProp string) map[string]map[string]any {
	out := map[string]map[string]any{}
	switch v := data.(type) {
	case map[string]any:
		for key, value := range v {
			if obj, ok := value.(map[string]any); ok {
				out[key] = obj
			}
		}
	case []any:
		for _, value := range v {
			obj, ok := value.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := NormalizeID(obj[idProp]); ok {
				out[id] = obj
			}
		}
	}
	return out
}

func (s *Store) reindex() {
	byID := make(map[string]Item, len(s.items))
	for _, item := range s.items {
		if id := item.ItemID(); id != "" {
			byID[id] = item
		}
	}
	s.byID = byID
}

// DeleteIDs removes the items locally, then deletes them remotely. The local
// removal is kept even when the remote call fails.
func (s *Store) DeleteIDs(ctx context.Context, ids ...string) error {
	if s.local {
		return ErrLocalStore
	}
	if s.IsDestroyed() {
		return ErrDestroyed
	}
	if len(ids) == 0 {
		return nil
	}
	params := map[string]any{"ids": append([]string(nil), ids...)}
	if !s.bus.Trigger(Event{Name: BeforeEvent(OpDelete), Store: s, Params: params}) {
		return ErrAborted
	}

	var removed []Item
	for _, id := range ids {
		item, ok := s.byID[id]
		if !ok {
			continue
		}
		idx := indexOf(s.items, item)
		s.removeRaw(idx, true)
		removed = append(removed, item)
	}
	if len(removed) > 0 {
		s.afterRemove(mutateConfig{}, -1, removed)
	}

	res, err := s.model.request(ctx, Call{Scope: ScopeStore, Op: OpDelete, Params: params})
	if err != nil {
		s.bus.Trigger(Event{Name: FailedEvent(OpDelete), Store: s, Err: err, Items: removed})
		return err
	}
	s.bus.Trigger(Event{Name: EventDelete, Store: s, Items: removed})
	s.model.emitStoreActivity(ctx, activity.VerbStoreDeleted, s.id, len(ids), res.RequestID)
	return nil
}

// DeleteItems deletes the given items by id. Items without id are skipped.
func (s *Store) DeleteItems(ctx context.Context, items ...Item) error {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := RecordID(item); id != "" {
			ids = append(ids, id)
		}
	}
	return s.DeleteIDs(ctx, ids...)
}

// Destroy aborts any load, releases every item and detaches from a source.
// It may be called from any goroutine. When a load is applying its result,
// the teardown runs once that load finishes and the result is discarded.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	s.loadSeq++
	s.loading = false
	deferred := s.ingesting > 0
	if !deferred {
		s.tornDown = true
	}
	s.mu.Unlock()
	if !deferred {
		s.teardown()
	}
}

func (s *Store) teardown() {
	s.unbindSource()
	s.clearItems()
	s.current = nil
	s.currentByID = map[string]Item{}
	s.bus.Trigger(Event{Name: EventDestroy, Store: s})
	s.bus.Clear()
}
