package records

import (
	"context"

	"github.com/goliatone/go-records/pkg/activity"
)

func (r *Record) checkRemote() error {
	if r.destroyed {
		return ErrDestroyed
	}
	if !r.model.IsTyped() {
		return ErrUntyped
	}
	return nil
}

// Load fetches the record by id and imports the response.
func (r *Record) Load(ctx context.Context) error {
	if err := r.checkRemote(); err != nil {
		return err
	}
	if r.id == "" {
		return ErrNoID
	}
	if !r.bus.Trigger(Event{Name: BeforeEvent(OpLoad), Record: r}) {
		return ErrAborted
	}

	r.loading = true
	res, err := r.model.request(ctx, Call{Scope: ScopeRecord, Op: OpLoad, ID: r.id})
	r.loading = false
	if err != nil {
		r.bus.Trigger(Event{Name: FailedEvent(OpLoad), Record: r, Err: err})
		return err
	}
	if r.destroyed {
		return ErrDestroyed
	}
	if data := res.Map(); data != nil {
		r.ImportData(data)
	}
	r.bus.Trigger(Event{Name: EventLoad, Record: r})
	r.model.emitRecordActivity(ctx, activity.VerbRecordLoaded, r.id, res.RequestID)
	return nil
}

// Save sends keys (every field when empty) plus extra params. A record
// without id is created; the server issued id is assigned on success.
func (r *Record) Save(ctx context.Context, keys []string, extra map[string]any) error {
	if err := r.checkRemote(); err != nil {
		return err
	}
	if !r.bus.Trigger(Event{Name: BeforeEvent(OpSave), Record: r, Params: extra}) {
		return ErrAborted
	}

	creating := r.id == ""
	call := Call{
		Scope:  ScopeRecord,
		Op:     OpSave,
		ID:     r.id,
		Data:   r.StoreData(keys...),
		Params: extra,
	}
	res, err := r.model.request(ctx, call)
	if err != nil {
		r.bus.Trigger(Event{Name: FailedEvent(OpSave), Record: r, Err: err})
		return err
	}
	if r.destroyed {
		return ErrDestroyed
	}
	if creating && res.ID != "" {
		r.assignID(res.ID)
	}

	importing := r.model.importOnSave()
	if creating {
		importing = r.model.importOnCreate()
	}
	data := res.Map()
	if importing && data != nil {
		r.ImportData(data)
	} else {
		wasDirty := r.IsDirty()
		r.markClean()
		r.dirtyTransition(wasDirty)
	}

	r.bus.Trigger(Event{Name: EventSave, Record: r})
	verb := activity.VerbRecordSaved
	if creating {
		verb = activity.VerbRecordCreated
	}
	r.model.emitRecordActivity(ctx, verb, r.id, res.RequestID)
	return nil
}

// Delete removes the record remotely and destroys it on success.
func (r *Record) Delete(ctx context.Context) error {
	if err := r.checkRemote(); err != nil {
		return err
	}
	if r.id == "" {
		return ErrNoID
	}
	if !r.bus.Trigger(Event{Name: BeforeEvent(OpDelete), Record: r}) {
		return ErrAborted
	}

	res, err := r.model.request(ctx, Call{Scope: ScopeRecord, Op: OpDelete, ID: r.id})
	if err != nil {
		r.bus.Trigger(Event{Name: FailedEvent(OpDelete), Record: r, Err: err})
		return err
	}
	r.bus.Trigger(Event{Name: EventDelete, Record: r})
	r.model.emitRecordActivity(ctx, activity.VerbRecordDeleted, r.id, res.RequestID)
	r.Destroy()
	return nil
}
