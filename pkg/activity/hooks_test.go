package activity

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeEventTrimsAndClones(t *testing.T) {
	meta := map[string]any{"store_id": "s-1"}
	evt := Event{
		Verb:       " record.saved ",
		ActorID:    " actor ",
		ObjectType: " user ",
		ObjectID:   " 42 ",
		Channel:    " records ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "record.saved" || got.ObjectType != "user" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.Channel != "records" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["store_id"] = "changed"
	if meta["store_id"] != "s-1" {
		t.Fatalf("expected original metadata untouched: %+v", meta)
	}
}

func TestHooksNotifyDropsIncompleteEvents(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbRecordSaved}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	hooks := Hooks{
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbRecordDeleted, ObjectType: "user", ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected capture to see event, got %d", len(capture.Events))
	}
}

func TestEmitterAppliesDefaultChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if !emitter.Enabled() {
		t.Fatalf("expected emitter enabled")
	}
	if err := emitter.Emit(context.Background(), Event{Verb: VerbStoreLoaded, ObjectType: "user", ObjectID: "s-1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "records" {
		t.Fatalf("expected default channel, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterDisabledWithoutHooks(t *testing.T) {
	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("nil emitter must be disabled")
	}
	emitter := NewEmitter(Hooks{nil}, Config{Enabled: true})
	if emitter.Enabled() {
		t.Fatalf("emitter with only nil hooks must be disabled")
	}
}

func TestEmitterVerbFilter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Verbs: []string{VerbRecordDeleted}})
	ctx := context.Background()

	_ = emitter.Record(ctx, VerbRecordSaved, SyncEventInput{ObjectType: "user", ObjectID: "1"})
	_ = emitter.Record(ctx, VerbRecordDeleted, SyncEventInput{ObjectType: "user", ObjectID: "1"})
	if got := capture.Verbs(); len(got) != 1 || got[0] != VerbRecordDeleted {
		t.Fatalf("expected only the deleted verb, got %v", got)
	}
	if emitter.Wants(VerbStoreLoaded) {
		t.Fatalf("filtered verbs are not wanted")
	}
}

func TestEmitterTakesActorFromContext(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})
	ctx := WithActor(context.Background(), Actor{ActorID: "a-1", TenantID: "t-1"})

	if err := emitter.Store(ctx, VerbStoreLoaded, SyncEventInput{ObjectType: "user", StoreID: "s-1", Count: 2}); err != nil {
		t.Fatalf("store: %v", err)
	}
	explicit := SyncEventInput{Actor: Actor{ActorID: "a-2"}, ObjectType: "user", ObjectID: "9"}
	if err := emitter.Record(ctx, VerbRecordSaved, explicit); err != nil {
		t.Fatalf("record: %v", err)
	}

	if capture.Events[0].ActorID != "a-1" || capture.Events[0].ObjectID != "s-1" || capture.Events[0].Metadata["count"] != 2 {
		t.Fatalf("unexpected store event %+v", capture.Events[0])
	}
	if capture.Events[1].ActorID != "a-2" {
		t.Fatalf("explicit actor wins over the context, got %+v", capture.Events[1])
	}
	capture.Reset()
	if len(capture.Verbs()) != 0 {
		t.Fatalf("reset drops events")
	}
}
