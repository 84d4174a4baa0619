package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-records/pkg/activity"
	"github.com/goliatone/go-records/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return nil
}

func TestHookNotifyMapsSyncEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	event := activity.BuildRecordEvent(activity.VerbRecordSaved, activity.SyncEventInput{
		Actor:      activity.Actor{ActorID: actorID.String(), UserID: "not-a-uuid"},
		ObjectType: "user",
		ObjectID:   "42",
		StoreID:    "s-1",
		Channel:    "records",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil uuid for malformed user id, got %s", record.UserID)
	}
	if record.Verb != activity.VerbRecordSaved || record.ObjectType != "user" || record.ObjectID != "42" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Data["store_id"] != "s-1" {
		t.Fatalf("expected metadata passthrough got %v", record.Data)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
}

func TestHookNotifyFiltersVerbs(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink, Verbs: []string{activity.VerbRecordDeleted}}

	_ = hook.Notify(context.Background(), activity.Event{Verb: activity.VerbRecordSaved, ObjectType: "user", ObjectID: "1"})
	_ = hook.Notify(context.Background(), activity.Event{Verb: activity.VerbRecordDeleted, ObjectType: "user", ObjectID: "1"})

	if len(sink.records) != 1 || sink.records[0].Verb != activity.VerbRecordDeleted {
		t.Fatalf("expected only deleted verb forwarded, got %+v", sink.records)
	}
}

func TestHookNotifySkipsIncompleteEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}
