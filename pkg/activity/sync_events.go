package activity

import (
	"context"
	"strings"
	"time"
)

// Verbs emitted for record and store lifecycle events.
const (
	VerbRecordLoaded  = "record.loaded"
	VerbRecordCreated = "record.created"
	VerbRecordSaved   = "record.saved"
	VerbRecordDeleted = "record.deleted"
	VerbStoreLoaded   = "store.loaded"
	VerbStoreSaved    = "store.saved"
	VerbStoreDeleted  = "store.deleted"
)

// Actor identifies who triggered a sync operation.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

type actorKey struct{}

// WithActor attaches actor to ctx so emitted events carry it.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// SyncEventInput describes a record or store operation that completed.
type SyncEventInput struct {
	Actor      Actor
	ObjectType string
	ObjectID   string
	StoreID    string
	RequestID  string
	Count      int
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildRecordEvent constructs an activity event for a single record.
func BuildRecordEvent(verb string, input SyncEventInput) Event {
	return buildSyncEvent(verb, input)
}

// BuildStoreEvent constructs an activity event for a store-wide operation.
// The object id falls back to the store id, then to the entity type.
func BuildStoreEvent(verb string, input SyncEventInput) Event {
	if strings.TrimSpace(input.ObjectID) == "" {
		input.ObjectID = input.StoreID
	}
	return buildSyncEvent(verb, input)
}

func buildSyncEvent(verb string, input SyncEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.StoreID != "" {
		metadata = ensureMetadata(metadata)
		metadata["store_id"] = input.StoreID
	}
	if input.RequestID != "" {
		metadata = ensureMetadata(metadata)
		metadata["request_id"] = input.RequestID
	}
	if input.Count > 0 {
		metadata = ensureMetadata(metadata)
		metadata["count"] = input.Count
	}

	objectType := strings.TrimSpace(input.ObjectType)
	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.Actor.ActorID),
		UserID:     strings.TrimSpace(input.Actor.UserID),
		TenantID:   strings.TrimSpace(input.Actor.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
