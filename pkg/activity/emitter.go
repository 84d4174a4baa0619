package activity

import (
	"context"
	"strings"
)

// Config controls activity emission for a model.
type Config struct {
	Enabled bool
	// Channel is stamped on events that carry none. Defaults to "records".
	Channel string
	// Verbs limits emission to the listed verbs. Empty emits every verb.
	Verbs []string
}

// Emitter builds sync events and fans them out to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	verbs   map[string]struct{}
}

// NewEmitter constructs an emitter. Nil hooks are dropped; an emitter left
// without hooks is disabled.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = "records"
	}
	var live Hooks
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	var verbs map[string]struct{}
	if len(cfg.Verbs) > 0 {
		verbs = make(map[string]struct{}, len(cfg.Verbs))
		for _, verb := range cfg.Verbs {
			verbs[strings.TrimSpace(verb)] = struct{}{}
		}
	}
	return &Emitter{
		hooks:   live,
		enabled: cfg.Enabled && len(live) > 0,
		channel: channel,
		verbs:   verbs,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Wants reports whether verb passes the configured verb filter.
func (e *Emitter) Wants(verb string) bool {
	if !e.Enabled() {
		return false
	}
	if e.verbs == nil {
		return true
	}
	_, ok := e.verbs[verb]
	return ok
}

// Emit forwards event to the hooks, stamping the default channel.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Wants(strings.TrimSpace(event.Verb)) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

// Record emits a record event. The actor comes from ctx unless input has one.
func (e *Emitter) Record(ctx context.Context, verb string, input SyncEventInput) error {
	if !e.Wants(verb) {
		return nil
	}
	return e.Emit(ctx, BuildRecordEvent(verb, withContextActor(ctx, input)))
}

// Store emits a store-wide event. The actor comes from ctx unless input has one.
func (e *Emitter) Store(ctx context.Context, verb string, input SyncEventInput) error {
	if !e.Wants(verb) {
		return nil
	}
	return e.Emit(ctx, BuildStoreEvent(verb, withContextActor(ctx, input)))
}

func withContextActor(ctx context.Context, input SyncEventInput) SyncEventInput {
	if input.Actor != (Actor{}) {
		return input
	}
	if actor, ok := ActorFromContext(ctx); ok {
		input.Actor = actor
	}
	return input
}
