package records

import (
	"context"
	"sort"

	"github.com/goliatone/go-records/pkg/activity"
)

// Model is the schema and remote-access descriptor shared by every Record
// and Store of one entity type. An empty Type marks the model as untyped:
// stores then hold Plain payloads and records skip the identity cache.
//
// Exported fields may be assigned by the owning application after
// construction; runtime collaborators are set through ModelOptions.
type Model struct {
	Type       string
	Fields     map[string]Field
	Defaults   OperationConfig
	Record     Profile
	Store      Profile
	Controller map[string]OperationConfig

	transport  Transport
	cache      IdentityCache
	evaluator  Evaluator
	logger     RequestLogger
	evalLogger EvaluatorLogger
	programs   ProgramCache
	functions  *FunctionRegistry
	activity   *activity.Emitter
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// NewModel constructs a model for typ. Without WithIdentityCache the model
// owns a private cache; share one through a Registry or WithIdentityCache.
func NewModel(typ string, opts ...ModelOption) *Model {
	m := &Model{
		Type:   typ,
		Fields: map[string]Field{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.cache == nil {
		m.cache = NewMemoryIdentityCache()
	}
	if m.logger == nil {
		m.logger = noopRequestLogger{}
	}
	if m.evalLogger == nil {
		m.evalLogger = noopEvaluatorLogger{}
	}
	return m
}

// WithField declares a field conversion rule.
func WithField(name string, field Field) ModelOption {
	return func(m *Model) {
		if m.Fields == nil {
			m.Fields = map[string]Field{}
		}
		m.Fields[name] = field
	}
}

// WithDefaults sets the model-level operation settings.
func WithDefaults(cfg OperationConfig) ModelOption {
	return func(m *Model) {
		m.Defaults = cfg
	}
}

// WithRecordProfile sets the record operation profile.
func WithRecordProfile(profile Profile) ModelOption {
	return func(m *Model) {
		m.Record = profile
	}
}

// WithStoreProfile sets the store operation profile.
func WithStoreProfile(profile Profile) ModelOption {
	return func(m *Model) {
		m.Store = profile
	}
}

// WithControllerOp registers an ad-hoc controller operation.
func WithControllerOp(name string, cfg OperationConfig) ModelOption {
	return func(m *Model) {
		if m.Controller == nil {
			m.Controller = map[string]OperationConfig{}
		}
		m.Controller[name] = cfg
	}
}

// WithTransport sets the transport used for remote operations.
func WithTransport(transport Transport) ModelOption {
	return func(m *Model) {
		m.transport = transport
	}
}

// WithIdentityCache shares an identity cache with other models.
func WithIdentityCache(cache IdentityCache) ModelOption {
	return func(m *Model) {
		if cache != nil {
			m.cache = cache
		}
	}
}

// WithRequestLogger attaches a request logger.
func WithRequestLogger(logger RequestLogger) ModelOption {
	return func(m *Model) {
		if logger == nil {
			m.logger = noopRequestLogger{}
			return
		}
		m.logger = logger
	}
}

// WithEvaluator selects the engine used by Store.FilterExpr.
func WithEvaluator(e Evaluator) ModelOption {
	return func(m *Model) {
		m.evaluator = e
	}
}

// WithEvaluatorLogger attaches a logger for filter expression failures.
func WithEvaluatorLogger(logger EvaluatorLogger) ModelOption {
	return func(m *Model) {
		m.evalLogger = logger
	}
}

// WithProgramCache caches compiled filter expressions for the default evaluator.
func WithProgramCache(cache ProgramCache) ModelOption {
	return func(m *Model) {
		m.programs = cache
	}
}

// WithFunctionRegistry exposes helper functions to filter expressions.
func WithFunctionRegistry(registry *FunctionRegistry) ModelOption {
	return func(m *Model) {
		if registry == nil {
			return
		}
		m.functions = registry.Clone()
	}
}

// WithActivityHooks forwards record and store lifecycle events to hooks.
func WithActivityHooks(hooks activity.Hooks, cfg activity.Config) ModelOption {
	return func(m *Model) {
		cfg.Enabled = true
		m.activity = activity.NewEmitter(hooks, cfg)
	}
}

// IsTyped reports whether the model names an entity type.
func (m *Model) IsTyped() bool {
	return m != nil && m.Type != ""
}

// Cache returns the identity cache records of this model register in.
func (m *Model) Cache() IdentityCache {
	return m.cache
}

// Transport returns the configured transport, or nil.
func (m *Model) Transport() Transport {
	return m.transport
}

// IDProp returns the id property name of the record profile.
func (m *Model) IDProp() string {
	return m.resolved(ScopeRecord, OpLoad).idProp
}

func (m *Model) importOnCreate() bool {
	return m.Record.ImportOnCreate == nil || *m.Record.ImportOnCreate
}

func (m *Model) importOnSave() bool {
	return m.Record.ImportOnSave == nil || *m.Record.ImportOnSave
}

func (m *Model) startParam() string {
	if m.Store.StartParam != "" {
		return m.Store.StartParam
	}
	return "start"
}

func (m *Model) limitParam() string {
	if m.Store.LimitParam != "" {
		return m.Store.LimitParam
	}
	return "limit"
}

// filterEvaluator returns the configured evaluator or builds the expr default.
func (m *Model) filterEvaluator() Evaluator {
	if m.evaluator != nil {
		return m.evaluator
	}
	var opts []ExprEvaluatorOption
	if m.programs != nil {
		opts = append(opts, ExprWithProgramCache(m.programs))
	}
	if m.functions != nil {
		opts = append(opts, ExprWithFunctionRegistry(m.functions))
	}
	m.evaluator = NewExprEvaluator(opts...)
	return m.evaluator
}

func (m *Model) emitRecordActivity(ctx context.Context, verb, id, requestID string) {
	if m == nil || !m.activity.Wants(verb) {
		return
	}
	// delivery is best effort; hook failures never fail the operation
	_ = m.activity.Record(ctx, verb, activity.SyncEventInput{
		ObjectType: m.Type,
		ObjectID:   id,
		RequestID:  requestID,
	})
}

func (m *Model) emitStoreActivity(ctx context.Context, verb, storeID string, count int, requestID string) {
	if m == nil || !m.activity.Wants(verb) {
		return
	}
	_ = m.activity.Store(ctx, verb, activity.SyncEventInput{
		ObjectType: m.Type,
		StoreID:    storeID,
		Count:      count,
		RequestID:  requestID,
	})
}

// FieldDescriptor describes a declared field.
type FieldDescriptor struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Format string `json:"format,omitempty"`
}

// Describe lists declared fields sorted by name.
func (m *Model) Describe() []FieldDescriptor {
	names := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]FieldDescriptor, 0, len(names))
	for _, name := range names {
		field := m.Fields[name]
		out = append(out, FieldDescriptor{Name: name, Type: field.Type.String(), Format: field.Format})
	}
	return out
}
