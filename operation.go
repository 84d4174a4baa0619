package records

import (
	"context"
	"encoding/json"
	"strings"
)

// Scope selects one of a model's operation profiles.
type Scope string

const (
	ScopeRecord     Scope = "record"
	ScopeStore      Scope = "store"
	ScopeController Scope = "controller"
)

// Operation names used by records and stores.
const (
	OpLoad   = "load"
	OpSave   = "save"
	OpDelete = "delete"
)

// Call describes one logical operation before it becomes a transport request.
type Call struct {
	Scope  Scope
	Op     string
	ID     string
	Data   map[string]any
	Params map[string]any
}

// URLFunc produces an operation url from the call.
type URLFunc func(call Call) string

// ValidateFunc vetoes a call by returning an error.
type ValidateFunc func(call Call) error

// ResolveFunc short-circuits the transport. handled=false falls through to
// the default request path.
type ResolveFunc func(ctx context.Context, call Call) (raw any, handled bool, err error)

// SuccessFunc decides whether a raw response is successful.
type SuccessFunc func(raw any) bool

// OperationConfig configures a request. The same shape is used at the
// operation, profile and model level; unset values fall through in that order.
type OperationConfig struct {
	URL         string
	URLFunc     URLFunc
	Method      string
	Extra       map[string]any
	IDProp      string
	DataProp    string
	RootProp    string
	TotalProp   string
	SuccessProp string
	SuccessFunc SuccessFunc
	JSON        *bool
	Validate    ValidateFunc
	Resolve     ResolveFunc
}

// URL builds an operation config holding only a url.
func URL(url string) OperationConfig {
	return OperationConfig{URL: url}
}

// Bool returns a pointer to v, for OperationConfig.JSON.
func Bool(v bool) *bool { return &v }

// Profile is the operation table of one scope plus its profile-level settings.
type Profile struct {
	OperationConfig
	Ops map[string]OperationConfig

	// record profile
	ImportOnCreate *bool
	ImportOnSave   *bool

	// store profile
	StartParam string
	LimitParam string
}

func (p Profile) op(name string) OperationConfig {
	if p.Ops == nil {
		return OperationConfig{}
	}
	return p.Ops[name]
}

// levels returns the fallback chain for an operation: operation, profile, model.
func (m *Model) levels(scope Scope, op string) []OperationConfig {
	switch scope {
	case ScopeRecord:
		return []OperationConfig{m.Record.op(op), m.Record.OperationConfig, m.Defaults}
	case ScopeStore:
		return []OperationConfig{m.Store.op(op), m.Store.OperationConfig, m.Defaults}
	case ScopeController:
		var opCfg OperationConfig
		if m.Controller != nil {
			opCfg = m.Controller[op]
		}
		return []OperationConfig{opCfg, m.Defaults}
	default:
		return nil
	}
}

func (m *Model) resolved(scope Scope, op string) resolvedOperation {
	levels := m.levels(scope, op)
	out := resolvedOperation{}
	pickString := func(get func(OperationConfig) string) string {
		for _, cfg := range levels {
			if v := get(cfg); v != "" {
				return v
			}
		}
		return ""
	}
	out.url = pickString(func(c OperationConfig) string { return c.URL })
	out.method = strings.ToUpper(pickString(func(c OperationConfig) string { return c.Method }))
	out.idProp = pickString(func(c OperationConfig) string { return c.IDProp })
	out.dataProp = pickString(func(c OperationConfig) string { return c.DataProp })
	out.rootProp = pickString(func(c OperationConfig) string { return c.RootProp })
	out.totalProp = pickString(func(c OperationConfig) string { return c.TotalProp })
	out.successProp = pickString(func(c OperationConfig) string { return c.SuccessProp })
	for _, cfg := range levels {
		if out.successFunc == nil && cfg.SuccessFunc != nil {
			out.successFunc = cfg.SuccessFunc
		}
		if out.json == nil && cfg.JSON != nil {
			out.json = cfg.JSON
		}
		if out.validate == nil && cfg.Validate != nil {
			out.validate = cfg.Validate
		}
		if out.resolve == nil && cfg.Resolve != nil {
			out.resolve = cfg.Resolve
		}
	}
	// a url at a stronger level wins over a url func at a weaker one
	for _, cfg := range levels {
		if cfg.URL != "" {
			out.urlFunc = nil
			break
		}
		if cfg.URLFunc != nil {
			out.url = ""
			out.urlFunc = cfg.URLFunc
			break
		}
	}
	if out.idProp == "" {
		out.idProp = "id"
	}
	// extras ordered strongest first: operation, profile, model
	for _, cfg := range levels {
		out.extras = append(out.extras, cfg.Extra)
	}
	return out
}

type resolvedOperation struct {
	url         string
	urlFunc     URLFunc
	method      string
	extras      []map[string]any
	idProp      string
	dataProp    string
	rootProp    string
	totalProp   string
	successProp string
	successFunc SuccessFunc
	json        *bool
	validate    ValidateFunc
	resolve     ResolveFunc
}

// Trace captures which configuration level supplied a setting.
type Trace struct {
	Scope   Scope        `json:"scope"`
	Op      string       `json:"op"`
	Setting string       `json:"setting"`
	Value   any          `json:"value,omitempty"`
	Layers  []Provenance `json:"layers"`
}

// Provenance details how one configuration level contributed to a trace.
type Provenance struct {
	Level string `json:"level"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

var traceGetters = map[string]func(OperationConfig) (any, bool){
	"url":      func(c OperationConfig) (any, bool) { return c.URL, c.URL != "" || c.URLFunc != nil },
	"method":   func(c OperationConfig) (any, bool) { return c.Method, c.Method != "" },
	"id":       func(c OperationConfig) (any, bool) { return c.IDProp, c.IDProp != "" },
	"data":     func(c OperationConfig) (any, bool) { return c.DataProp, c.DataProp != "" },
	"root":     func(c OperationConfig) (any, bool) { return c.RootProp, c.RootProp != "" },
	"total":    func(c OperationConfig) (any, bool) { return c.TotalProp, c.TotalProp != "" },
	"success":  func(c OperationConfig) (any, bool) { return c.SuccessProp, c.SuccessProp != "" || c.SuccessFunc != nil },
	"extra":    func(c OperationConfig) (any, bool) { return c.Extra, len(c.Extra) > 0 },
	"validate": func(c OperationConfig) (any, bool) { return nil, c.Validate != nil },
	"resolve":  func(c OperationConfig) (any, bool) { return nil, c.Resolve != nil },
	"json": func(c OperationConfig) (any, bool) {
		if c.JSON == nil {
			return nil, false
		}
		return *c.JSON, true
	},
}

// Trace reports, level by level, where setting is defined for scope/op. The
// effective Value comes from the first level that defines it.
func (m *Model) Trace(scope Scope, op, setting string) Trace {
	trace := Trace{Scope: scope, Op: op, Setting: setting}
	get, ok := traceGetters[setting]
	if !ok {
		return trace
	}
	names := []string{"operation", "profile", "model"}
	if scope == ScopeController {
		names = []string{"operation", "model"}
	}
	effective := false
	for i, cfg := range m.levels(scope, op) {
		value, found := get(cfg)
		trace.Layers = append(trace.Layers, Provenance{Level: names[i], Value: value, Found: found})
		if found && !effective {
			trace.Value = value
			effective = true
		}
	}
	return trace
}

// ToJSON serialises the trace for logging.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}
