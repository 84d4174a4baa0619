package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-records/layering"
	"github.com/oklog/ulid/v2"
)

// Result is a normalized response. Record operations fill ID and Data with
// the entity map; store operations fill Data with the item list and Total.
type Result struct {
	RequestID string
	ID        string
	Data      any
	Total     int
	Raw       any
}

// Map returns Data as a map, or nil.
func (r Result) Map() map[string]any {
	m, _ := r.Data.(map[string]any)
	return m
}

// List returns Data as a list. A single map is wrapped.
func (r Result) List() []any {
	switch v := r.Data.(type) {
	case []any:
		return v
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	case map[string]any:
		return []any{v}
	default:
		return nil
	}
}

// Request runs op in scope with id and call data through the full mapping
// pipeline: validate, resolve, default transport path, normalization.
func (m *Model) Request(ctx context.Context, scope Scope, op, id string, data map[string]any) (Result, error) {
	return m.request(ctx, Call{Scope: scope, Op: op, ID: id, Params: data})
}

// Invoke runs the controller operation name with params.
func (m *Model) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	res, err := m.request(ctx, Call{Scope: ScopeController, Op: name, Params: params})
	if err != nil {
		return nil, err
	}
	return res.Raw, nil
}

func (m *Model) request(ctx context.Context, call Call) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.levels(call.Scope, call.Op) == nil {
		return Result{}, &ConfigError{Scope: call.Scope, Op: call.Op, Err: ErrUnknownScope}
	}
	cfg := m.resolved(call.Scope, call.Op)

	if cfg.validate != nil {
		if err := cfg.validate(call); err != nil {
			return Result{}, wrapRemote(call.Scope, call.Op, nil, err)
		}
	}

	if cfg.resolve != nil {
		started := time.Now()
		raw, handled, err := cfg.resolve(ctx, call)
		if handled || err != nil {
			m.logger.LogRequest(RequestLogEvent{
				Scope:    call.Scope,
				Op:       call.Op,
				Resolved: true,
				Duration: time.Since(started),
				Err:      err,
			})
			if err != nil {
				return Result{}, wrapRemote(call.Scope, call.Op, raw, err)
			}
			return m.normalize(call, cfg, raw)
		}
	}

	if cfg.url == "" && cfg.urlFunc == nil {
		return Result{}, &ConfigError{Scope: call.Scope, Op: call.Op, Err: ErrNoURL}
	}

	params := m.buildParams(call, cfg)
	target := cfg.url
	if cfg.urlFunc != nil {
		target = cfg.urlFunc(call)
	}
	target, err := substitutePlaceholders(target, params)
	if err != nil {
		return Result{}, &ConfigError{Scope: call.Scope, Op: call.Op, Err: err}
	}

	req := Request{
		ID:     ulid.Make().String(),
		Scope:  call.Scope,
		Op:     call.Op,
		URL:    target,
		Method: cfg.method,
		Params: params,
	}
	if req.Method == "" {
		req.Method = http.MethodPost
		if call.Op == OpLoad {
			req.Method = http.MethodGet
		}
	}
	if cfg.json != nil && *cfg.json && req.Method != http.MethodGet {
		body, err := json.Marshal(params)
		if err != nil {
			return Result{}, &ConfigError{Scope: call.Scope, Op: call.Op, Err: err}
		}
		req.Body = body
		req.JSON = true
	}

	if m.transport == nil {
		return Result{}, &ConfigError{Scope: call.Scope, Op: call.Op, Err: ErrNoTransport}
	}

	started := time.Now()
	raw, err := m.transport.Do(ctx, req)
	m.logger.LogRequest(RequestLogEvent{
		RequestID: req.ID,
		Scope:     call.Scope,
		Op:        call.Op,
		Method:    req.Method,
		URL:       req.URL,
		Duration:  time.Since(started),
		Err:       err,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, wrapRemote(call.Scope, call.Op, raw, fmt.Errorf("%w: %w", ErrAborted, err))
		}
		return Result{}, wrapRemote(call.Scope, call.Op, raw, err)
	}
	res, err := m.normalize(call, cfg, raw)
	res.RequestID = req.ID
	return res, err
}

// buildParams merges request parameters. Precedence, weakest first: default
// data (the id under the id property), model extra, profile extra,
// operation extra, call data.
func (m *Model) buildParams(call Call, cfg resolvedOperation) map[string]any {
	layers := make([]map[string]any, 0, len(cfg.extras)+3)
	layers = append(layers, call.Params)
	if call.Data != nil {
		if cfg.dataProp != "" {
			layers = append(layers, map[string]any{cfg.dataProp: call.Data})
		} else {
			layers = append(layers, call.Data)
		}
	}
	layers = append(layers, cfg.extras...)
	if call.ID != "" {
		layers = append(layers, map[string]any{cfg.idProp: call.ID})
	}
	return layering.MergeMaps(layers...)
}

var placeholderPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// substitutePlaceholders replaces :name segments with escaped values from
// params and removes the consumed keys. Any placeholder left is an error.
func substitutePlaceholders(target string, params map[string]any) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(target, func(match string) string {
		name := match[1:]
		value, ok := params[name]
		if !ok || value == nil {
			missing = append(missing, name)
			return match
		}
		delete(params, name)
		return url.PathEscape(paramString(value))
	})
	if len(missing) > 0 {
		return target, fmt.Errorf("%w: %s in %q", ErrUnresolvedPlaceholder, strings.Join(missing, ", "), target)
	}
	return out, nil
}

func paramString(value any) string {
	if id, ok := NormalizeID(value); ok {
		return id
	}
	return fmt.Sprint(value)
}
