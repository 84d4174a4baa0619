package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	records "github.com/goliatone/go-records"
	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown rows and routes.
var ErrNotFound = errors.New("memory: not found")

// Option configures a Backend.
type Option func(*Backend)

// WithIDProp sets the id property name. Defaults to "id".
func WithIDProp(prop string) Option {
	return func(b *Backend) {
		if prop != "" {
			b.idProp = prop
		}
	}
}

// WithClock replaces time.Now for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator replaces uuid generation for created rows.
func WithIDGenerator(next func() string) Option {
	return func(b *Backend) {
		if next != nil {
			b.newID = next
		}
	}
}

// WithLatency delays every response, honouring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) {
		b.latency = d
	}
}

// Backend is an in-memory REST resource server.
type Backend struct {
	mu          sync.RWMutex
	collections map[string]*collection
	idProp      string
	now         func() time.Time
	newID       func() string
	latency     time.Duration

	failMu   sync.Mutex
	failures []error
	requests []records.Request
}

type collection struct {
	order []string
	rows  map[string]map[string]any
}

// New constructs an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		collections: map[string]*collection{},
		idProp:      "id",
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Seed stores rows in name as-is. Rows without id get one assigned.
func (b *Backend) Seed(name string, rows ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.collection(name)
	for _, row := range rows {
		stored := cloneRow(row)
		id, ok := records.NormalizeID(stored[b.idProp])
		if !ok {
			id = b.newID()
		}
		stored[b.idProp] = id
		col.put(id, stored)
	}
}

// Row returns a copy of the stored row.
func (b *Backend) Row(name, id string) (map[string]any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	col, ok := b.collections[name]
	if !ok {
		return nil, false
	}
	row, ok := col.rows[id]
	if !ok {
		return nil, false
	}
	return cloneRow(row), true
}

// Len returns the number of rows in name.
func (b *Backend) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if col, ok := b.collections[name]; ok {
		return len(col.order)
	}
	return 0
}

// FailNext makes the next request fail with err.
func (b *Backend) FailNext(err error) {
	b.failMu.Lock()
	b.failures = append(b.failures, err)
	b.failMu.Unlock()
}

// Requests returns the requests received so far.
func (b *Backend) Requests() []records.Request {
	b.failMu.Lock()
	defer b.failMu.Unlock()
	return append([]records.Request(nil), b.requests...)
}

// Do implements records.Transport.
func (b *Backend) Do(ctx context.Context, req records.Request) (any, error) {
	b.failMu.Lock()
	b.requests = append(b.requests, req)
	var injected error
	if len(b.failures) > 0 {
		injected = b.failures[0]
		b.failures = b.failures[1:]
	}
	b.failMu.Unlock()

	if b.latency > 0 {
		timer := time.NewTimer(b.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if injected != nil {
		return nil, injected
	}

	params := req.Params
	if req.Body != nil {
		params = map[string]any{}
		if err := json.Unmarshal(req.Body, &params); err != nil {
			return nil, &records.StatusError{Status: http.StatusBadRequest, URL: req.URL, Body: err.Error()}
		}
	}
	return b.route(req.Method, req.URL, params)
}

func (b *Backend) route(method, target string, params map[string]any) (any, error) {
	path := target
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+3:]
		if j := strings.Index(path, "/"); j >= 0 {
			path = path[j:]
		} else {
			path = "/"
		}
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, notFound(target)
	}
	name := parts[0]
	method = strings.ToUpper(method)

	switch {
	case len(parts) == 1 && method == http.MethodGet:
		return b.list(name, params), nil
	case len(parts) == 1 && method == http.MethodPost:
		return b.create(name, params), nil
	case len(parts) == 2 && parts[1] == "batch" && method == http.MethodPost:
		return b.batch(name, params), nil
	case len(parts) == 2 && parts[1] == "delete" && method == http.MethodPost:
		return b.deleteMany(name, params), nil
	case len(parts) == 2 && method == http.MethodGet:
		return b.read(name, parts[1], target)
	case len(parts) == 2 && (method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch):
		return b.update(name, parts[1], params, target)
	case len(parts) == 2 && method == http.MethodDelete,
		len(parts) == 3 && parts[2] == "delete" && method == http.MethodPost:
		return b.delete(name, parts[1], target)
	}
	return nil, notFound(target)
}

func (b *Backend) list(name string, params map[string]any) map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	col := b.collections[name]
	rows := []any{}
	if col != nil {
		for _, id := range col.order {
			row := col.rows[id]
			if matches(row, params) {
				rows = append(rows, cloneRow(row))
			}
		}
	}
	total := len(rows)
	start := intParam(params, "start", 0)
	limit := intParam(params, "limit", 0)
	if start > len(rows) {
		start = len(rows)
	}
	rows = rows[start:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return map[string]any{"success": true, "items": rows, "total": total}
}

func (b *Backend) read(name, id, target string) (any, error) {
	row, ok := b.Row(name, id)
	if !ok {
		return nil, notFound(target)
	}
	return map[string]any{"success": true, "data": row}, nil
}

func (b *Backend) create(name string, params map[string]any) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := payload(params)
	id, ok := records.NormalizeID(row[b.idProp])
	if !ok {
		id = b.newID()
	}
	row[b.idProp] = id
	stored := b.stamp(row, nil)
	b.collection(name).put(id, stored)
	return map[string]any{"success": true, "data": cloneRow(stored)}
}

func (b *Backend) update(name, id string, params map[string]any, target string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.collection(name)
	existing, ok := col.rows[id]
	if !ok {
		return nil, notFound(target)
	}
	row := payload(params)
	row[b.idProp] = id
	stored := b.stamp(row, existing)
	col.put(id, stored)
	return map[string]any{"success": true, "data": cloneRow(stored)}, nil
}

func (b *Backend) delete(name, id, target string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.collection(name)
	if _, ok := col.rows[id]; !ok {
		return nil, notFound(target)
	}
	col.remove(id)
	return map[string]any{"success": true}, nil
}

// batch saves every entry of the payload keyed by id or "new:<n>" and
// answers with the stored rows under the same keys.
func (b *Backend) batch(name string, params map[string]any) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.collection(name)
	saved := map[string]any{}
	data := payload(params)
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		row, ok := data[key].(map[string]any)
		if !ok {
			continue
		}
		row = cloneRow(row)
		id := key
		if strings.HasPrefix(key, "new:") {
			if given, ok := records.NormalizeID(row[b.idProp]); ok {
				id = given
			} else {
				id = b.newID()
			}
		}
		row[b.idProp] = id
		stored := b.stamp(row, col.rows[id])
		col.put(id, stored)
		saved[key] = cloneRow(stored)
	}
	return map[string]any{"success": true, "data": saved}
}

func (b *Backend) deleteMany(name string, params map[string]any) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	col := b.collection(name)
	removed := 0
	for _, id := range idList(params["ids"]) {
		if _, ok := col.rows[id]; ok {
			col.remove(id)
			removed++
		}
	}
	return map[string]any{"success": true, "removed": removed}
}

// stamp merges row over existing and bumps the server maintained fields.
func (b *Backend) stamp(row, existing map[string]any) map[string]any {
	out := cloneRow(existing)
	for key, value := range row {
		out[key] = value
	}
	version := 0
	if existing != nil {
		if v, ok := existing["version"].(int); ok {
			version = v
		}
	}
	out["version"] = version + 1
	out["updated_at"] = b.now().UTC().Format(time.RFC3339)
	return out
}

func (b *Backend) collection(name string) *collection {
	col, ok := b.collections[name]
	if !ok {
		col = &collection{rows: map[string]map[string]any{}}
		b.collections[name] = col
	}
	return col
}

func (c *collection) put(id string, row map[string]any) {
	if _, ok := c.rows[id]; !ok {
		c.order = append(c.order, id)
	}
	c.rows[id] = row
}

func (c *collection) remove(id string) {
	delete(c.rows, id)
	for i, candidate := range c.order {
		if candidate == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// payload unwraps a "data" envelope when the request nests the row.
func payload(params map[string]any) map[string]any {
	if nested, ok := params["data"].(map[string]any); ok {
		return cloneRow(nested)
	}
	return cloneRow(params)
}

var reservedParams = map[string]struct{}{"start": {}, "limit": {}}

func matches(row, params map[string]any) bool {
	for key, want := range params {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		if fmt.Sprint(row[key]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return fallback
}

func idList(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if id, ok := records.NormalizeID(item); ok {
				out = append(out, id)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

func cloneRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for key, value := range row {
		out[key] = value
	}
	return out
}

func notFound(target string) error {
	return &records.StatusError{Status: http.StatusNotFound, URL: target, Body: ErrNotFound.Error()}
}
