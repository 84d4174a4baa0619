package records

import (
	"context"
	"fmt"
	"sync"
)

// recordingTransport keeps every request and answers through respond.
type recordingTransport struct {
	mu       sync.Mutex
	requests []Request
	respond  func(req Request) (any, error)
}

func (t *recordingTransport) Do(ctx context.Context, req Request) (any, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	respond := t.respond
	t.mu.Unlock()
	if respond == nil {
		return map[string]any{}, nil
	}
	return respond(req)
}

func (t *recordingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func (t *recordingTransport) last() Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return Request{}
	}
	return t.requests[len(t.requests)-1]
}

func newUserModel(transport Transport, opts ...ModelOption) *Model {
	base := []ModelOption{
		WithTransport(transport),
		WithRecordProfile(Profile{Ops: map[string]OperationConfig{
			OpLoad:   URL("/users/:id"),
			OpSave:   URL("/users/save"),
			OpDelete: URL("/users/:id/delete"),
		}}),
		WithStoreProfile(Profile{Ops: map[string]OperationConfig{
			OpLoad:   {URL: "/users", RootProp: "items", TotalProp: "total"},
			OpSave:   URL("/users/batch"),
			OpDelete: URL("/users/delete"),
		}}),
	}
	return NewModel("user", append(base, opts...)...)
}

// userRows builds n rows with ids from..from+n-1.
func userRows(from, n int) []any {
	rows := make([]any, 0, n)
	for i := from; i < from+n; i++ {
		rows = append(rows, map[string]any{"id": i, "name": fmt.Sprintf("user %d", i)})
	}
	return rows
}

func itemIDs(items []Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ItemID()
	}
	return out
}
