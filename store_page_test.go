package records

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// pagedTransport serves total rows honouring the start and limit params.
func pagedTransport(total int) *recordingTransport {
	rows := userRows(1, total)
	return &recordingTransport{respond: func(req Request) (any, error) {
		start, _ := req.Params["start"].(int)
		limit, _ := req.Params["limit"].(int)
		end := min(start+limit, total)
		if start > total {
			start = total
		}
		return listResponse(rows[start:end], total), nil
	}}
}

func TestStorePaging(t *testing.T) {
	transport := pagedTransport(15)
	store := NewStore(newUserModel(transport), WithPageSize(10))
	ctx := context.Background()

	if err := store.Load(ctx, nil, LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if store.Len() != 10 || store.TotalLen() != 15 || store.Pages() != 2 || store.CurrentPage() != 1 {
		t.Fatalf("unexpected first page len=%d total=%d pages=%d", store.Len(), store.TotalLen(), store.Pages())
	}
	if !store.HasNextPage() || store.HasPrevPage() {
		t.Fatalf("first page has a next page only")
	}

	if err := store.LoadNextPage(ctx); err != nil {
		t.Fatalf("next page: %v", err)
	}
	if store.Start() != 10 || store.Len() != 5 || store.CurrentPage() != 2 {
		t.Fatalf("unexpected second page start=%d len=%d", store.Start(), store.Len())
	}
	if store.HasNextPage() {
		t.Fatalf("last page has no next page")
	}
	requests := transport.count()
	if err := store.LoadNextPage(ctx); err != nil || transport.count() != requests {
		t.Fatalf("moving past the last page must not request, err=%v", err)
	}

	if err := store.LoadPrevPage(ctx); err != nil {
		t.Fatalf("prev page: %v", err)
	}
	if store.Start() != 0 || store.Items()[0].ItemID() != "1" {
		t.Fatalf("expected first page again, got start %d", store.Start())
	}

	if err := store.LoadPage(ctx, 3); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	if err := store.LoadPage(ctx, 2); err != nil {
		t.Fatalf("load page 2: %v", err)
	}
	if store.Items()[0].ItemID() != "11" {
		t.Fatalf("expected page 2 to start at 11, got %v", itemIDs(store.Items()))
	}
}

func TestStoreAddNextPageAppends(t *testing.T) {
	transport := pagedTransport(15)
	store := NewStore(newUserModel(transport), WithPageSize(10))
	ctx := context.Background()

	if err := store.Load(ctx, nil, LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.AddNextPage(ctx); err != nil {
		t.Fatalf("add next page: %v", err)
	}
	if store.Len() != 15 {
		t.Fatalf("expected 15 accumulated items, got %d", store.Len())
	}
	if transport.last().Params["start"] != 10 {
		t.Fatalf("expected the next page to start at the item count, got %v", transport.last().Params)
	}

	requests := transport.count()
	if err := store.AddNextPage(ctx); err != nil || transport.count() != requests {
		t.Fatalf("a complete store must not request more, err=%v", err)
	}
}

func TestStoreAddPrevPagePrepends(t *testing.T) {
	transport := pagedTransport(15)
	store := NewStore(newUserModel(transport), WithPageSize(5), WithStart(5))
	ctx := context.Background()

	if err := store.Load(ctx, nil, LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.AddPrevPage(ctx); err != nil {
		t.Fatalf("add prev page: %v", err)
	}
	want := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	if got := itemIDs(store.Items()); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStorePagingKeepsLoadParams(t *testing.T) {
	transport := pagedTransport(15)
	store := NewStore(newUserModel(transport), WithPageSize(10))
	ctx := context.Background()

	if err := store.Load(ctx, map[string]any{"role": "admin"}, LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.LoadNextPage(ctx); err != nil {
		t.Fatalf("next page: %v", err)
	}
	if transport.last().Params["role"] != "admin" {
		t.Fatalf("paging must repeat the last params, got %v", transport.last().Params)
	}
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := transport.last().Params; got["role"] != "admin" || got["start"] != 10 {
		t.Fatalf("reload keeps params and offset, got %v", got)
	}
}

func TestStorePagingDisabled(t *testing.T) {
	store := NewStore(newUserModel(&recordingTransport{}))
	if store.HasNextPage() || store.CurrentPage() != 1 || store.Pages() != 0 {
		t.Fatalf("paging helpers are inert without a page size")
	}
	if err := store.LoadPage(context.Background(), 1); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
}

func TestStoreCallerStartBecomesOffset(t *testing.T) {
	transport := pagedTransport(25)
	store := NewStore(newUserModel(transport), WithPageSize(10))
	ctx := context.Background()

	if err := store.Load(ctx, map[string]any{"start": 0}, LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := store.LoadNextPage(ctx); err != nil {
		t.Fatalf("next page: %v", err)
	}
	if got := transport.last().Params; got["start"] != 10 || got["limit"] != 10 {
		t.Fatalf("next page must send the advanced offset, got %v", got)
	}
	if store.Start() != 10 || store.Items()[0].ItemID() != "11" {
		t.Fatalf("expected page 2, start=%d items=%v", store.Start(), itemIDs(store.Items()))
	}

	if err := store.Load(ctx, map[string]any{"start": 20}, LoadOptions{}); err != nil {
		t.Fatalf("load at 20: %v", err)
	}
	if store.Start() != 20 || store.CurrentPage() != 3 || store.HasNextPage() {
		t.Fatalf("caller start must become the offset, start=%d page=%d", store.Start(), store.CurrentPage())
	}
	if err := store.LoadPrevPage(ctx); err != nil {
		t.Fatalf("prev page: %v", err)
	}
	if transport.last().Params["start"] != 10 {
		t.Fatalf("prev page must step back from the caller start, got %v", transport.last().Params)
	}
}
