package records

import (
	"context"
	"reflect"
	"testing"
)

func TestRegistrySharesIdentityAcrossStores(t *testing.T) {
	transport := &recordingTransport{respond: func(Request) (any, error) {
		return listResponse(userRows(1, 2), 2), nil
	}}
	registry := NewRegistry(WithModelDefaults(WithTransport(transport)))
	registry.Define("user", WithStoreProfile(Profile{Ops: map[string]OperationConfig{
		OpLoad: {URL: "/users", RootProp: "items", TotalProp: "total"},
	}}))

	a, err := registry.NewStore("user")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	b, _ := registry.NewStore("user")
	ctx := context.Background()
	if err := a.Load(ctx, nil, LoadOptions{}); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := b.Load(ctx, nil, LoadOptions{}); err != nil {
		t.Fatalf("load b: %v", err)
	}
	if a.ByID("1") != b.ByID("1") {
		t.Fatalf("stores of one registry share record instances")
	}
	if registry.Cache().Len() != 2 {
		t.Fatalf("expected 2 cached records, got %d", registry.Cache().Len())
	}
}

func TestRegistryDefineOrderAndLookup(t *testing.T) {
	registry := NewRegistry(WithModelDefaults(WithDefaults(OperationConfig{SuccessProp: "ok"})))
	registry.Define("tag")
	user := registry.Define("user", WithDefaults(OperationConfig{SuccessProp: "success"}))

	if user.Defaults.SuccessProp != "success" {
		t.Fatalf("Define options run after registry defaults")
	}
	if registry.MustModel("tag").Defaults.SuccessProp != "ok" {
		t.Fatalf("registry defaults apply to every model")
	}
	if !reflect.DeepEqual(registry.Names(), []string{"tag", "user"}) {
		t.Fatalf("unexpected names %v", registry.Names())
	}
	if registry.MustModel("user").Cache() != registry.Cache() {
		t.Fatalf("models share the registry cache")
	}
	if _, ok := registry.Model("order"); ok {
		t.Fatalf("unexpected model")
	}
	if _, err := registry.NewStore("order"); err == nil {
		t.Fatalf("unknown model must fail")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("MustModel should panic for unknown models")
		}
	}()
	registry.MustModel("order")
}

func TestRegistryWithSharedCache(t *testing.T) {
	cache := NewMemoryIdentityCache()
	first := NewRegistry(WithSharedCache(cache))
	second := NewRegistry(WithSharedCache(cache))
	a := NewRecord(first.Define("user"), WithID(5))
	b := NewRecord(second.Define("user"), WithID(5))
	if got, _ := cache.Get("user", "5"); got != a || b == a {
		t.Fatalf("the first record keeps the shared cache slot")
	}
}

func TestMemoryIdentityCache(t *testing.T) {
	cache := NewMemoryIdentityCache()
	model := NewModel("user", WithIdentityCache(cache))
	rec := NewRecord(model, WithID("u1"))

	if got, ok := cache.Get("user", "u1"); !ok || got != rec {
		t.Fatalf("records register themselves once they hold an id")
	}
	if _, ok := cache.Get("", "u1"); ok {
		t.Fatalf("untyped lookups always miss")
	}
	NewRecord(NewModel("", WithIdentityCache(cache)), WithID("u2"))
	if cache.Len() != 1 {
		t.Fatalf("untyped records never enter the cache, len=%d", cache.Len())
	}

	rec.Destroy()
	if _, ok := cache.Get("user", "u1"); ok || cache.Len() != 0 {
		t.Fatalf("destroyed records leave the cache")
	}
}

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{7, "7", true},
		{7.0, "7", true},
		{" abc ", "abc", true},
		{"", "", false},
		{nil, "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeID(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizeID(%#v) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
