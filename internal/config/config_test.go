package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	records "github.com/goliatone/go-records"
)

func loadFixture(t *testing.T) *File {
	t.Helper()
	file, err := Load(filepath.Join("testdata", "models.yaml"))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return file
}

func TestLoadParsesModels(t *testing.T) {
	file := loadFixture(t)
	if file.BaseURL != "https://api.example.test" {
		t.Fatalf("unexpected base url %q", file.BaseURL)
	}
	names := file.Names()
	if len(names) != 2 || names[0] != "tag" || names[1] != "user" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestApplyDefinesModelsOnRegistry(t *testing.T) {
	file := loadFixture(t)
	reg := records.NewRegistry()
	models, err := file.Apply(reg)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}

	user := reg.MustModel("user")
	if user.IDProp() != "user_id" {
		t.Fatalf("expected id prop user_id, got %q", user.IDProp())
	}
	if user.Defaults.SuccessProp != "success" {
		t.Fatalf("expected file default success prop, got %q", user.Defaults.SuccessProp)
	}
	if user.Defaults.JSON == nil || !*user.Defaults.JSON {
		t.Fatalf("expected json default enabled")
	}
	if user.Defaults.Extra["client"] != "recsync" {
		t.Fatalf("expected file extra, got %+v", user.Defaults.Extra)
	}
	if got := user.Fields["age"].Type; got != records.FieldInt {
		t.Fatalf("expected int field, got %v", got)
	}
	if got := user.Fields["created"].Format; got != "2006-01-02" {
		t.Fatalf("expected date format, got %q", got)
	}
	if user.Record.ImportOnSave == nil || *user.Record.ImportOnSave {
		t.Fatalf("expected import_on_save false")
	}
	if user.Store.StartParam != "offset" || user.Store.LimitParam != "count" {
		t.Fatalf("unexpected paging params %q %q", user.Store.StartParam, user.Store.LimitParam)
	}
	if got := user.Record.Ops[records.OpDelete].Method; got != "DELETE" {
		t.Fatalf("expected upper-cased method, got %q", got)
	}
	if _, ok := user.Controller["activate"]; !ok {
		t.Fatalf("expected controller op")
	}
}

func TestAppliedModelRequestsThroughTransport(t *testing.T) {
	file := loadFixture(t)
	reg := records.NewRegistry()
	var got records.Request
	transport := records.TransportFunc(func(ctx context.Context, req records.Request) (any, error) {
		got = req
		return map[string]any{
			"success": true,
			"items":   []any{map[string]any{"user_id": 1, "age": "42"}},
			"meta":    map[string]any{"total": 9},
		}, nil
	})
	if _, err := file.Apply(reg, records.WithTransport(transport)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	store, err := reg.NewStore("user", records.WithPageSize(5))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Load(context.Background(), nil, records.LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.URL != "/users" || got.Params["offset"] != 0 || got.Params["count"] != 5 {
		t.Fatalf("unexpected request %+v", got)
	}
	if store.TotalLen() != 9 {
		t.Fatalf("expected total 9, got %d", store.TotalLen())
	}
	rec := store.ByID("1").(*records.Record)
	if rec.Get("age") != 42 {
		t.Fatalf("expected age coerced to int, got %#v", rec.Get("age"))
	}
}

func TestModelDefaultsOverrideFileDefaults(t *testing.T) {
	doc := []byte(`
defaults:
  id: id
  root: data
models:
  post:
    defaults:
      root: payload
`)
	file, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts, err := file.Options("post")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	model := records.NewModel("post", opts...)
	if model.Defaults.RootProp != "payload" || model.Defaults.IDProp != "id" {
		t.Fatalf("unexpected defaults %+v", model.Defaults)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want error
	}{
		"no models": {doc: "base_url: x\n", want: ErrNoModels},
		"bad field type": {
			doc:  "models:\n  a:\n    fields:\n      x:\n        type: blob\n",
			want: ErrUnknownType,
		},
		"bad method": {
			doc:  "models:\n  a:\n    record:\n      ops:\n        load:\n          method: fetch\n",
			want: ErrUnknownMethod,
		},
		"bad op": {
			doc:  "models:\n  a:\n    store:\n      ops:\n        purge:\n          url: /a\n",
			want: ErrUnknownOp,
		},
		"controller without url": {
			doc:  "models:\n  a:\n    controller:\n      ping: {}\n",
			want: ErrControllerNoURL,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("models:\n  a:\n    recrod: {}\n"))
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestOptionsUnknownModel(t *testing.T) {
	file := loadFixture(t)
	if _, err := file.Options("missing"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}
