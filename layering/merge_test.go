package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMergeMapsFromFixture(t *testing.T) {
	fx := loadMergeFixture(t, "params_merge.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			layers := make([]map[string]any, len(tc.Layers))
			for i := range tc.Layers {
				layers[i] = tc.Layers[i].Params
			}

			got := MergeMaps(layers...)
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Errorf("merged params mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestMergeMapsZeroInput(t *testing.T) {
	got := MergeMaps()
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", got)
	}
}

func TestMergeMapsDoesNotMutateInputs(t *testing.T) {
	strong := map[string]any{"filter": map[string]any{"name": "jane"}}
	weak := map[string]any{"filter": map[string]any{"active": true}}

	got := MergeMaps(strong, weak)
	got["filter"].(map[string]any)["name"] = "changed"

	if strong["filter"].(map[string]any)["name"] != "jane" {
		t.Fatalf("expected strong layer untouched, got %#v", strong)
	}
	if _, ok := weak["filter"].(map[string]any)["name"]; ok {
		t.Fatalf("expected weak layer untouched, got %#v", weak)
	}
}

type mergeFixture struct {
	Description string             `json:"description"`
	Cases       []mergeFixtureCase `json:"cases"`
}

type mergeFixtureCase struct {
	Name   string              `json:"name"`
	Layers []mergeFixtureLayer `json:"layers"`
	Expect map[string]any      `json:"expect"`
}

type mergeFixtureLayer struct {
	Scope  string         `json:"scope"`
	Params map[string]any `json:"params"`
}

func loadMergeFixture(t *testing.T, name string) mergeFixture {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read merge fixture %q: %v", name, err)
	}
	var fx mergeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal merge fixture %q: %v", name, err)
	}
	return fx
}
