package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_users.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[user](buildOptions(tc)...)

			result, err := decoder.Decode(Context{Type: tc.Type, ID: tc.ID}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecodeDoesNotMutatePayload(t *testing.T) {
	payload := map[string]any{"id": "1", "fullName": "Ada Lovelace"}
	decoder := NewDecoder[user](WithPreHook[user](splitNamePreHook))
	if _, err := decoder.Decode(Context{Type: "user", ID: "1"}, payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := payload["name"]; ok {
		t.Fatalf("pre hook leaked into caller payload: %v", payload)
	}
}

func TestIntoRequiresPointer(t *testing.T) {
	var out user
	if err := Into(Context{Type: "user"}, map[string]any{"name": "x"}, out); err == nil {
		t.Fatalf("expected error for non-pointer destination")
	}
	if err := Into(Context{Type: "user"}, map[string]any{"name": "x"}, &out); err != nil {
		t.Fatalf("into: %v", err)
	}
	if out.Name != "x" {
		t.Fatalf("expected name decoded, got %+v", out)
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[user] {
	options := []DecoderOption[user]{}
	for _, name := range tc.Options {
		switch name {
		case "use_number":
			options = append(options, WithUseNumber[user]())
		case "disallow_unknown":
			options = append(options, WithDisallowUnknownFields[user]())
		}
	}
	for _, name := range tc.PreHooks {
		if name == "split_name" {
			options = append(options, WithPreHook[user](splitNamePreHook))
		}
	}
	for _, name := range tc.PostHooks {
		if name == "ensure_tag" {
			options = append(options, WithPostHook[user](ensureTagPostHook))
		}
	}
	return options
}

func splitNamePreHook(_ Context, payload map[string]any) (map[string]any, error) {
	full, ok := payload["fullName"].(string)
	if !ok {
		return payload, nil
	}
	parts := strings.Fields(full)
	if len(parts) != 2 {
		return nil, fmt.Errorf("cannot split %q", full)
	}
	delete(payload, "fullName")
	payload["name"] = parts[0]
	payload["surname"] = parts[1]
	return payload, nil
}

func ensureTagPostHook(ctx Context, u *user) error {
	if u == nil {
		return errors.New("user is nil")
	}
	if len(u.Tags) == 0 {
		u.Tags = []string{ctx.Type + ":" + ctx.ID}
	}
	return nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Input     map[string]any `json:"input"`
	Expect    user           `json:"expect"`
	ExpectErr string         `json:"expectErr"`
	PreHooks  []string       `json:"preHooks"`
	PostHooks []string       `json:"postHooks"`
	Options   []string       `json:"options"`
}

type user struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Surname string   `json:"surname,omitempty"`
	Age     int      `json:"age,omitempty"`
	Active  bool     `json:"active,omitempty"`
	Address *address `json:"address,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", name, err)
	}
	return fx
}
