package records

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func evalStore(opts ...ModelOption) *Store {
	model := NewModel("person", opts...)
	return NewStore(model, WithInitialData(
		map[string]any{"id": 1, "name": "Jane Doe", "age": 34, "role": "admin", "active": true},
		map[string]any{"id": 2, "name": "John Roe", "age": 27, "role": "guest", "active": false},
		map[string]any{"id": 3, "name": "Jane Smith", "age": 41, "role": "guest", "active": true},
	))
}

func TestFilterExprDefaultsToExpr(t *testing.T) {
	store := evalStore()
	if err := store.FilterExpr(`age > 30 && active`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := itemIDs(store.ToArray()); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("unexpected view %v", got)
	}
	if err := store.FilterExpr(`item.role == "guest" && missing == nil`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := itemIDs(store.ToArray()); !reflect.DeepEqual(got, []string{"2", "3"}) {
		t.Fatalf("item binding and undefined variables: %v", got)
	}
}

func TestFilterExprCompileError(t *testing.T) {
	store := evalStore()
	err := store.FilterExpr(`age >`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "expr" {
		t.Fatalf("expected expr EvaluationError, got %v", err)
	}
	if store.IsFiltered() {
		t.Fatalf("a failed compile must not install a filter")
	}
}

func TestFilterExprNonBoolIsLoggedAndExcluded(t *testing.T) {
	var mu sync.Mutex
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(evt EvaluatorLogEvent) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})
	store := evalStore(WithEvaluatorLogger(logger))
	if err := store.FilterExpr(`name`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if store.CurrentLen() != 0 {
		t.Fatalf("non-boolean results exclude the item")
	}
	if len(events) != 3 || events[0].Engine != "expr" || events[0].Scope != "person" || events[0].Err == nil {
		t.Fatalf("expected one log event per item, got %+v", events)
	}
}

func TestFilterExprUsesProgramCache(t *testing.T) {
	cache := NewMemoryProgramCache()
	store := evalStore(WithProgramCache(cache))
	if err := store.FilterExpr(`age < 30`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if _, ok := cache.Get("expr:age < 30"); !ok {
		t.Fatalf("compiled program should be cached")
	}
	if store.CurrentLen() != 1 {
		t.Fatalf("expected one match, got %d", store.CurrentLen())
	}
}

func TestFilterExprFunctionRegistry(t *testing.T) {
	store := evalStore(WithFunctionRegistry(BuiltinFunctions()))
	if err := store.FilterExpr(`icontains(name, "JANE")`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := itemIDs(store.ToArray()); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Fatalf("unexpected view %v", got)
	}
}

func TestFilterExprWithCEL(t *testing.T) {
	store := evalStore(WithEvaluator(NewCELEvaluator(CELWithFunctionRegistry(BuiltinFunctions()))))
	if err := store.FilterExpr(`role == "guest" && age > 30`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := itemIDs(store.ToArray()); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("unexpected view %v", got)
	}
	if err := store.FilterExpr(`call("upper", [name]) == "JOHN ROE"`); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := itemIDs(store.ToArray()); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("unexpected view %v", got)
	}
	if err := store.FilterExpr(`unknown_field > 1`); err == nil {
		t.Fatalf("CEL rejects undeclared variables at compile time")
	}
}

func TestExprEvaluatorEvaluate(t *testing.T) {
	evaluator := NewExprEvaluator()
	out, err := evaluator.Evaluate(RuleContext{Data: map[string]any{"a": 2}, Args: map[string]any{"b": 3}}, `a * args.b`)
	if err != nil || out != 6 {
		t.Fatalf("expected 6, got %v (%v)", out, err)
	}
	if _, err := evaluator.Evaluate(RuleContext{}, ""); err == nil {
		t.Fatalf("empty expressions are rejected")
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	double := func(args ...any) (any, error) { return args[0].(int) * 2, nil }
	if err := registry.Register("Double", double); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("double", double); err == nil {
		t.Fatalf("names are case-insensitive and unique")
	}
	if err := registry.Register("", double); err == nil {
		t.Fatalf("empty names are rejected")
	}
	out, err := registry.Call("DOUBLE", 4)
	if err != nil || out != 8 {
		t.Fatalf("expected 8, got %v (%v)", out, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("unknown functions fail")
	}
	clone := registry.Clone()
	_ = clone.Register("triple", double)
	if len(registry.Names()) != 1 || len(clone.Names()) != 2 {
		t.Fatalf("clones are independent")
	}
}

func TestBuiltinFunctions(t *testing.T) {
	builtins := BuiltinFunctions()
	if !reflect.DeepEqual(builtins.Names(), []string{"icontains", "lower", "upper"}) {
		t.Fatalf("unexpected builtins %v", builtins.Names())
	}
	if out, _ := builtins.Call("lower", "AbC"); out != "abc" {
		t.Fatalf("lower: %v", out)
	}
	if out, _ := builtins.Call("icontains", nil, "x"); out != false {
		t.Fatalf("icontains(nil) must be false")
	}
	if _, err := builtins.Call("upper"); err == nil {
		t.Fatalf("arity is checked")
	}
}

func TestJSAvailabilityMatchesConstructor(t *testing.T) {
	if JSAvailable() != (NewJSEvaluator() != nil) {
		t.Fatalf("JSAvailable must report whether NewJSEvaluator builds an engine")
	}
}
