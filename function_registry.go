package records

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from filter expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores expression helpers keyed by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("records: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("records: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("records: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("records: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("records: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinFunctions returns a registry preloaded with the string helpers
// filter expressions commonly need: lower, upper and icontains.
func BuiltinFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("lower", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("records: lower expects 1 argument, got %d", len(args))
		}
		return strings.ToLower(fmt.Sprint(args[0])), nil
	})
	_ = r.Register("upper", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("records: upper expects 1 argument, got %d", len(args))
		}
		return strings.ToUpper(fmt.Sprint(args[0])), nil
	})
	_ = r.Register("icontains", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("records: icontains expects 2 arguments, got %d", len(args))
		}
		if args[0] == nil {
			return false, nil
		}
		return containsFold(fmt.Sprint(args[0]), fmt.Sprint(args[1])), nil
	})
	return r
}
