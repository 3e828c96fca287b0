package mountstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"unicode"
)

// Function is a Go function callable from expressions.
type Function func(args ...any) (any, error)

// ErrFunctionNotFound is returned when an expression calls an unknown name.
var ErrFunctionNotFound = errors.New("mountstore: function not registered")

// FunctionRegistry holds the functions exposed to expression engines, both
// by name and through call("name", args...). Names are case sensitive.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register adds fn under name. Names must be identifiers, must not shadow a
// variable of the expression scope and may be registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("%w: function %q is nil", ErrConfiguration, name)
	}
	if !isIdentifier(name) {
		return fmt.Errorf("%w: function name %q is not an identifier", ErrConfiguration, name)
	}
	if reservedVariables[name] {
		return fmt.Errorf("%w: function name %q is reserved", ErrConfiguration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("%w: function %q already registered", ErrConflict, name)
	}
	r.functions[name] = fn
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[name]
	return ok
}

// Clone returns a copy that later registrations on r do not affect.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Names returns the registered names in lexical order.
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

// bound returns a Function calling name through the registry.
func (r *FunctionRegistry) bound(name string) Function {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// dynamic backs call("name", args...).
func (r *FunctionRegistry) dynamic(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s requires a function name", callFunction)
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s expects a string name, got %T", callFunction, args[0])
	}
	return r.Call(name, args[1:]...)
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		if c == '_' || unicode.IsLetter(c) || (i > 0 && unicode.IsDigit(c)) {
			continue
		}
		return false
	}
	return true
}

// WithFunctionRegistry exposes the functions in registry to Expr bindings.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *storeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for Expr bindings. An invalid
// registration fails New.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.errs = append(cfg.errs, err)
		}
	}
}
