package mountstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-mountstore/tree"
)

// View declares the derived fields of a mounted store: alias to binding.
//
// A binding value may be a dotted path string read off the host state, a
// Resolver or a func(map[string]any) any, or one of the helpers Path, Func
// and Expr.
type View map[string]any

// Resolver derives a viewed value from the host state. A returned error fails
// the dispatch that triggered the refresh.
type Resolver func(host map[string]any) (any, error)

// Source names the state a binding reads from.
type Source string

const (
	// SourceHost bindings read the merged state of the host mount, or the
	// root state for top level mounts.
	SourceHost Source = "host"
	// SourceRoot bindings read the root state. Query results use it.
	SourceRoot Source = "root"
)

// Binding kinds reported by traces.
const (
	BindingPath  = "path"
	BindingFunc  = "func"
	BindingExpr  = "expr"
	BindingQuery = "query"
)

// Binding is a view entry built with Path, Func or Expr.
type Binding struct {
	kind    string
	spec    string
	resolve Resolver
}

// Path binds an alias to the value at a dotted path of the host state.
func Path(path string) Binding {
	return Binding{kind: BindingPath, spec: path}
}

// Func binds an alias to the result of fn.
func Func(fn Resolver) Binding {
	return Binding{kind: BindingFunc, resolve: fn}
}

// Expr binds an alias to an expression compiled by the store evaluator when
// the view is mounted. The host state keys are the expression variables.
func Expr(expression string) Binding {
	return Binding{kind: BindingExpr, spec: expression}
}

type binding struct {
	kind    string
	source  Source
	spec    string
	resolve Resolver
}

func (b binding) describe() string {
	if b.spec != "" {
		return b.spec
	}
	return "<" + b.kind + ">"
}

// compileView normalizes every entry of view once, at mount time.
func (s *Store) compileView(full string, view View) (map[string]binding, error) {
	bindings := make(map[string]binding, len(view))
	for alias, raw := range view {
		if strings.TrimSpace(alias) == "" {
			return nil, fmt.Errorf("%w: view of %q has an empty alias", ErrConfiguration, full)
		}
		compiled, err := s.compileBinding(full, alias, raw)
		if err != nil {
			return nil, err
		}
		bindings[alias] = compiled
	}
	return bindings, nil
}

func (s *Store) compileBinding(full, alias string, raw any) (binding, error) {
	switch value := raw.(type) {
	case string:
		return pathBinding(full, alias, value, SourceHost, BindingPath)
	case Resolver:
		return funcBinding(full, alias, value)
	case func(map[string]any) (any, error):
		return funcBinding(full, alias, value)
	case func(map[string]any) any:
		if value == nil {
			return funcBinding(full, alias, nil)
		}
		return funcBinding(full, alias, func(host map[string]any) (any, error) {
			return value(host), nil
		})
	case Binding:
		switch value.kind {
		case BindingPath:
			return pathBinding(full, alias, value.spec, SourceHost, BindingPath)
		case BindingFunc:
			return funcBinding(full, alias, value.resolve)
		case BindingExpr:
			return s.exprBinding(full, alias, value.spec)
		}
	}
	return binding{}, fmt.Errorf("%w: view %q on %q has unsupported binding %T", ErrConfiguration, alias, full, raw)
}

func pathBinding(full, alias, spec string, source Source, kind string) (binding, error) {
	path := tree.ParsePath(spec)
	if len(path) == 0 || !validSegments(path) {
		return binding{}, fmt.Errorf("%w: view %q on %q has malformed path %q", ErrConfiguration, alias, full, spec)
	}
	return binding{
		kind:   kind,
		source: source,
		spec:   spec,
		resolve: func(host map[string]any) (any, error) {
			value, ok := tree.Get(host, path)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUndefined, spec)
			}
			return value, nil
		},
	}, nil
}

func funcBinding(full, alias string, fn Resolver) (binding, error) {
	if fn == nil {
		return binding{}, fmt.Errorf("%w: view %q on %q has a nil resolver", ErrConfiguration, alias, full)
	}
	return binding{kind: BindingFunc, source: SourceHost, resolve: fn}, nil
}

func (s *Store) exprBinding(full, alias, expression string) (binding, error) {
	if strings.TrimSpace(expression) == "" {
		return binding{}, fmt.Errorf("%w: view %q on %q has an empty expression", ErrConfiguration, alias, full)
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return binding{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return binding{}, fmt.Errorf("%w: view %q on %q: %w", ErrConfiguration, alias, full, err)
	}
	engine := evaluatorEngineName(evaluator)
	return binding{
		kind:   BindingExpr,
		source: SourceHost,
		spec:   expression,
		resolve: func(host map[string]any) (any, error) {
			value, err := rule.Evaluate(RuleContext{Snapshot: host, Path: full}.withDefaults())
			if err != nil {
				return nil, evaluationError(engine, PhaseRun, expression, full, err)
			}
			return value, nil
		},
	}, nil
}

// withQueryResult returns a copy of bindings extended by the granted query.
func withQueryResult(full string, bindings map[string]binding, result map[string]string) (map[string]binding, error) {
	next := make(map[string]binding, len(bindings)+len(result))
	for alias, existing := range bindings {
		next[alias] = existing
	}
	for alias, spec := range result {
		if strings.TrimSpace(alias) == "" {
			return nil, fmt.Errorf("%w: query result for %q has an empty alias", ErrConfiguration, full)
		}
		compiled, err := pathBinding(full, alias, spec, SourceRoot, BindingQuery)
		if err != nil {
			return nil, err
		}
		next[alias] = compiled
	}
	return next, nil
}

func sortedAliases(bindings map[string]binding) []string {
	aliases := make([]string, 0, len(bindings))
	for alias := range bindings {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

func validSegments(path tree.Path) bool {
	for _, segment := range path {
		if segment == "" {
			return false
		}
	}
	return true
}
