package mountstore

import (
	"errors"
	"time"
)

var errEmptyExpression = errors.New("expression must not be empty")

// Reducer computes the next state of a store. Returning the input map
// unchanged signals that nothing changed.
type Reducer func(state map[string]any, action Action) map[string]any

// StoreCreator builds a root store. Enhancers wrap it.
type StoreCreator func(reducer Reducer, initial map[string]any, opts ...Option) (*Store, error)

// Enhancer decorates a StoreCreator. Mounted stores reject enhancers.
type Enhancer func(StoreCreator) StoreCreator

// QueryHandler may answer a Query before the default rewrite. Returning
// handled=false falls back to granting the query as asked.
type QueryHandler func(query Query) (result map[string]string, handled bool, err error)

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Path is the mount the rule is evaluated for, empty for the root.
	Path string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) pathLabel() string {
	if ctx.Path != "" {
		return ctx.Path
	}
	return "root"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// ruleFunc adapts a closure to CompiledRule.
type ruleFunc func(ctx RuleContext) (any, error)

func (f ruleFunc) Evaluate(ctx RuleContext) (any, error) {
	return f(ctx)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}
