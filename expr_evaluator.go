package mountstore

import (
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprparser "github.com/expr-lang/expr/parser"
	exprtypes "github.com/expr-lang/expr/types"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs expr-lang programs. Programs declare the variables of
// the scope they run in, so snapshot keys shadow builtins such as count or
// len, and are cached per expression and key set.
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator returns the default engine, backed by expr-lang/expr.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, evaluationError("expr", PhaseCompile, "", "", errEmptyExpression)
	}
	return e.run(ctx, expression)
}

// Compile checks syntax only. Type checking waits for the first snapshot.
func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, evaluationError("expr", PhaseCompile, "", "", errEmptyExpression)
	}
	if _, err := exprparser.Parse(expression); err != nil {
		return nil, evaluationError("expr", PhaseCompile, expression, "", err)
	}
	return ruleFunc(func(ctx RuleContext) (any, error) {
		return e.run(ctx, expression)
	}), nil
}

func (e *exprEvaluator) run(ctx RuleContext, expression string) (any, error) {
	ctx = ctx.withDefaults()
	vars := ruleVariables(ctx)
	program, err := cachedProgram(e.cache, scopedProgramKey("expr", expression, vars), func() (*exprvm.Program, error) {
		return e.compile(expression, vars)
	})
	if err != nil {
		return nil, evaluationError("expr", PhaseCompile, expression, ctx.pathLabel(), err)
	}
	result, err := exprlang.Run(program, vars)
	if err != nil {
		return nil, evaluationError("expr", PhaseRun, expression, ctx.pathLabel(), err)
	}
	return result, nil
}

func (e *exprEvaluator) compile(expression string, vars map[string]any) (*exprvm.Program, error) {
	env := make(exprtypes.Map, len(vars))
	for key := range vars {
		// registered functions win over snapshot keys
		if e.functions.Has(key) {
			continue
		}
		env[key] = exprtypes.Any
	}
	options := []exprlang.Option{
		exprlang.Env(env),
		exprlang.AllowUndefinedVariables(),
	}
	if e.functions != nil {
		options = append(options, exprlang.Function(callFunction, e.functions.dynamic))
		for _, name := range e.functions.Names() {
			options = append(options, exprlang.Function(name, e.functions.bound(name)))
		}
	}
	return exprlang.Compile(expression, options...)
}
