//go:build js_eval

package mountstore

import (
	"strings"

	"github.com/dop251/goja"
)

// jsEvaluator runs expressions in a fresh goja runtime per evaluation.
type jsEvaluator struct {
	engineConfig
}

// NewJSEvaluator returns an engine backed by goja.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return ruleFunc(func(ctx RuleContext) (any, error) {
		return e.run(ctx, expression, program)
	}), nil
}

func (e *jsEvaluator) program(expression string) (*goja.Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, evaluationError("js", PhaseCompile, "", "", errEmptyExpression)
	}
	return cachedProgram(e.cache, "js:"+expression, func() (*goja.Program, error) {
		program, err := goja.Compile("", "(function(){ return ("+expression+"); })()", false)
		if err != nil {
			return nil, evaluationError("js", PhaseCompile, expression, "", err)
		}
		return program, nil
	})
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	for name, value := range ruleVariables(ctx) {
		_ = vm.Set(name, value)
	}
	if e.functions != nil {
		_ = vm.Set(callFunction, e.functions.dynamic)
		for _, name := range e.functions.Names() {
			_ = vm.Set(name, e.functions.bound(name))
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, evaluationError("js", PhaseRun, expression, ctx.pathLabel(), err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
