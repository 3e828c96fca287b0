package mountstore

import (
	"fmt"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celCallArity bounds call(name, args...). CEL has no variadic functions, so
// one overload is declared per arity.
const celCallArity = 4

// celEvaluator runs cel-go programs. Variable declarations follow the keys of
// the snapshot, so programs are cached per expression and key set.
type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator returns an engine backed by cel-go.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, evaluationError("cel", PhaseCompile, "", "", errEmptyExpression)
	}
	return e.run(ctx, expression)
}

// Compile checks syntax only. Type checking waits for the first snapshot.
func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, evaluationError("cel", PhaseCompile, "", "", errEmptyExpression)
	}
	env, err := e.environment(nil)
	if err != nil {
		return nil, evaluationError("cel", PhaseCompile, expression, "", err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, evaluationError("cel", PhaseCompile, expression, "", issues.Err())
	}
	return ruleFunc(func(ctx RuleContext) (any, error) {
		return e.run(ctx, expression)
	}), nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string) (any, error) {
	ctx = ctx.withDefaults()
	vars := ruleVariables(ctx)
	program, err := cachedProgram(e.cache, scopedProgramKey("cel", expression, vars), func() (celgo.Program, error) {
		return e.compile(expression, vars)
	})
	if err != nil {
		return nil, evaluationError("cel", PhaseCompile, expression, ctx.pathLabel(), err)
	}
	out, _, err := program.Eval(vars)
	if err != nil {
		return nil, evaluationError("cel", PhaseRun, expression, ctx.pathLabel(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) compile(expression string, vars map[string]any) (celgo.Program, error) {
	env, err := e.environment(vars)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEvaluator) environment(vars map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("mount", celgo.StringType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("host", celgo.DynType),
	}
	for key := range vars {
		if reservedVariables[key] {
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.functions != nil {
		opts = append(opts, celgo.Function(callFunction, e.callOverloads()...))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celCallArity+1)
	for arity := 0; arity <= celCallArity; arity++ {
		params := []*celgo.Type{celgo.StringType}
		for i := 0; i < arity; i++ {
			params = append(params, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn%d", arity),
			params,
			celgo.DynType,
			celgo.FunctionBinding(e.call),
		))
	}
	return overloads
}

func (e *celEvaluator) call(values ...ref.Val) ref.Val {
	args := make([]any, 0, len(values))
	for _, value := range values {
		args = append(args, value.Value())
	}
	result, err := e.functions.dynamic(args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
