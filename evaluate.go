package mountstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrNoEvaluator = errors.New("mountstore: evaluator not configured")

// NewEvaluator builds the engine registered under name ("expr", "cel" or
// "js"). The js engine needs the js_eval build tag.
func NewEvaluator(name string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "expr":
		return NewExprEvaluator(EngineCache(cache), EngineFunctions(registry)), nil
	case "cel":
		return NewCELEvaluator(EngineCache(cache), EngineFunctions(registry)), nil
	case "js":
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js evaluator requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(EngineCache(cache), EngineFunctions(registry)), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, name)
	}
}

// Evaluate runs expr against the merged state of the mounted store.
func (m *Mounted) Evaluate(expr string) (any, error) {
	return m.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith runs expr using ctx, defaulting the snapshot to the merged
// state of the mounted store.
func (m *Mounted) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if !m.Active() {
		return nil, ErrUnmounted
	}
	evaluator, err := m.store.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = m.GetState()
	}
	if ctx.Path == "" {
		ctx.Path = m.node.full
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = evaluationError(evaluatorEngineName(evaluator), PhaseRun, expr, ctx.pathLabel(), evalErr)
	m.store.logEvaluation(evaluator, expr, ctx.pathLabel(), time.Since(start), evalErr)
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (s *Store) resolveEvaluator() (Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	s.cfg.evaluator = NewExprEvaluator(EngineCache(s.cfg.programCache), EngineFunctions(s.cfg.functions))
	return s.cfg.evaluator, nil
}

func (s *Store) logEvaluation(evaluator Evaluator, expr, path string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("engine", evaluatorEngineName(evaluator)),
		zap.String("expr", expr),
		zap.String("path", path),
		zap.Duration("duration", duration),
	}
	if err != nil {
		s.logger.Debug("expression evaluation failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("expression evaluated", fields...)
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*mountstore.exprEvaluator":
		return "expr"
	case "*mountstore.celEvaluator":
		return "cel"
	case "*mountstore.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
