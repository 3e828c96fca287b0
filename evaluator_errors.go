package mountstore

import (
	"errors"
	"fmt"
	"strings"
)

// Evaluation phases.
const (
	PhaseCompile = "compile"
	PhaseRun     = "run"
)

// EvaluationError reports an expression that failed to compile or run.
type EvaluationError struct {
	Engine string
	Phase  string
	Expr   string
	// Path is the mount the expression ran for; empty for compile failures.
	Path string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "mountstore: %s %s", e.Engine, e.Phase)
	if e.Expr != "" {
		fmt.Fprintf(&b, " %q", e.Expr)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// evaluationError wraps err with evaluation metadata. An EvaluationError
// already in the chain is copied with its blank fields filled; set fields are
// never overwritten.
func evaluationError(engine, phase, expr, path string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		return &EvaluationError{Engine: engine, Phase: phase, Expr: expr, Path: path, Err: err}
	}
	annotated := *existing
	if annotated.Engine == "" {
		annotated.Engine = engine
	}
	if annotated.Phase == "" {
		annotated.Phase = phase
	}
	if annotated.Expr == "" {
		annotated.Expr = expr
	}
	if annotated.Path == "" {
		annotated.Path = path
	}
	return &annotated
}
