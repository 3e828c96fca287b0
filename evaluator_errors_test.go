package mountstore

import (
	"errors"
	"testing"
)

func TestEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := evaluationError("expr", PhaseRun, "flag && missing", "todos.filters", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Phase != PhaseRun {
		t.Fatalf("unexpected engine/phase: %+v", evalErr)
	}
	if evalErr.Expr != "flag && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Path != "todos.filters" {
		t.Fatalf("expected mount path metadata, got %q", evalErr.Path)
	}
	if !errors.Is(err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
	want := `mountstore: expr run "flag && missing" at todos.filters: boom`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
	if evaluationError("expr", PhaseRun, "x", "", nil) != nil {
		t.Fatalf("nil errors must stay nil")
	}
}

func TestEvaluationErrorFillsBlankFieldsOnACopy(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Phase: PhaseCompile, Err: base}

	err := evaluationError("cel", PhaseRun, "rule", "host.child", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	var annotated *EvaluationError
	if !errors.As(err, &annotated) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if annotated.Engine != "expr" || annotated.Phase != PhaseCompile {
		t.Fatalf("set fields must not be overwritten, got %+v", annotated)
	}
	if annotated.Expr != "rule" || annotated.Path != "host.child" {
		t.Fatalf("blank fields should be filled, got %+v", annotated)
	}
	if existing.Expr != "" || existing.Path != "" {
		t.Fatalf("original error must not be mutated, got %+v", existing)
	}
	if got := (&EvaluationError{Engine: "cel", Phase: PhaseCompile, Err: base}).Error(); got != "mountstore: cel compile: compile failure" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestResolveErrorMatchesDataAndCause(t *testing.T) {
	err := error(&ResolveError{Mount: "todos", Alias: "user", Source: SourceHost, Spec: "session.user", Err: ErrUndefined})

	if !errors.Is(err, ErrData) {
		t.Fatalf("expected ErrData, got %v", err)
	}
	if !errors.Is(err, ErrUndefined) {
		t.Fatalf("expected cause to unwrap, got %v", err)
	}
	if errors.Is(err, ErrUsage) {
		t.Fatalf("resolve errors are not usage errors")
	}

	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) || resolveErr.Alias != "user" {
		t.Fatalf("expected ResolveError with alias, got %#v", err)
	}
}

func TestErrorTaxonomyWrapping(t *testing.T) {
	if !errors.Is(ErrUnmounted, ErrUsage) {
		t.Fatalf("ErrUnmounted must be a usage error")
	}
	if !errors.Is(ErrCreatorUsed, ErrUsage) {
		t.Fatalf("ErrCreatorUsed must be a usage error")
	}
}
