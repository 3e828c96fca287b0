package mountstore

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-mountstore/internal/engine"
)

var (
	// ErrConfiguration reports a malformed mount path, view or query.
	ErrConfiguration = errors.New("mountstore: configuration error")
	// ErrConflict reports a mount path that is already taken.
	ErrConflict = errors.New("mountstore: conflict")
	// ErrUsage reports an API called out of sequence.
	ErrUsage = errors.New("mountstore: usage error")
	// ErrData reports a view binding that could not be resolved.
	ErrData = errors.New("mountstore: data error")
	// ErrUndefined is the cause attached to a path binding whose source is missing.
	ErrUndefined = errors.New("mountstore: value is undefined")

	// ErrUnmounted is returned by handle methods once the node has been unmounted.
	ErrUnmounted = fmt.Errorf("%w: store is unmounted", ErrUsage)
	// ErrCreatorUsed is returned by a second Creator.Create call.
	ErrCreatorUsed = fmt.Errorf("%w: mounted store creators are single-use", ErrUsage)
	// ErrReentrantDispatch is returned when a reducer dispatches.
	ErrReentrantDispatch = engine.ErrReentrantDispatch
)

// ResolveError describes a view binding that failed during cache refresh.
// It matches ErrData and its cause through errors.Is.
type ResolveError struct {
	Mount  string
	Alias  string
	Source Source
	Spec   string
	Err    error
}

func (e *ResolveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	spec := e.Spec
	if spec == "" {
		spec = "<func>"
	}
	return fmt.Sprintf("mountstore: resolve %q on %q (source=%s binding=%s): %v", e.Alias, e.Mount, e.Source, spec, e.Err)
}

func (e *ResolveError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrData}
	}
	return []error{ErrData, e.Err}
}
