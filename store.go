package mountstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-mountstore/internal/engine"
	"github.com/goliatone/go-mountstore/pkg/activity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the root of a mount tree. It is not safe for concurrent use.
type Store struct {
	id       string
	cfg      storeConfig
	logger   *zap.Logger
	engine   *engine.Store[map[string]any, Action]
	reducer  Reducer
	registry *registry
	metrics  *metrics
	emitter  *activity.Emitter
	pass     *dispatchPass
}

// New creates a root store and runs the initial reduction. A nil initial
// state starts from an empty map.
func New(reducer Reducer, initial map[string]any, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	if cfg.enhancer != nil {
		enhanced := cfg.enhancer(newStore)
		if enhanced == nil {
			return nil, fmt.Errorf("%w: enhancer returned a nil store creator", ErrConfiguration)
		}
		return enhanced(reducer, initial, append(append([]Option{}, opts...), withoutEnhancer())...)
	}
	return newStore(reducer, initial, opts...)
}

func newStore(reducer Reducer, initial map[string]any, opts ...Option) (*Store, error) {
	if reducer == nil {
		return nil, fmt.Errorf("%w: reducer is required", ErrUsage)
	}
	cfg := applyOptions(opts)
	if len(cfg.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(cfg.errs...))
	}
	if initial == nil {
		initial = map[string]any{}
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	s := &Store{
		id:       id,
		cfg:      cfg,
		logger:   cfg.logger.With(zap.String("store", id)),
		reducer:  reducer,
		registry: newRegistry(),
		emitter:  cfg.emitter(),
	}
	m, err := newMetrics(cfg.registerer, id)
	if err != nil {
		return nil, err
	}
	s.metrics = m

	base, err := engine.New(s.reduce, initial)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	s.engine = base
	if err := s.dispatch(Init{}); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the store instance ID.
func (s *Store) ID() string {
	return s.id
}

// GetState returns the root state. Mounted subtrees appear at their paths,
// viewed fields never do.
func (s *Store) GetState() map[string]any {
	return s.engine.State()
}

// Dispatch runs action through the root reducer and every mounted reducer.
// Query actions are validated and answered first.
func (s *Store) Dispatch(action Action) error {
	if action == nil {
		return fmt.Errorf("%w: action must not be nil", ErrConfiguration)
	}
	action = normalizeAction(action)
	if query, ok := action.(Query); ok {
		answered, err := s.answerQuery(query)
		if err != nil {
			return err
		}
		action = answered
	}
	return s.dispatch(action)
}

// Subscribe registers listener for every committed dispatch.
func (s *Store) Subscribe(listener func()) func() {
	return s.engine.Subscribe(listener)
}

// ReplaceReducer swaps the root reducer and dispatches Init.
func (s *Store) ReplaceReducer(next Reducer) error {
	if next == nil {
		return fmt.Errorf("%w: reducer is required", ErrUsage)
	}
	previous := s.reducer
	s.reducer = next
	if err := s.dispatch(Init{}); err != nil {
		s.reducer = previous
		return err
	}
	return nil
}

// Mount declares a store at path below the root. The returned Creator
// attaches its reducer.
func (s *Store) Mount(path string, view View) (*Creator, error) {
	return s.mount("", path, view)
}

// Unmount removes the store at path and every store below it.
func (s *Store) Unmount(path string) error {
	return s.unmount("", path)
}

// Lookup returns the handle of the active store mounted at the full path.
func (s *Store) Lookup(path string) (*Mounted, bool) {
	n, ok := s.registry.lookup(path)
	if !ok || n.handle == nil || n.state() != StateActive {
		return nil, false
	}
	return n.handle, true
}

// Paths lists every registered mount path in lexical order.
func (s *Store) Paths() []string {
	return s.registry.paths()
}

func (s *Store) dispatch(action Action) error {
	if s.engine.Dispatching() {
		return fmt.Errorf("%w: %w", ErrUsage, ErrReentrantDispatch)
	}
	kind := KindOf(action)
	checkpoint := s.registry.checkpoint()
	pass := &dispatchPass{}
	s.pass = pass

	start := time.Now()
	err := s.engine.DispatchWith(action, func(map[string]any) {
		s.metrics.observeDispatch(kind, time.Since(start), nil)
		s.commit(pass)
	})
	if err != nil {
		s.metrics.observeDispatch(kind, time.Since(start), err)
		s.registry.restore(checkpoint)
		s.logger.Debug("dispatch rejected", zap.String("action", action.Type()), zap.Error(err))
		return err
	}
	return nil
}

// commit finishes a pass before subscribers hear about it.
func (s *Store) commit(pass *dispatchPass) {
	for _, n := range pass.unmounted {
		n.detach()
	}
	s.metrics.setMounted(s.registry.len())
	s.emit(pass.events)
}

func (s *Store) emit(events []activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	for _, event := range events {
		if err := s.emitter.Emit(context.Background(), event); err != nil {
			s.logger.Warn("activity hook failed", zap.String("verb", event.Verb), zap.String("path", event.ObjectID), zap.Error(err))
		}
	}
}

// isResolveFailure reports whether err came from a view binding.
func isResolveFailure(err error) bool {
	var resolveErr *ResolveError
	return errors.As(err, &resolveErr)
}
