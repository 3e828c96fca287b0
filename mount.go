package mountstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-mountstore/pkg/activity"
	"github.com/goliatone/go-mountstore/tree"
	"go.uber.org/zap"
)

// Creator attaches a reducer to a declared mount. It can be used once.
type Creator struct {
	store *Store
	node  *node
}

// Mounted is the handle of an attached store. Its state is the merge of the
// subtree it owns and the fields its view derives from the host.
type Mounted struct {
	store *Store
	node  *node
}

func (s *Store) mount(host, path string, view View) (*Creator, error) {
	if err := validateMountPath(path); err != nil {
		return nil, err
	}
	full := joinPath(host, path)
	if _, exists := s.registry.lookup(full); exists {
		return nil, fmt.Errorf("%w: a store is already mounted at %q", ErrConflict, full)
	}
	if tree.Has(s.GetState(), tree.ParsePath(full)) {
		return nil, fmt.Errorf("%w: state already exists at %q", ErrConflict, full)
	}
	if host != "" {
		if hostNode, ok := s.registry.lookup(host); ok {
			first := tree.ParsePath(path)[0]
			if _, clash := hostNode.bindings[first]; clash {
				return nil, fmt.Errorf("%w: %q shadows view %q of %q", ErrConflict, full, first, host)
			}
		}
	}

	bindings, err := s.compileView(full, view)
	if err != nil {
		return nil, err
	}
	n := newNode(host, path, bindings)
	if err := s.registry.register(n); err != nil {
		return nil, err
	}
	s.logger.Debug("store declared", zap.String("path", full), zap.Strings("aliases", n.aliases))
	return &Creator{store: s, node: n}, nil
}

func (s *Store) unmount(host, path string) error {
	if path == "" {
		return fmt.Errorf("%w: unmount path must not be empty", ErrUsage)
	}
	full := joinPath(host, path)
	if _, ok := s.registry.lookup(full); !ok {
		return fmt.Errorf("%w: no store mounted at %q", ErrUsage, full)
	}
	for _, n := range s.registry.subtree(full) {
		if err := s.dispatch(Unmount{Path: n.full}); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the full path the creator mounts at.
func (c *Creator) Path() string {
	if c == nil || c.node == nil {
		return ""
	}
	return c.node.full
}

// Create attaches reducer, splices initial into the root state and runs the
// node's first reduction. Enhancers are rejected. When either dispatch fails
// the registration is rolled back.
func (c *Creator) Create(reducer Reducer, initial map[string]any, enhancers ...Enhancer) (*Mounted, error) {
	if c == nil || c.node == nil || c.store == nil {
		return nil, fmt.Errorf("%w: creator is not bound to a store", ErrUsage)
	}
	n, s := c.node, c.store
	if !n.lifecycle.Can(eventAttach) {
		return nil, fmt.Errorf("%w: %q is %s", ErrCreatorUsed, n.full, n.state())
	}
	if len(enhancers) > 0 {
		return nil, fmt.Errorf("%w: mounted stores do not support enhancers", ErrUsage)
	}
	if reducer == nil {
		return nil, fmt.Errorf("%w: reducer is required", ErrUsage)
	}
	state, err := tree.Clone(initial)
	if err != nil {
		return nil, fmt.Errorf("%w: copy initial state of %q: %w", ErrData, n.full, err)
	}
	if err := n.lifecycle.Event(context.Background(), eventAttach); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreatorUsed, err)
	}

	n.reducer = reducer
	handle := &Mounted{store: s, node: n}
	n.handle = handle

	if err := s.dispatch(Mount{Path: n.full, InitialState: state}); err != nil {
		s.abandon(n, false)
		return nil, err
	}
	if err := s.dispatch(Init{Path: n.full}); err != nil {
		s.abandon(n, true)
		return nil, err
	}
	return handle, nil
}

// abandon undoes a Create that failed after the node was attached.
func (s *Store) abandon(n *node, spliced bool) {
	if spliced {
		if err := s.dispatch(Unmount{Path: n.full}); err == nil {
			return
		}
	}
	s.registry.unregister(n.full)
	n.detach()
	s.logger.Debug("store creation rolled back", zap.String("path", n.full))
}

// Path returns the full dotted path of the store.
func (m *Mounted) Path() string {
	return m.node.full
}

// Active reports whether the store is still mounted.
func (m *Mounted) Active() bool {
	return m != nil && m.node != nil && m.node.state() == StateActive
}

// GetState returns own state merged with the viewed fields. The map is
// shared; treat it as read-only. Its identity changes only when own state or
// a viewed value does.
func (m *Mounted) GetState() map[string]any {
	return m.node.cache.merged
}

// Dispatch forwards action to the root store.
func (m *Mounted) Dispatch(action Action) error {
	if !m.Active() {
		return ErrUnmounted
	}
	return m.store.Dispatch(action)
}

// Subscribe registers listener on the root store.
func (m *Mounted) Subscribe(listener func()) func() {
	return m.store.Subscribe(listener)
}

// ReplaceReducer swaps the node reducer and dispatches Init for the node.
func (m *Mounted) ReplaceReducer(next Reducer) error {
	if !m.Active() {
		return ErrUnmounted
	}
	if next == nil {
		return fmt.Errorf("%w: reducer is required", ErrUsage)
	}
	previous := m.node.reducer
	m.node.reducer = next
	if err := m.store.dispatch(Init{Path: m.node.full}); err != nil {
		m.node.reducer = previous
		return err
	}
	m.store.emit([]activity.Event{activity.BuildReducerReplacedEvent(m.store.eventInput(m.node))})
	return nil
}

// Mount declares a store at path relative to this one.
func (m *Mounted) Mount(path string, view View) (*Creator, error) {
	if !m.Active() {
		return nil, ErrUnmounted
	}
	return m.store.mount(m.node.full, path, view)
}

// Unmount removes the store at path relative to this one.
func (m *Mounted) Unmount(path string) error {
	if !m.Active() {
		return ErrUnmounted
	}
	return m.store.unmount(m.node.full, path)
}

// Query asks for extra viewed fields read off the root state: alias to dotted
// path.
func (m *Mounted) Query(query map[string]string) error {
	if !m.Active() {
		return ErrUnmounted
	}
	return m.store.Dispatch(Query{Path: m.node.full, Query: query})
}
