package mountstore

import (
	"fmt"

	"github.com/goliatone/go-mountstore/pkg/activity"
	"github.com/goliatone/go-mountstore/tree"
	"go.uber.org/zap"
)

// dispatchPass carries the candidate root state through one reduction and
// collects what may only happen once it commits.
type dispatchPass struct {
	root      map[string]any
	events    []activity.Event
	unmounted []*node
}

// reduce is the engine reducer: the root reducer followed by every mounted
// reducer, shallowest first.
func (s *Store) reduce(state map[string]any, action Action) (map[string]any, error) {
	pass := s.pass
	if pass == nil {
		pass = &dispatchPass{}
		s.pass = pass
	}

	next := s.reducer(state, action)
	if next == nil {
		next = map[string]any{}
	}
	pass.root = next

	switch typed := action.(type) {
	case Mount:
		return s.reduceMount(pass, typed)
	case Unmount:
		if err := s.reduceUnmount(pass, typed); err != nil {
			return nil, err
		}
	case QueryResult:
		if err := s.reduceQueryResult(pass, typed); err != nil {
			return nil, err
		}
	}

	for _, n := range s.registry.ordered() {
		if n.reducer == nil {
			continue
		}
		if err := s.refresh(pass, n); err != nil {
			return nil, err
		}
		previous := n.cache.merged
		result := n.reducer(previous, action)
		if tree.Same(result, previous) {
			continue
		}
		if err := s.writeBack(pass, n, result); err != nil {
			return nil, err
		}
	}

	// parents written back above may have moved under their children
	for _, n := range s.registry.ordered() {
		if n.reducer == nil {
			continue
		}
		if err := s.refresh(pass, n); err != nil {
			return nil, err
		}
	}
	return pass.root, nil
}

func (s *Store) reduceMount(pass *dispatchPass, action Mount) (map[string]any, error) {
	n, ok := s.registry.lookup(action.Path)
	if !ok {
		return nil, fmt.Errorf("%w: no store registered at %q", ErrUsage, action.Path)
	}
	initial := action.InitialState
	if initial == nil {
		initial = map[string]any{}
	}
	root, err := tree.Set(pass.root, action.Path, stripAliases(initial, n.bindings))
	if err != nil {
		return nil, fmt.Errorf("%w: mount %q: %w", ErrData, action.Path, err)
	}
	pass.root = root
	if err := s.refresh(pass, n); err != nil {
		return nil, err
	}
	pass.events = append(pass.events, activity.BuildMountedEvent(s.eventInput(n)))
	s.logger.Debug("store mounted", zap.String("path", n.full), zap.Strings("aliases", n.aliases))
	return pass.root, nil
}

func (s *Store) reduceUnmount(pass *dispatchPass, action Unmount) error {
	n, ok := s.registry.lookup(action.Path)
	if !ok {
		return fmt.Errorf("%w: no store mounted at %q", ErrUsage, action.Path)
	}
	if below := s.registry.subtree(n.full); len(below) > 1 {
		return fmt.Errorf("%w: %q still has %d stores mounted below it", ErrUsage, n.full, len(below)-1)
	}
	if _, present := tree.Get(pass.root, n.segments); present {
		root, err := tree.Delete(pass.root, action.Path)
		if err != nil {
			return fmt.Errorf("%w: unmount %q: %w", ErrData, action.Path, err)
		}
		pass.root = root
	}
	s.registry.unregister(action.Path)
	pass.unmounted = append(pass.unmounted, n)
	pass.events = append(pass.events, activity.BuildUnmountedEvent(s.eventInput(n)))
	s.logger.Debug("store unmounted", zap.String("path", n.full))
	return nil
}

func (s *Store) reduceQueryResult(pass *dispatchPass, action QueryResult) error {
	n, ok := s.registry.lookup(action.Path)
	if !ok {
		return fmt.Errorf("%w: query result for unknown mount %q", ErrConfiguration, action.Path)
	}
	bindings, err := withQueryResult(n.full, n.bindings, action.Result)
	if err != nil {
		return err
	}
	n.setBindings(bindings)

	input := s.eventInput(n)
	input.Query = action.Result
	pass.events = append(pass.events, activity.BuildQueriedEvent(input))
	return nil
}

func (s *Store) eventInput(n *node) activity.MountEventInput {
	return activity.MountEventInput{
		StoreID: s.id,
		Path:    n.full,
		Host:    n.host,
		Aliases: n.aliases,
	}
}
