package mountstore

import (
	"fmt"

	"github.com/goliatone/go-mountstore/tree"
	"go.uber.org/zap"
)

// nodeCache keeps the last computed views of a node. Maps are never mutated
// after they are stored, so identities can be compared across dispatches.
type nodeCache struct {
	raw    map[string]any
	own    map[string]any
	viewed map[string]any
	merged map[string]any
	primed bool
}

// refresh brings the cache of n in line with root. Identities are kept when
// neither the raw subtree nor any viewed value changed.
func (s *Store) refresh(pass *dispatchPass, n *node) error {
	raw, err := subtreeAt(pass.root, n)
	if err != nil {
		return err
	}

	hostState := pass.root
	if n.host != "" {
		host, ok := s.registry.lookup(n.host)
		if !ok {
			return fmt.Errorf("%w: host %q of %q is not mounted", ErrData, n.host, n.full)
		}
		hostState = host.cache.merged
	}

	var tx *tree.Transaction
	for _, alias := range n.aliases {
		b := n.bindings[alias]
		input := hostState
		if b.source == SourceRoot {
			input = pass.root
		}
		value, err := b.resolve(input)
		if err != nil {
			return &ResolveError{Mount: n.full, Alias: alias, Source: b.source, Spec: b.spec, Err: err}
		}
		if current, ok := n.cache.viewed[alias]; ok && tree.Same(current, value) {
			continue
		}
		if tx == nil {
			tx = tree.NewTransaction(n.cache.viewed)
		}
		if err := tx.SetIn(tree.Path{alias}, value); err != nil {
			return fmt.Errorf("%w: view %q on %q: %w", ErrData, alias, n.full, err)
		}
	}

	viewed := n.cache.viewed
	if tx == nil {
		if n.cache.primed && tree.Same(raw, n.cache.raw) {
			return nil
		}
	} else {
		if viewed, err = tx.Commit(); err != nil {
			return err
		}
	}
	if viewed == nil {
		viewed = map[string]any{}
	}

	own := stripAliases(raw, n.bindings)
	n.cache = nodeCache{
		raw:    raw,
		own:    own,
		viewed: viewed,
		merged: mergeState(own, viewed),
		primed: true,
	}
	s.metrics.recomputed()
	if ce := s.logger.Check(zap.DebugLevel, "cache recomputed"); ce != nil {
		ce.Write(zap.String("path", n.full), zap.Bool("view_changed", tx != nil))
	}
	return nil
}

// writeBack stores the result of a node reducer at the node path.
func (s *Store) writeBack(pass *dispatchPass, n *node, result map[string]any) error {
	own := stripAliases(result, n.bindings)
	root, err := tree.Set(pass.root, n.full, own)
	if err != nil {
		return fmt.Errorf("%w: write back %q: %w", ErrData, n.full, err)
	}
	pass.root = root

	viewed := n.cache.viewed
	if viewed == nil {
		viewed = map[string]any{}
	}
	n.cache = nodeCache{
		raw:    own,
		own:    own,
		viewed: viewed,
		merged: mergeState(own, viewed),
		primed: true,
	}
	return nil
}

func subtreeAt(root map[string]any, n *node) (map[string]any, error) {
	value, ok := tree.Get(root, n.segments)
	if !ok || value == nil {
		return nil, nil
	}
	state, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: state at %q is %T, not an object", ErrData, n.full, value)
	}
	return state, nil
}

// stripAliases drops alias keys from state, returning state itself when it
// holds none.
func stripAliases(state map[string]any, bindings map[string]binding) map[string]any {
	clash := false
	for alias := range bindings {
		if _, ok := state[alias]; ok {
			clash = true
			break
		}
	}
	if !clash {
		return state
	}
	out := make(map[string]any, len(state))
	for key, value := range state {
		if _, ok := bindings[key]; ok {
			continue
		}
		out[key] = value
	}
	return out
}

// mergeState overlays own on viewed into a fresh map.
func mergeState(own, viewed map[string]any) map[string]any {
	out := make(map[string]any, len(own)+len(viewed))
	for key, value := range viewed {
		out[key] = value
	}
	for key, value := range own {
		out[key] = value
	}
	return out
}
