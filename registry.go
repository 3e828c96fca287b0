package mountstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-mountstore/tree"
	"github.com/looplab/fsm"
)

// Node lifecycle states.
const (
	StateDeclared  = "declared"
	StateActive    = "active"
	StateUnmounted = "unmounted"
)

const (
	eventAttach = "attach"
	eventDetach = "detach"
)

type node struct {
	path     string
	full     string
	segments tree.Path
	host     string
	depth    int

	bindings map[string]binding
	aliases  []string
	reducer  Reducer
	cache    nodeCache

	lifecycle *fsm.FSM
	handle    *Mounted
}

func newNode(host, path string, bindings map[string]binding) *node {
	full := joinPath(host, path)
	segments := tree.ParsePath(full)
	n := &node{
		path:     path,
		full:     full,
		segments: segments,
		host:     host,
		depth:    len(segments),
		lifecycle: fsm.NewFSM(
			StateDeclared,
			fsm.Events{
				{Name: eventAttach, Src: []string{StateDeclared}, Dst: StateActive},
				{Name: eventDetach, Src: []string{StateDeclared, StateActive}, Dst: StateUnmounted},
			},
			fsm.Callbacks{},
		),
	}
	n.setBindings(bindings)
	return n
}

func (n *node) setBindings(bindings map[string]binding) {
	n.bindings = bindings
	n.aliases = sortedAliases(bindings)
}

func (n *node) state() string {
	return n.lifecycle.Current()
}

// detach moves the node to unmounted. Already unmounted nodes are left alone.
func (n *node) detach() {
	if n.lifecycle.Can(eventDetach) {
		_ = n.lifecycle.Event(context.Background(), eventDetach)
	}
}

// registry indexes nodes by canonical path. It is owned by one Store.
type registry struct {
	nodes map[string]*node
}

func newRegistry() *registry {
	return &registry{nodes: map[string]*node{}}
}

func (r *registry) register(n *node) error {
	if _, exists := r.nodes[n.full]; exists {
		return fmt.Errorf("%w: a store is already mounted at %q", ErrConflict, n.full)
	}
	r.nodes[n.full] = n
	return nil
}

func (r *registry) lookup(full string) (*node, bool) {
	n, ok := r.nodes[full]
	return n, ok
}

func (r *registry) unregister(full string) {
	delete(r.nodes, full)
}

func (r *registry) len() int {
	return len(r.nodes)
}

func (r *registry) paths() []string {
	out := make([]string, 0, len(r.nodes))
	for full := range r.nodes {
		out = append(out, full)
	}
	sort.Strings(out)
	return out
}

// ordered returns nodes shallowest first, ties broken by path.
func (r *registry) ordered() []*node {
	out := make([]*node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].depth != out[j].depth {
			return out[i].depth < out[j].depth
		}
		return out[i].full < out[j].full
	})
	return out
}

// subtree returns the node at full and its descendants, deepest first.
func (r *registry) subtree(full string) []*node {
	prefix := tree.ParsePath(full)
	var out []*node
	for _, n := range r.nodes {
		if n.segments.HasPrefix(prefix) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].depth != out[j].depth {
			return out[i].depth > out[j].depth
		}
		return out[i].full < out[j].full
	})
	return out
}

type nodeSnapshot struct {
	node     *node
	bindings map[string]binding
	aliases  []string
	cache    nodeCache
}

// registryCheckpoint records what a failed dispatch must put back.
type registryCheckpoint struct {
	nodes []nodeSnapshot
}

func (r *registry) checkpoint() registryCheckpoint {
	cp := registryCheckpoint{nodes: make([]nodeSnapshot, 0, len(r.nodes))}
	for _, n := range r.nodes {
		cp.nodes = append(cp.nodes, nodeSnapshot{
			node:     n,
			bindings: n.bindings,
			aliases:  n.aliases,
			cache:    n.cache,
		})
	}
	return cp
}

func (r *registry) restore(cp registryCheckpoint) {
	nodes := make(map[string]*node, len(cp.nodes))
	for _, snap := range cp.nodes {
		snap.node.bindings = snap.bindings
		snap.node.aliases = snap.aliases
		snap.node.cache = snap.cache
		nodes[snap.node.full] = snap.node
	}
	r.nodes = nodes
}

func joinPath(host, path string) string {
	if host == "" {
		return path
	}
	if path == "" {
		return host
	}
	return host + "." + path
}

func validateMountPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: mount path must not be empty", ErrConfiguration)
	}
	if !validSegments(tree.ParsePath(path)) {
		return fmt.Errorf("%w: mount path %q has an empty segment", ErrConfiguration, path)
	}
	return nil
}
