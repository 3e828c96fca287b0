package main

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	mountstore "github.com/goliatone/go-mountstore"
	"github.com/goliatone/go-mountstore/tree"
	"go.uber.org/zap"
)

const exprPrefix = "expr:"

type mounter interface {
	Mount(path string, view mountstore.View) (*mountstore.Creator, error)
}

// replayer runs scenario steps against a single store.
type replayer struct {
	store  *mountstore.Store
	out    io.Writer
	logger *zap.Logger
}

func newReplayer(scenario *Scenario, out io.Writer, logger *zap.Logger) (*replayer, error) {
	store, err := mountstore.New(setReducer(scenario.Reducer), scenario.Initial, mountstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &replayer{store: store, out: out, logger: logger}, nil
}

func (r *replayer) run(steps []Step) error {
	for i, step := range steps {
		if err := r.step(step); err != nil {
			return fmt.Errorf("step %d (%s %s): %w", i+1, step.Op, step.Path, err)
		}
	}
	return nil
}

func (r *replayer) step(step Step) error {
	r.logger.Debug("replay step", zap.String("op", step.Op), zap.String("path", step.Path))
	switch step.Op {
	case "mount":
		return r.mount(step)
	case "dispatch":
		event := mountstore.Event{Name: step.Event, Payload: step.Payload}
		if step.Path == "" {
			return r.store.Dispatch(event)
		}
		handle, err := r.handle(step.Path)
		if err != nil {
			return err
		}
		return handle.Dispatch(event)
	case "query":
		handle, err := r.handle(step.Path)
		if err != nil {
			return err
		}
		return handle.Query(step.Query)
	case "unmount":
		return r.store.Unmount(step.Path)
	case "print":
		state, err := r.state(step.Path)
		if err != nil {
			return err
		}
		return r.print(labelFor(step.Path), state)
	case "trace":
		handle, err := r.handle(step.Path)
		if err != nil {
			return err
		}
		payload, err := handle.Trace().ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.out, "%s %s\n", step.Path, payload)
		return err
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (r *replayer) mount(step Step) error {
	var host mounter = r.store
	if step.Host != "" {
		handle, err := r.handle(step.Host)
		if err != nil {
			return err
		}
		host = handle
	}
	creator, err := host.Mount(step.Path, buildView(step.View))
	if err != nil {
		return err
	}
	_, err = creator.Create(setReducer(step.Reducer), step.Initial)
	return err
}

func (r *replayer) handle(path string) (*mountstore.Mounted, error) {
	handle, ok := r.store.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("no store mounted at %q", path)
	}
	return handle, nil
}

func (r *replayer) state(path string) (map[string]any, error) {
	if path == "" {
		return r.store.GetState(), nil
	}
	handle, err := r.handle(path)
	if err != nil {
		return nil, err
	}
	return handle.GetState(), nil
}

func (r *replayer) print(label string, state map[string]any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.out, "%s %s\n", label, payload)
	return err
}

// buildView turns scenario bindings into a view. Values prefixed with
// "expr:" are expressions, anything else is a dotted path.
func buildView(spec map[string]string) mountstore.View {
	if len(spec) == 0 {
		return nil
	}
	view := make(mountstore.View, len(spec))
	for alias, value := range spec {
		if expression, ok := strings.CutPrefix(value, exprPrefix); ok {
			view[alias] = mountstore.Expr(strings.TrimSpace(expression))
			continue
		}
		view[alias] = value
	}
	return view
}

// setReducer stores the payload of each listed event at its dotted key.
func setReducer(on map[string]string) mountstore.Reducer {
	return func(state map[string]any, action mountstore.Action) map[string]any {
		event, ok := action.(mountstore.Event)
		if !ok {
			return state
		}
		key, ok := on[event.Name]
		if !ok {
			return state
		}
		next, err := tree.Set(state, key, event.Payload)
		if err != nil {
			return state
		}
		return next
	}
}

func labelFor(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
