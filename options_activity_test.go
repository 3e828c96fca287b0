package mountstore

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-mountstore/pkg/activity"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	store, err := New(identity, nil, WithActivityHooks(activity.Hooks{nil, hook}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	hooks := store.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	hooks[0] = nil
	again := store.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	store, err := New(identity, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if hooks := store.ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestLifecycleEventsAreEmittedAfterCommit(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newTestStore(t, identity, map[string]any{"care": "bears"}, WithActivityHooks(activity.Hooks{capture}), WithID("store-1"))

	node := mustMount(t, store, "todos", View{"care": "care"}, identity, nil)
	if err := node.Query(map[string]string{"more": "care"}); err != nil {
		t.Fatalf("query: %v", err)
	}
	if err := node.ReplaceReducer(identity); err != nil {
		t.Fatalf("replace reducer: %v", err)
	}
	if err := store.Unmount("todos"); err != nil {
		t.Fatalf("unmount: %v", err)
	}

	want := []string{activity.VerbMounted, activity.VerbQueried, activity.VerbReducerReplaced, activity.VerbUnmounted}
	if len(capture.Events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), capture.Events)
	}
	for i, verb := range want {
		event := capture.Events[i]
		if event.Verb != verb {
			t.Fatalf("event %d: expected %s got %s", i, verb, event.Verb)
		}
		if event.ObjectID != "todos" || event.ObjectType != activity.ObjectTypeMount {
			t.Fatalf("event %d: unexpected object %+v", i, event)
		}
		if event.Channel != activity.DefaultChannel {
			t.Fatalf("event %d: expected default channel, got %q", i, event.Channel)
		}
		if event.Metadata["store_id"] != "store-1" {
			t.Fatalf("event %d: expected store id metadata, got %+v", i, event.Metadata)
		}
	}
	query, ok := capture.Events[1].Metadata["query"].(map[string]string)
	if !ok || query["more"] != "care" {
		t.Fatalf("expected query metadata, got %+v", capture.Events[1].Metadata)
	}
}

func TestFailedDispatchEmitsNothing(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newTestStore(t, identity, nil, WithActivityHooks(activity.Hooks{capture}))

	creator, err := store.Mount("broken", View{"missing": "nowhere"})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := creator.Create(identity, nil); !errors.Is(err, ErrData) {
		t.Fatalf("expected data error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %+v", capture.Events)
	}
}

func TestActivityConfigCanDisableEmission(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newTestStore(t, identity, nil,
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: false}),
	)
	mustMount(t, store, "quiet", nil, identity, nil)
	if len(capture.Events) != 0 {
		t.Fatalf("expected emission disabled, got %+v", capture.Events)
	}
}

func TestHookFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := activity.HookFunc(func(context.Context, activity.Event) error { return errors.New("sink down") })
	store := newTestStore(t, identity, nil, WithActivityHooks(activity.Hooks{failing}), WithLogger(zap.New(core)))

	creator, err := store.Mount("todos", nil)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := creator.Create(identity, nil); err != nil {
		t.Fatalf("hook failures must not fail the dispatch: %v", err)
	}
	entries := logs.FilterMessage("activity hook failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	if entries[0].ContextMap()["verb"] != activity.VerbMounted {
		t.Fatalf("expected verb field, got %+v", entries[0].ContextMap())
	}
}

func TestActivityConfigFiltersVerbs(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newTestStore(t, identity, nil,
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: true, Verbs: []string{activity.VerbUnmounted}}),
	)
	mustMount(t, store, "todos", nil, identity, nil)
	if err := store.Unmount("todos"); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	verbs := capture.Verbs()
	if len(verbs) != 1 || verbs[0] != activity.VerbUnmounted {
		t.Fatalf("expected only unmounted events, got %v", verbs)
	}
}

func TestListenersRunAfterCommitWork(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newTestStore(t, identity, nil, WithActivityHooks(activity.Hooks{capture}))
	first := mustMount(t, store, "first", nil, identity, nil)
	mustMount(t, store, "second", nil, identity, nil)
	capture.Reset()

	var activeInListener []bool
	store.Subscribe(func() {
		activeInListener = append(activeInListener, first.Active())
		if _, ok := store.Lookup("second"); ok && !first.Active() {
			if err := store.Unmount("second"); err != nil {
				t.Errorf("unmount from listener: %v", err)
			}
		}
	})

	if err := store.Unmount("first"); err != nil {
		t.Fatalf("unmount: %v", err)
	}
	if len(activeInListener) == 0 || activeInListener[0] {
		t.Fatalf("expected the unmounted handle to be inactive inside listeners, got %v", activeInListener)
	}
	if len(capture.Events) != 2 {
		t.Fatalf("expected two unmount events, got %+v", capture.Events)
	}
	if capture.Events[0].ObjectID != "first" || capture.Events[1].ObjectID != "second" {
		t.Fatalf("expected outer events before nested ones, got %s then %s", capture.Events[0].ObjectID, capture.Events[1].ObjectID)
	}
}
