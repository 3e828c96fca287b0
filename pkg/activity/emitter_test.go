package activity

import (
	"context"
	"testing"
)

func mountedEvent(verb string) Event {
	return Event{Verb: verb, ObjectType: ObjectTypeMount, ObjectID: "todos"}
}

func TestEmitterAppliesDefaultChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{nil, capture}, Config{Enabled: true})

	if err := emitter.Emit(context.Background(), mountedEvent(VerbMounted)); err != nil {
		t.Fatalf("emit: %v", err)
	}
	event := mountedEvent(VerbUnmounted)
	event.Channel = "audit"
	if err := emitter.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if len(capture.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel, got %q", capture.Events[0].Channel)
	}
	if capture.Events[1].Channel != "audit" {
		t.Fatalf("explicit channel overwritten: %q", capture.Events[1].Channel)
	}
}

func TestEmitterFiltersVerbs(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "ops", Verbs: []string{" " + VerbUnmounted, ""}})

	if emitter.Allows(VerbMounted) {
		t.Fatalf("mounted should be filtered")
	}
	for _, verb := range []string{VerbMounted, VerbQueried, VerbUnmounted} {
		if err := emitter.Emit(context.Background(), mountedEvent(verb)); err != nil {
			t.Fatalf("emit %s: %v", verb, err)
		}
	}
	verbs := capture.Verbs()
	if len(verbs) != 1 || verbs[0] != VerbUnmounted {
		t.Fatalf("expected only unmounted, got %v", verbs)
	}
	if capture.Events[0].Channel != "ops" {
		t.Fatalf("expected configured channel, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterDisabled(t *testing.T) {
	var nilEmitter *Emitter
	if nilEmitter.Enabled() || nilEmitter.Allows(VerbMounted) {
		t.Fatalf("nil emitter must be disabled")
	}
	if err := nilEmitter.Emit(context.Background(), mountedEvent(VerbMounted)); err != nil {
		t.Fatalf("nil emitter emit: %v", err)
	}

	capture := &CaptureHook{}
	if NewEmitter(Hooks{capture}, Config{}).Enabled() {
		t.Fatalf("zero config must disable emission")
	}
	if NewEmitter(Hooks{nil}, Config{Enabled: true}).Enabled() {
		t.Fatalf("emitter without hooks must be disabled")
	}
}

func TestCompactDropsNilHooks(t *testing.T) {
	if Compact(Hooks{nil, nil}) != nil {
		t.Fatalf("expected nil when no hooks remain")
	}
	capture := &CaptureHook{}
	hooks := Hooks{capture, nil}
	compact := Compact(hooks)
	if len(compact) != 1 {
		t.Fatalf("expected one hook, got %d", len(compact))
	}
	compact[0] = nil
	if hooks[0] == nil {
		t.Fatalf("compact must copy")
	}
}
