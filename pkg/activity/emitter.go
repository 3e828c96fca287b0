package activity

import (
	"context"
	"slices"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "mountstore"

// Config controls how a store emits lifecycle events.
type Config struct {
	Enabled bool
	Channel string
	// Verbs restricts emission to the listed verbs. Empty allows every verb.
	Verbs []string
}

// Emitter delivers lifecycle events to hooks after applying Config.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	verbs   []string
}

// NewEmitter builds an emitter. Nil hooks are dropped.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	compact := Compact(hooks)
	var verbs []string
	for _, verb := range cfg.Verbs {
		if verb = strings.TrimSpace(verb); verb != "" {
			verbs = append(verbs, verb)
		}
	}
	return &Emitter{
		hooks:   compact,
		enabled: cfg.Enabled && compact.Enabled(),
		channel: channel,
		verbs:   verbs,
	}
}

func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Allows reports whether events with verb pass the allowlist.
func (e *Emitter) Allows(verb string) bool {
	if !e.Enabled() {
		return false
	}
	return len(e.verbs) == 0 || slices.Contains(e.verbs, verb)
}

// Emit notifies the hooks of event. Filtered events are dropped silently.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Allows(event.Verb) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

// Compact returns a copy of hooks without nil entries, or nil when none remain.
func Compact(hooks Hooks) Hooks {
	var out Hooks
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}
