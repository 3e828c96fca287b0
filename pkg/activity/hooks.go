package activity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
)

// ErrIncompleteEvent is returned by Hooks.Notify for events missing a verb,
// object type or object ID. Hooks never see such events.
var ErrIncompleteEvent = errors.New("activity: incomplete event")

// Event describes a store lifecycle occurrence. IDs are strings so call sites
// are not tied to one UUID type.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Missing lists the required fields that are blank.
func (e Event) Missing() []string {
	var missing []string
	if strings.TrimSpace(e.Verb) == "" {
		missing = append(missing, "verb")
	}
	if strings.TrimSpace(e.ObjectType) == "" {
		missing = append(missing, "object_type")
	}
	if strings.TrimSpace(e.ObjectID) == "" {
		missing = append(missing, "object_id")
	}
	return missing
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans an event out to every hook in order.
type Hooks []ActivityHook

// Enabled reports whether there is any hook to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event and hands it to each hook. Every hook runs even
// when an earlier one fails; failures are joined and carry the hook index.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	if missing := event.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteEvent, strings.Join(missing, ", "))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := NormalizeEvent(event)
	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, fmt.Errorf("activity: hook %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims string fields, copies metadata and recipients and
// stamps OccurredAt when it is zero.
func NormalizeEvent(event Event) Event {
	out := event
	for _, field := range []*string{
		&out.Verb, &out.ActorID, &out.UserID, &out.TenantID,
		&out.ObjectType, &out.ObjectID, &out.Channel, &out.DefinitionCode,
	} {
		*field = strings.TrimSpace(*field)
	}
	out.Metadata = nil
	if len(event.Metadata) > 0 {
		out.Metadata = maps.Clone(event.Metadata)
	}
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = append([]string{}, event.Recipients...)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}
