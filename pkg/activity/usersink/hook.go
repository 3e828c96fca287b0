package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-mountstore/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook records mount lifecycle events in a go-users ActivitySink. Mount
// events carry no actor of their own, so ActorID and TenantID attribute them
// to whoever runs the store. IDs present on the event take precedence.
type Hook struct {
	Sink     usertypes.ActivitySink
	ActorID  uuid.UUID
	TenantID uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if len(normalized.Missing()) > 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    pick(normalized.ActorID, h.ActorID),
		UserID:     pick(normalized.UserID, uuid.Nil),
		TenantID:   pick(normalized.TenantID, h.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       recordData(normalized),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return h.Sink.Log(ctx, record)
}

func recordData(event activity.Event) map[string]any {
	data := map[string]any{"mount_path": event.ObjectID}
	for key, value := range event.Metadata {
		data[key] = value
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = append([]string{}, event.Recipients...)
	}
	return data
}

func pick(input string, fallback uuid.UUID) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return fallback
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return fallback
	}
	return id
}
