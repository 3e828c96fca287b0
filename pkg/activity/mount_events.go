package activity

import (
	"maps"
	"sort"
	"strings"
	"time"
)

// Mount lifecycle verbs.
const (
	VerbMounted         = "mountstore.mounted"
	VerbUnmounted       = "mountstore.unmounted"
	VerbQueried         = "mountstore.queried"
	VerbReducerReplaced = "mountstore.reducer.replaced"
)

// ObjectTypeMount is the object type of every mount lifecycle event.
const ObjectTypeMount = "mount"

// MountEventInput describes the common fields for mount lifecycle events.
type MountEventInput struct {
	StoreID    string
	Path       string
	Host       string
	Aliases    []string
	Query      map[string]string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildMountedEvent constructs the event for a store attached at Path.
func BuildMountedEvent(input MountEventInput) Event {
	return buildMountEvent(VerbMounted, input)
}

// BuildUnmountedEvent constructs the event for a store removed from Path.
func BuildUnmountedEvent(input MountEventInput) Event {
	return buildMountEvent(VerbUnmounted, input)
}

// BuildQueriedEvent constructs the event for a granted query.
func BuildQueriedEvent(input MountEventInput) Event {
	return buildMountEvent(VerbQueried, input)
}

// BuildReducerReplacedEvent constructs the event for a swapped node reducer.
func BuildReducerReplacedEvent(input MountEventInput) Event {
	return buildMountEvent(VerbReducerReplaced, input)
}

func buildMountEvent(verb string, input MountEventInput) Event {
	metadata := maps.Clone(input.Metadata)
	if storeID := strings.TrimSpace(input.StoreID); storeID != "" {
		metadata = ensureMetadata(metadata)
		metadata["store_id"] = storeID
	}
	if host := strings.TrimSpace(input.Host); host != "" {
		metadata = ensureMetadata(metadata)
		metadata["host"] = host
	}
	if len(input.Aliases) > 0 {
		metadata = ensureMetadata(metadata)
		aliases := append([]string{}, input.Aliases...)
		sort.Strings(aliases)
		metadata["aliases"] = aliases
	}
	if len(input.Query) > 0 {
		metadata = ensureMetadata(metadata)
		query := make(map[string]string, len(input.Query))
		for alias, path := range input.Query {
			query[alias] = path
		}
		metadata["query"] = query
	}

	objectID := strings.TrimSpace(input.Path)
	if objectID == "" {
		objectID = "root"
	}

	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeMount,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
