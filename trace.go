package mountstore

import (
	json "github.com/goccy/go-json"
)

// ViewTrace reports how each viewed field of a mounted store was derived.
type ViewTrace struct {
	Path   string       `json:"path"`
	Host   string       `json:"host,omitempty"`
	State  string       `json:"state"`
	Fields []FieldTrace `json:"fields"`
}

// FieldTrace details a single alias of a view.
type FieldTrace struct {
	Alias    string `json:"alias"`
	Kind     string `json:"kind"`
	Source   Source `json:"source"`
	Spec     string `json:"spec,omitempty"`
	Value    any    `json:"value,omitempty"`
	Resolved bool   `json:"resolved"`
}

// Trace describes the view of the store from its last cache refresh. Nothing
// is re-evaluated.
func (m *Mounted) Trace() ViewTrace {
	n := m.node
	trace := ViewTrace{
		Path:   n.full,
		Host:   n.host,
		State:  n.state(),
		Fields: make([]FieldTrace, 0, len(n.aliases)),
	}
	for _, alias := range n.aliases {
		b := n.bindings[alias]
		value, resolved := n.cache.viewed[alias]
		trace.Fields = append(trace.Fields, FieldTrace{
			Alias:    alias,
			Kind:     b.kind,
			Source:   b.source,
			Spec:     b.spec,
			Value:    value,
			Resolved: resolved,
		})
	}
	return trace
}

// ToJSON serialises the trace for logging or transport helpers.
func (t ViewTrace) ToJSON() ([]byte, error) {
	type alias ViewTrace
	return json.Marshal(alias(t))
}

// ViewTraceFromJSON deserialises a payload produced by ToJSON.
func ViewTraceFromJSON(payload []byte) (ViewTrace, error) {
	type alias ViewTrace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return ViewTrace{}, err
	}
	return ViewTrace(trace), nil
}
