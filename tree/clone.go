package tree

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// Clone returns a deep copy of value so later mutation by the caller cannot
// leak into a tree that adopted it.
func Clone(value map[string]any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	var out map[string]any
	if err := deepcopy.Copy(&out, &value); err != nil {
		return nil, fmt.Errorf("tree: clone: %w", err)
	}
	return out, nil
}
