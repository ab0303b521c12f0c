package postgresql

import (
	"encoding/json"
	"fmt"
)

// marshalMap encodes a map column, normalizing nil to an empty object.
func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON column: %w", err)
	}

	return raw, nil
}

// unmarshalMap decodes a map column, normalizing NULL to an empty map.
func unmarshalMap(raw []byte) (map[string]any, error) {
	if raw == nil {
		return map[string]any{}, nil
	}

	var m map[string]any

	err := json.Unmarshal(raw, &m)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON column: %w", err)
	}

	return m, nil
}
