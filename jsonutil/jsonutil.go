// Package jsonutil contains various utilities for dealing with json data.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Remarshal marshals an object to Json then parses it back to another object.
// This is useful for example when we want to go from map[string]any
// to a more specific struct type or if we want a deep copy of the object.
func Remarshal(obj any, remarshalledObj any) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshaling object: %w", err)
	}

	err = json.Unmarshal(b, remarshalledObj)
	if err != nil {
		return fmt.Errorf("unmarshaling object: %w", err)
	}

	return nil
}

// Unmarshal unmarshals raw json content to an object.
func Unmarshal(content []byte, dest any) error {
	if err := json.Unmarshal(content, dest); err != nil {
		return fmt.Errorf("unmarshaling JSON content: %w", err)
	}

	return nil
}

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
