package models

import (
	"bytes"
	"encoding/json"
)

// ID is the GraphQL ID scalar. Kabinet serializes all IDs as strings.
type ID = string

// NodeHash is the content hash that uniquely identifies a definition.
type NodeHash = string

// Any is the GraphQL Any/UntypedParams scalar. It holds raw JSON and is
// decoded lazily by callers that know the expected shape.
type Any = json.RawMessage

// IsNull reports whether a raw scalar is absent or the JSON literal null.
func IsNull(v Any) bool {
	trimmed := bytes.TrimSpace(v)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeAny unmarshals a raw scalar into dest. A null scalar leaves dest untouched.
func DecodeAny(v Any, dest interface{}) error {
	if IsNull(v) {
		return nil
	}
	return json.Unmarshal(v, dest)
}
