// Package schema decodes the loosely typed JSON rows returned by the GridLive
// API while enforcing the fields every consumer relies on.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MissingFieldError reports a required field absent from an upstream record.
type MissingFieldError struct {
	Record string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s record is missing required field %q", e.Record, e.Field)
}

// Fields splits a JSON object into its raw members.
func Fields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("expected a JSON object, got %s", bytes.TrimSpace(data))
	}
	return fields, nil
}

// Require returns a *MissingFieldError for the first key that is absent or null.
func Require(record string, fields map[string]json.RawMessage, keys ...string) error {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok || IsNull(raw) {
			return &MissingFieldError{Record: record, Field: k}
		}
	}
	return nil
}

// IsNull reports whether raw is the JSON null literal.
func IsNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ID decodes an identifier that the API may send either as a string or a number.
func ID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || IsNull(raw) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("identifier %s is neither string nor number", raw)
	}
	return n.String(), nil
}

// String decodes an optional string member; absent or null yields "".
func String(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || IsNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

// Float decodes a numeric member, accepting numbers encoded as strings.
func Float(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	err := json.Unmarshal(raw, &f)
	return f, err
}
