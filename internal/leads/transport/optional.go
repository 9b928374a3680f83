package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// OptionalUUID records whether assignedRepId was present in the body. Null
// and "" both decode to a present field with a nil Value.
type OptionalUUID struct {
	Value *uuid.UUID
	Set   bool
}

func (o OptionalUUID) IsZero() bool { return !o.Set }

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	*o = OptionalUUID{Set: true}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("assignedRepId must be a string: %w", err)
	}
	if raw == "" {
		return nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("assignedRepId: %w", err)
	}
	o.Value = &id
	return nil
}

// OptionalString records whether a nullable text field was present in the
// body. Null and "" both mean clear the stored value.
type OptionalString struct {
	Value *string
	Set   bool
}

func (o OptionalString) IsZero() bool { return !o.Set }

// Cleared reports whether the field was sent empty or null.
func (o OptionalString) Cleared() bool {
	return o.Set && (o.Value == nil || *o.Value == "")
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	*o = OptionalString{Set: true}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expected a string: %w", err)
	}
	o.Value = &raw
	return nil
}

// OptionalStringValue exposes the wrapped text to validation tags. Absent
// and cleared fields validate as "".
func OptionalStringValue(field reflect.Value) any {
	o, ok := field.Interface().(OptionalString)
	if !ok || o.Value == nil {
		return ""
	}
	return *o.Value
}
