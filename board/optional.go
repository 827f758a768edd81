// ABOUTME: OptionalField[T] implements 3-state JSON semantics: absent, null, or value.
// ABOUTME: Used for partial card updates where null means "clear" (e.g. unlink a parent).
package board

import (
	"bytes"
	"encoding/json"
)

// OptionalField represents a field that can be absent from a partial update,
// explicitly null, or carry a value. The distinction matters for links: a
// null parent_id unlinks the card, while an absent one leaves it untouched.
//
//   - Set=false:             field absent (don't update)
//   - Set=true, Valid=false: field is JSON null (clear the value)
//   - Set=true, Valid=true:  field has a value (set to Value)
type OptionalField[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Absent returns an OptionalField representing a missing field.
func Absent[T any]() OptionalField[T] {
	return OptionalField[T]{}
}

// Null returns an OptionalField representing an explicit null.
func Null[T any]() OptionalField[T] {
	return OptionalField[T]{Set: true}
}

// Of returns an OptionalField carrying a concrete value.
func Of[T any](v T) OptionalField[T] {
	return OptionalField[T]{Set: true, Valid: true, Value: v}
}

// MarshalJSON emits null for Set && !Valid, and the value for Set && Valid.
// Absent fields must be omitted by the parent struct's custom marshal; if
// called anyway, an absent field marshals as null.
func (o OptionalField[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON sets the field state from the JSON value. A JSON null sets
// Set=true, Valid=false; any other value sets both.
func (o *OptionalField[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Valid = false
		return nil
	}
	o.Valid = true
	return json.Unmarshal(data, &o.Value)
}
