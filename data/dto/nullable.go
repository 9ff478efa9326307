package dto

import "encoding/json"

// Nullable is a PATCH field that tells a key left out of the body apart
// from one sent as null. Set is true when the key was present; Value is nil
// when it was null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON only runs for keys present in the body.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Apply overwrites *dst when the field was sent.
func (n Nullable[T]) Apply(dst **T) {
	if n.Set {
		*dst = n.Value
	}
}
