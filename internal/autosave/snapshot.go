package autosave

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrNotComparable is returned for snapshots that have no canonical form
// (functions, channels, cyclic values, NaN).
var ErrNotComparable = errors.New("snapshot is not comparable")

// captured is an isolated copy of a snapshot plus its canonical form.
type captured[T any] struct {
	value T
	canon any
}

// capture deep-copies v through a JSON round trip and computes its canonical form.
// The caller may mutate v afterwards without affecting the capture.
func capture[T any](v T) (captured[T], error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return captured[T]{}, fmt.Errorf("%w: %v", ErrNotComparable, err)
	}

	var clone T
	if err := json.Unmarshal(payload, &clone); err != nil {
		return captured[T]{}, fmt.Errorf("%w: %v", ErrNotComparable, err)
	}

	canon, err := canonical(payload)
	if err != nil {
		return captured[T]{}, err
	}
	return captured[T]{value: clone, canon: canon}, nil
}

// equal reports whether two captures hold structurally equal data.
func (c captured[T]) equal(o captured[T]) bool {
	return reflect.DeepEqual(c.canon, o.canon)
}

// canonical decodes a JSON payload into generic maps/slices so that equality
// does not depend on key order or on the concrete Go types involved.
func canonical(payload []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotComparable, err)
	}
	return out, nil
}
