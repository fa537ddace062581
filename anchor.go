package tideline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Anchor is the primary ordering value of a reference row. Request offsets are
// interpreted relative to the anchor's position in the sort order. The zero
// Anchor is null.
type Anchor struct {
	value any
	valid bool
}

var NullAnchor = Anchor{}

// AnchorOf wraps a column value. A nil value yields the null anchor.
func AnchorOf(value any) Anchor {
	if normalizeValue(value) == nil {
		return NullAnchor
	}
	return Anchor{value: value, valid: true}
}

// ParseAnchor decodes the wire encoding of an anchor: a JSON scalar, or "null".
// The empty string is also null.
func ParseAnchor(encoded string) (Anchor, error) {
	if encoded == "" {
		return NullAnchor, nil
	}
	decoder := json.NewDecoder(bytes.NewReader([]byte(encoded)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return NullAnchor, ValidationError{Message: fmt.Sprintf("invalid anchor '%s'", encoded)}
	}
	switch v := value.(type) {
	case nil:
		return NullAnchor, nil
	case json.Number:
		return AnchorOf(normalizeValue(v)), nil
	case string, bool:
		return AnchorOf(v), nil
	default:
		return NullAnchor, ValidationError{Message: fmt.Sprintf("anchor must be a scalar, got '%s'", encoded)}
	}
}

func (anchor Anchor) IsNull() bool {
	return !anchor.valid
}

func (anchor Anchor) Value() any {
	return anchor.value
}

// Equal reports whether a column value matches the anchor.
func (anchor Anchor) Equal(value any) bool {
	if !anchor.valid {
		return false
	}
	cmp, ok := compareValues(anchor.value, value)
	return ok && cmp == 0
}

// String returns the wire encoding.
func (anchor Anchor) String() string {
	if !anchor.valid {
		return "null"
	}
	encoded, err := json.Marshal(anchor.value)
	if err != nil {
		return "null"
	}
	return string(encoded)
}

func (anchor Anchor) MarshalJSON() ([]byte, error) {
	return json.Marshal(anchor.String())
}

func (anchor *Anchor) UnmarshalJSON(data []byte) error {
	var encoded *string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if encoded == nil {
		*anchor = NullAnchor
		return nil
	}
	parsed, err := ParseAnchor(*encoded)
	if err != nil {
		return err
	}
	*anchor = parsed
	return nil
}

// resolveAnchor establishes the anchor for a page load by asking for the
// newest row. A null anchor with a nil error means the source is empty.
func resolveAnchor[T any](ctx context.Context, adapter *sourceAdapter[T], orderings Orderings) (Anchor, error) {
	nodes, err := adapter.retrieve(ctx, RootConstraint(orderings))
	if err != nil {
		return NullAnchor, err
	}
	if len(nodes) == 0 {
		return NullAnchor, nil
	}
	return adapter.anchorOf(nodes[0])
}
