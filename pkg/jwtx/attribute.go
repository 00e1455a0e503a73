package jwtx

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
)

// Attribute is a directory-supplied claim value: either a single string or a
// list of strings. The shape survives a JSON round trip, so a one-element list
// stays a list.
type Attribute struct {
	values []string
	list   bool
}

// String returns a single-valued attribute.
func String(v string) Attribute {
	return Attribute{values: []string{v}}
}

// Strings returns a list-valued attribute. The slice is copied.
func Strings(v ...string) Attribute {
	return Attribute{values: slices.Clone(v), list: true}
}

// IsList reports whether the attribute was built as a list.
func (a Attribute) IsList() bool { return a.list }

// Value returns the single value, or the first list element, or "".
func (a Attribute) Value() string {
	if len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

// Values returns a copy of all values.
func (a Attribute) Values() []string { return slices.Clone(a.values) }

// Contains reports whether v is one of the values.
func (a Attribute) Contains(v string) bool { return slices.Contains(a.values, v) }

// Equal compares shape and values.
func (a Attribute) Equal(b Attribute) bool {
	return a.list == b.list && slices.Equal(a.values, b.values)
}

func (a Attribute) MarshalJSON() ([]byte, error) {
	if a.list {
		if a.values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.values)
	}
	return json.Marshal(a.Value())
}

func (a *Attribute) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("jwtx: empty attribute")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = String(s)
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = Attribute{values: list, list: true}
		if a.values == nil {
			a.values = []string{}
		}
		return nil
	default:
		return errors.New("jwtx: attribute must be a string or an array of strings")
	}
}

// CloneAttributes deep-copies an attribute map. A nil map stays nil.
func CloneAttributes(in map[string]Attribute) map[string]Attribute {
	if in == nil {
		return nil
	}
	out := make(map[string]Attribute, len(in))
	for k, v := range in {
		out[k] = Attribute{values: slices.Clone(v.values), list: v.list}
	}
	return out
}
