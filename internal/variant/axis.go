package variant

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Value is one allowed value of an axis. Color-type axes carry a swatch
// color next to the label.
type Value struct {
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// MarshalJSON writes plain labels as bare strings
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Color == "" {
		return json.Marshal(v.Label)
	}
	type plain Value
	return json.Marshal(plain(v))
}

// UnmarshalJSON accepts either "label" or {"label": ..., "color": ...}
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*v = Value{Label: label}
		return nil
	}

	type plain Value
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("variant value must be a string or {label, color}: %w", err)
	}
	*v = Value(p)
	return nil
}

// Axis is a named attribute (e.g. "Size") with its ordered allowed values
type Axis struct {
	Name   string  `json:"name"`
	Values []Value `json:"values"`
}

// Labels returns the value labels in declaration order
func (a Axis) Labels() []string {
	labels := make([]string, len(a.Values))
	for i, v := range a.Values {
		labels[i] = v.Label
	}
	return labels
}

func (a Axis) usable() bool {
	return strings.TrimSpace(a.Name) != "" && len(a.Values) > 0
}

// Axes is the ordered list of a product's variant axes
type Axes []Axis

// HasVariants reports whether at least one axis contributes combinations
func (a Axes) HasVariants() bool {
	for _, axis := range a {
		if axis.usable() {
			return true
		}
	}
	return false
}

// Contains reports whether key names exactly one allowed value for every
// usable axis and nothing else.
func (a Axes) Contains(key string) bool {
	if !a.HasVariants() {
		return false
	}
	selection := ParseKey(key)

	matched := 0
	for _, axis := range a {
		if !axis.usable() {
			continue
		}
		chosen, ok := selection[axis.Name]
		if !ok {
			return false
		}
		found := false
		for _, v := range axis.Values {
			if v.Label == chosen {
				found = true
				break
			}
		}
		if !found {
			return false
		}
		matched++
	}
	return matched == len(selection)
}

// UnmarshalJSON accepts the ordered list form
// [{"name":"Size","values":["S","M"]}] as well as the object form
// {"Size":["S","M"]}; the object form keeps the document's key order.
func (a *Axes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}

	if data[0] == '[' {
		var list []Axis
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("variants must be a list or an object")
	}

	var axes Axes
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errors.New("variant axis name must be a string")
		}
		var values []Value
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("variant axis %q: %w", name, err)
		}
		axes = append(axes, Axis{Name: name, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = axes
	return nil
}

// Value implements driver.Valuer for JSONB columns
func (a Axes) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Axis(a))
}

// Scan implements sql.Scanner for JSONB columns
func (a *Axes) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into variant.Axes", src)
	}
}
