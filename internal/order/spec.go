package order

import (
	"fmt"
	"strings"
)

// Direction is the order applied to one sort key.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts asc, ascending, desc and descending in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("%w: unknown direction %q", ErrInvalidKey, s)
	}
}

// Key is one (field, direction) entry of a Spec.
type Key struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

func (k Key) String() string {
	return k.Field + ":" + k.Direction.String()
}

// Spec is an ordered list of sort keys. Spec[0] is the primary key.
type Spec []Key

func (s Spec) String() string {
	parts := make([]string, len(s))
	for i, k := range s {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}

// Asc and Desc are shorthands for building a Spec by hand.
func Asc(field string) Key  { return Key{Field: field, Direction: Ascending} }
func Desc(field string) Key { return Key{Field: field, Direction: Descending} }

// ParseKey parses "field" or "field:direction", as sent by a column header
// control. A missing direction means ascending.
func ParseKey(s string) (Key, error) {
	field, dir, hasDir := strings.Cut(strings.TrimSpace(s), ":")
	field = strings.TrimSpace(field)
	if field == "" {
		return Key{}, fmt.Errorf("%w: empty field in %q", ErrInvalidKey, s)
	}
	k := Key{Field: field, Direction: Ascending}
	if hasDir {
		d, err := ParseDirection(dir)
		if err != nil {
			return Key{}, err
		}
		k.Direction = d
	}
	return k, nil
}

// ParseSpec parses each argument with ParseKey. An argument may itself hold
// several comma-separated keys, so both ParseSpec("a", "b:desc") and
// ParseSpec("a,b:desc") give the same Spec.
func ParseSpec(keys ...string) (Spec, error) {
	var spec Spec
	for _, arg := range keys {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, err := ParseKey(part)
			if err != nil {
				return nil, err
			}
			spec = append(spec, k)
		}
	}
	return spec, nil
}
