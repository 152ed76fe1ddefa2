package order

import (
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// Type is the declared comparison type of a column.
type Type int

const (
	TypeAny Type = iota
	TypeString
	TypeNumber
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	default:
		return "any"
	}
}

// ParseType maps a column type name to a Type. The empty string means any.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "any":
		return TypeAny, nil
	case "string":
		return TypeString, nil
	case "number":
		return TypeNumber, nil
	case "bool", "boolean":
		return TypeBool, nil
	default:
		return TypeAny, fmt.Errorf("unknown column type %q", s)
	}
}

// kind is the record value kind a declared type compares.
func (t Type) kind() (record.Kind, bool) {
	switch t {
	case TypeString:
		return record.KindString, true
	case TypeNumber:
		return record.KindNumber, true
	case TypeBool:
		return record.KindBool, true
	default:
		return 0, false
	}
}

// Schema lists the sortable columns and their declared types.
// The id column is always recognized as a number.
type Schema map[string]Type

// Lookup returns the declared type of field.
func (s Schema) Lookup(field string) (Type, bool) {
	if field == record.IDField {
		return TypeNumber, true
	}
	t, ok := s[field]
	return t, ok
}

// Validate checks that every key in spec names a recognized column.
// The first unrecognized key is returned as an *UnsupportedKeyError.
func (s Schema) Validate(spec Spec) error {
	for _, k := range spec {
		if _, ok := s.Lookup(k.Field); !ok {
			return &UnsupportedKeyError{Key: k.Field}
		}
	}
	return nil
}
