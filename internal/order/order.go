package order

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/gridfill/internal/record"
)

// Sorter orders records by a Spec. It is immutable and safe for concurrent
// use; each Sort call builds its own collator.
type Sorter struct {
	schema Schema
	tag    language.Tag
}

// Option configures a Sorter.
type Option func(*Sorter)

// WithLanguage sets the collation language for string columns.
// The default is language.Und (root collation).
func WithLanguage(tag language.Tag) Option {
	return func(s *Sorter) {
		s.tag = tag
	}
}

// New creates a Sorter for the given schema.
func New(schema Schema, opts ...Option) *Sorter {
	s := &Sorter{
		schema: make(Schema, len(schema)),
		tag:    language.Und,
	}
	for k, v := range schema {
		s.schema[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schema returns the recognized columns.
func (s *Sorter) Schema() Schema {
	return s.schema
}

// Sort returns a new slice holding records ordered by spec. The input slice
// is never modified. Every key is validated before any comparison, so an
// unsupported key returns an *UnsupportedKeyError and no ordering at all.
// An empty spec returns a copy in the original order.
func (s *Sorter) Sort(records []record.Record, spec Spec) ([]record.Record, error) {
	compare, err := s.Comparator(spec)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(records)
	if out == nil {
		out = []record.Record{}
	}
	if len(spec) == 0 {
		return out, nil
	}
	slices.SortStableFunc(out, compare)
	return out, nil
}

// Comparator returns the composed compare function for spec, for callers
// that sort their own slices. The returned function holds a collator and
// must not be called from multiple goroutines at once.
func (s *Sorter) Comparator(spec Spec) (func(a, b record.Record) int, error) {
	if err := s.schema.Validate(spec); err != nil {
		return nil, err
	}

	type boundKey struct {
		field string
		typ   Type
		sign  int
	}
	keys := make([]boundKey, len(spec))
	for i, k := range spec {
		t, _ := s.schema.Lookup(k.Field)
		sign := 1
		if k.Direction == Descending {
			sign = -1
		}
		keys[i] = boundKey{field: k.Field, typ: t, sign: sign}
	}

	col := collate.New(s.tag)
	return func(a, b record.Record) int {
		for _, k := range keys {
			av, _ := a.Get(k.field)
			bv, _ := b.Get(k.field)
			if c := compareValues(col, k.typ, av, bv); c != 0 {
				return k.sign * c
			}
		}
		return 0
	}, nil
}

// compareValues compares two cells under a declared type. Values that are
// absent or not of the declared kind compare as equal.
func compareValues(col *collate.Collator, t Type, a, b record.Value) int {
	if a == nil || b == nil {
		return 0
	}
	if want, ok := t.kind(); ok {
		if a.Kind() != want || b.Kind() != want {
			return 0
		}
	} else if a.Kind() != b.Kind() {
		return 0
	}

	switch av := a.(type) {
	case record.String:
		return col.CompareString(string(av), string(b.(record.String)))
	case record.Number:
		return cmp.Compare(float64(av), float64(b.(record.Number)))
	case record.Bool:
		return compareBool(bool(av), bool(b.(record.Bool)))
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
