package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the lowercase kind name used in grid specs and errors.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a sealed interface for the scalar cell types a record can hold.
// Only Null, String, Number and Bool implement it.
type Value interface {
	Kind() Kind
	value()
}

// Null is a field that is present but empty.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// String is a text cell.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Number is a numeric cell. NaN and infinities are never stored.
type Number float64

func (Number) Kind() Kind { return KindNumber }
func (Number) value()     {}

// String renders the number the way it is written in canonical JSON.
func (n Number) String() string {
	return formatNumber(float64(n))
}

// Bool is a checkbox cell.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// FromAny converts a decoded JSON or YAML scalar into a Value.
// Nested arrays and objects are rejected: cells are scalars.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case String:
		return newString(string(val))
	case Value:
		return val, nil
	case string:
		return newString(val)
	case bool:
		return Bool(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return newNumber(float64(val))
	case float64:
		return newNumber(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", val.String(), err)
		}
		return newNumber(f)
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}

// newString rejects invalid UTF-8, which JSON storage would silently
// replace with U+FFFD.
func newString(s string) (Value, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("string %q is not valid UTF-8", s)
	}
	return String(s), nil
}

func newNumber(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return Number(f), nil
}

// ToAny converts a Value back to a plain Go scalar.
func ToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// Fields maps field names to cell values.
type Fields map[string]Value

// NewFields builds Fields from plain Go scalars.
func NewFields(m map[string]any) (Fields, error) {
	fields := make(Fields, len(m))
	for k, raw := range m {
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("field name %q is not valid UTF-8", k)
		}
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		fields[k] = v
	}
	return fields, nil
}

// MustFields is like NewFields but panics on error.
// Use only in tests or with literal inputs.
func MustFields(m map[string]any) Fields {
	f, err := NewFields(m)
	if err != nil {
		panic(err)
	}
	return f
}

// Clone returns a copy of the field map. Values are immutable scalars,
// so a shallow copy is a full copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in UTF-16 code unit order (RFC 8785).
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// MarshalJSON writes fields with sorted keys.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("field name %q is not valid UTF-8", k)
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalValue(f[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of scalars, keeping numbers exact
// until they are converted.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	fields, err := NewFields(raw)
	if err != nil {
		return err
	}
	*f = fields
	return nil
}

func marshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		if !utf8.ValidString(string(val)) {
			return nil, fmt.Errorf("string %q is not valid UTF-8", string(val))
		}
		return json.Marshal(string(val))
	case Number:
		return []byte(formatNumber(float64(val))), nil
	case Bool:
		return json.Marshal(bool(val))
	default:
		return nil, fmt.Errorf("unknown value type %T", v)
	}
}

// formatNumber renders the shortest representation that round-trips.
// Exponent form is only used outside [1e-6, 1e21).
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
