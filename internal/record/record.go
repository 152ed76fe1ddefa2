package record

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// IDField is the field name that resolves to a record's identifier.
const IDField = "id"

// ID is a record's stable identifier.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseID parses a decimal record identifier.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: %w", s, err)
	}
	return ID(n), nil
}

// Record is one row of grid data. The ID never changes; Fields change only
// through the store applying an Update.
type Record struct {
	ID     ID     `json:"id"`
	Fields Fields `json:"fields"`
}

// New creates a record with a copy of fields.
func New(id ID, fields Fields) Record {
	return Record{ID: id, Fields: fields.Clone()}
}

// Get returns the value of a field. The "id" key resolves to the identifier
// as a Number.
func (r Record) Get(key string) (Value, bool) {
	if key == IDField {
		return Number(r.ID), true
	}
	v, ok := r.Fields[key]
	return v, ok
}

// Clone returns a record whose field map can be mutated independently.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: r.Fields.Clone()}
}

// MarshalJSON flattens the record into a single object: {"id": 1, ...fields}.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := r.Fields.Clone()
	flat[IDField] = Number(r.ID)
	return flat.MarshalJSON()
}

// UnmarshalJSON reads the flattened form produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat Fields
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	rec, err := FromFlat(flat)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// FromFlat splits a flat field map into identifier and fields.
// The "id" entry is required and must be an integral number.
func FromFlat(flat Fields) (Record, error) {
	raw, ok := flat[IDField]
	if !ok {
		return Record{}, fmt.Errorf("record is missing %q", IDField)
	}
	n, ok := raw.(Number)
	if !ok || float64(n) != float64(int64(n)) {
		return Record{}, fmt.Errorf("record %q must be an integer, got %v", IDField, raw)
	}
	fields := flat.Clone()
	delete(fields, IDField)
	return Record{ID: ID(int64(n)), Fields: fields}, nil
}

// Update is a partial update scoped to one record. It names only the fields
// it changes.
type Update struct {
	RecordID ID     `json:"record_id"`
	Fields   Fields `json:"fields"`
}

// NewUpdate creates an update for id with a copy of fields.
func NewUpdate(id ID, fields Fields) Update {
	return Update{RecordID: id, Fields: fields.Clone()}
}

// Merge applies u to rec and returns the merged record. Fields named by u
// overwrite and the rest are untouched; rec itself is not modified.
// The identifier is immutable, so an "id" entry in u is ignored.
func Merge(rec Record, u Update) Record {
	out := rec.Clone()
	for k, v := range u.Fields {
		if k == IDField {
			continue
		}
		out.Fields[k] = v
	}
	return out
}
