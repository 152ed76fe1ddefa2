package record

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "France", String("France")},
		{"bool", true, Bool(true)},
		{"int", 42, Number(42)},
		{"int64", int64(-7), Number(-7)},
		{"float", 12.5, Number(12.5)},
		{"json number", json.Number("90"), Number(90)},
		{"value passthrough", String("x"), String("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Rejects(t *testing.T) {
	for _, in := range []any{math.NaN(), math.Inf(1), []any{1}, map[string]any{"a": 1}} {
		_, err := FromAny(in)
		assert.Error(t, err, "input %v", in)
	}
}

func TestFromAny_RejectsInvalidUTF8(t *testing.T) {
	for _, in := range []any{"\xff", String("ok\xfe")} {
		_, err := FromAny(in)
		assert.Error(t, err, "input %q", in)
	}

	_, err := NewFields(map[string]any{"a\xffb": "x"})
	assert.Error(t, err)

	v, err := FromAny("Åland ✓")
	require.NoError(t, err)
	assert.Equal(t, String("Åland ✓"), v)
}

func TestFieldsMarshalJSON_RejectsInvalidUTF8(t *testing.T) {
	_, err := Fields{"name": String("\xff")}.MarshalJSON()
	assert.Error(t, err)

	_, err = Fields{"\xff": Bool(true)}.MarshalJSON()
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindNull, Null{}.Kind())
	assert.Equal(t, KindString, String("").Kind())
	assert.Equal(t, KindNumber, Number(0).Kind())
	assert.Equal(t, KindBool, Bool(false).Kind())
	assert.Equal(t, "number", KindNumber.String())
}

func TestMerge_OnlyNamedFieldsChange(t *testing.T) {
	rec := New(1, MustFields(map[string]any{"fieldA": "a", "fieldB": "b"}))
	u := NewUpdate(1, MustFields(map[string]any{"fieldA": "x"}))

	merged := Merge(rec, u)

	assert.Equal(t, MustFields(map[string]any{"fieldA": "x", "fieldB": "b"}), merged.Fields)
	assert.Equal(t, String("a"), rec.Fields["fieldA"], "input record must not be modified")
}

func TestMerge_AddsAbsentFields(t *testing.T) {
	rec := New(2, MustFields(map[string]any{"country": "Chad"}))
	u := NewUpdate(2, MustFields(map[string]any{"latLon": "15.45, 18.73"}))

	merged := Merge(rec, u)

	assert.Len(t, merged.Fields, 2)
	assert.Equal(t, String("15.45, 18.73"), merged.Fields["latLon"])
}

func TestMerge_IgnoresID(t *testing.T) {
	rec := New(3, Fields{})
	merged := Merge(rec, NewUpdate(3, MustFields(map[string]any{"id": 99})))

	assert.Equal(t, ID(3), merged.ID)
	assert.NotContains(t, merged.Fields, "id")
}

func TestRecordGet(t *testing.T) {
	rec := New(7, MustFields(map[string]any{"progress": 50}))

	v, ok := rec.Get("id")
	require.True(t, ok)
	assert.Equal(t, Number(7), v)

	v, ok = rec.Get("progress")
	require.True(t, ok)
	assert.Equal(t, Number(50), v)

	_, ok = rec.Get("missing")
	assert.False(t, ok)
}

func TestRecordJSON(t *testing.T) {
	rec := New(4, MustFields(map[string]any{"title": "Task #5", "available": true, "progress": 12.5}))

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":4,"title":"Task #5","available":true,"progress":12.5}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestFromFlat_RequiresIntegerID(t *testing.T) {
	_, err := FromFlat(MustFields(map[string]any{"title": "x"}))
	assert.Error(t, err)

	_, err = FromFlat(MustFields(map[string]any{"id": 1.5}))
	assert.Error(t, err)

	_, err = FromFlat(MustFields(map[string]any{"id": "1"}))
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("12")
	require.NoError(t, err)
	assert.Equal(t, ID(12), id)
	assert.Equal(t, "12", id.String())

	_, err = ParseID("twelve")
	assert.Error(t, err)
}

func TestResult(t *testing.T) {
	ok := Succeeded(NewUpdate(5, MustFields(map[string]any{"a": 1})))
	assert.True(t, ok.OK())
	assert.Equal(t, ID(5), ok.RecordID)

	cause := errors.New("boom")
	failed := Failed(6, cause)
	assert.False(t, failed.OK())
	assert.Equal(t, ID(6), failed.RecordID)
	assert.Empty(t, failed.Update.Fields)
	assert.ErrorIs(t, failed.Err, cause)
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+E000 sorts before U+1F600 in UTF-8 but after it in UTF-16.
	f := Fields{"\U0001F600": Null{}, "\uE000": Null{}, "a": Null{}}
	assert.Equal(t, []string{"a", "\U0001F600", "\uE000"}, f.SortedKeys())
}
