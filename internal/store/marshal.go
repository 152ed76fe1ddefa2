package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/gridfill/internal/record"
)

// marshalFields converts fields to JSON TEXT for storage.
// Keys are written in canonical order so identical rows store identical text.
func marshalFields(f record.Fields) (string, error) {
	if f == nil {
		f = record.Fields{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses JSON TEXT to fields.
// Numbers are decoded through json.Number to avoid float parsing surprises.
func unmarshalFields(data string) (record.Fields, error) {
	if data == "" || data == "{}" {
		return record.Fields{}, nil
	}
	var f record.Fields
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return f, nil
}
