package record

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DomainSnapshot prefixes snapshot digests. The version suffix leaves room
// for changing the encoding later.
const DomainSnapshot = "gridfill/snapshot/v1"

// MarshalCanonical produces canonical JSON for a record:
// keys sorted by UTF-16 code units, strings NFC-normalized, no HTML
// escaping, shortest round-trip numbers.
func MarshalCanonical(r Record) ([]byte, error) {
	flat := r.Fields.Clone()
	flat[IDField] = Number(r.ID)
	return marshalCanonicalFields(flat)
}

// MarshalCanonicalSnapshot produces a canonical JSON array of records in
// the given order.
func MarshalCanonicalSnapshot(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalCanonical(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Digest computes a content hash of a snapshot, SHA256(domain + 0x00 + json).
// Equal snapshots in equal order always hash equal.
func Digest(records []Record) (string, error) {
	data, err := MarshalCanonicalSnapshot(records)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests.
func MustDigest(records []Record) string {
	d, err := Digest(records)
	if err != nil {
		panic(err)
	}
	return d
}

func marshalCanonicalFields(f Fields) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		var vb []byte
		switch v := f[k].(type) {
		case String:
			vb, err = marshalCanonicalString(string(v))
		default:
			vb, err = marshalValue(v)
		}
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(buf.String(), "\n")), nil
}
