// Package payload converts the JSON object embedded in each input row to a
// privacy.Record and back, preserving key order and the original encoding of
// every field the detectors leave alone.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/raaihank/pii-redactor/internal/privacy"
)

// ErrNotObject is returned when the payload is valid JSON but not an object
var ErrNotObject = errors.New("payload is not a JSON object")

// Document is a decoded payload. It remembers the raw JSON of every field
// so unchanged values are written back byte-for-byte.
type Document struct {
	record privacy.Record
	raw    map[string]json.RawMessage
}

// Empty returns the document used in place of a malformed payload
func Empty() *Document {
	return &Document{record: privacy.NewRecord(), raw: map[string]json.RawMessage{}}
}

// Decode parses a JSON object. Strings become text, numbers keep their
// literal text, booleans, objects and arrays become their compact JSON text
// and null becomes an absent value. Zero, false, {} and [] keep their text
// but are not truthy. A repeated key keeps its first position
// and takes the last value.
func Decode(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	doc := &Document{raw: make(map[string]json.RawMessage)}
	var fields []privacy.Field

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("read value of %q: %w", key, err)
		}

		var compacted bytes.Buffer
		if err := json.Compact(&compacted, raw); err != nil {
			return nil, fmt.Errorf("compact value of %q: %w", key, err)
		}
		raw = compacted.Bytes()

		value, err := valueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, err)
		}

		fields = append(fields, privacy.Field{Name: key, Value: value})
		doc.raw[key] = raw
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read payload end: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after payload")
	}

	doc.record = privacy.NewRecord(fields...)
	return doc, nil
}

// DecodeOrEmpty decodes data and falls back to an empty document when the
// payload is malformed
func DecodeOrEmpty(data []byte) *Document {
	doc, err := Decode(data)
	if err != nil {
		return Empty()
	}
	return doc
}

// Record returns the decoded record
func (d *Document) Record() privacy.Record {
	return d.record
}

// Encode serializes rec in its key order with ", " and ": " separators.
// Fields whose value equals the decoded one keep their original JSON.
func (d *Document) Encode(rec privacy.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, f := range rec.Fields() {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := writeString(&buf, f.Name); err != nil {
			return nil, err
		}
		buf.WriteString(": ")

		if orig, ok := d.record.Get(f.Name); ok && orig == f.Value {
			if raw, ok := d.raw[f.Name]; ok {
				buf.Write(raw)
				continue
			}
		}

		if !f.Value.Present {
			buf.WriteString("null")
			continue
		}
		if err := writeString(&buf, f.Value.Text); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeRecord serializes a record that did not come from a Document
func EncodeRecord(rec privacy.Record) ([]byte, error) {
	return Empty().Encode(rec)
}

func valueOf(raw json.RawMessage) (privacy.Value, error) {
	if len(raw) == 0 {
		return privacy.Null, errors.New("empty value")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return privacy.Null, err
		}
		return privacy.Text(s), nil
	case 'n':
		return privacy.Null, nil
	case 't':
		return privacy.Text(string(raw)), nil
	case 'f':
		return privacy.Empty(string(raw)), nil
	case '{', '[':
		// raw is compacted, so an empty container is exactly two bytes
		if len(raw) == 2 {
			return privacy.Empty(string(raw)), nil
		}
		return privacy.Text(string(raw)), nil
	default:
		// numbers are matched on their JSON text
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == 0 {
			return privacy.Empty(string(raw)), nil
		}
		return privacy.Text(string(raw)), nil
	}
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode string: %w", err)
	}
	// Encode appends a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
