package payload

import (
	"testing"

	"github.com/raaihank/pii-redactor/internal/privacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("keeps key order and normalizes values", func(t *testing.T) {
		doc, err := Decode([]byte(`{"phone": 9876543210, "name": "Asha Rao", "vip": true, "tags": [1, 2], "note": null}`))
		require.NoError(t, err)

		rec := doc.Record()
		assert.Equal(t, []string{"phone", "name", "vip", "tags", "note"}, rec.Keys())

		v, _ := rec.Get("phone")
		assert.Equal(t, privacy.Text("9876543210"), v)
		v, _ = rec.Get("vip")
		assert.Equal(t, privacy.Text("true"), v)
		v, _ = rec.Get("tags")
		assert.Equal(t, privacy.Text("[1,2]"), v)
		v, _ = rec.Get("note")
		assert.Equal(t, privacy.Null, v)
	})

	t.Run("zero values are not truthy", func(t *testing.T) {
		doc, err := Decode([]byte(`{"a": 0, "b": 0.0, "c": false, "d": {}, "e": [], "f": "", "g": 7, "h": [0], "i": true}`))
		require.NoError(t, err)

		rec := doc.Record()
		for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
			v, _ := rec.Get(name)
			assert.False(t, v.Truthy(), name)
		}
		for _, name := range []string{"g", "h", "i"} {
			v, _ := rec.Get(name)
			assert.True(t, v.Truthy(), name)
		}
		v, _ := rec.Get("b")
		assert.Equal(t, "0.0", v.Text)
	})

	t.Run("duplicate key", func(t *testing.T) {
		doc, err := Decode([]byte(`{"a": "1", "b": "2", "a": "3"}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, doc.Record().Keys())
		v, _ := doc.Record().Get("a")
		assert.Equal(t, "3", v.Text)
	})

	t.Run("empty object", func(t *testing.T) {
		doc, err := Decode([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, 0, doc.Record().Len())
	})

	malformed := map[string]string{
		"not json":      `phone: 123`,
		"array":         `[1, 2]`,
		"string":        `"hello"`,
		"truncated":     `{"phone": "98`,
		"trailing data": `{"a": 1} {"b": 2}`,
		"empty":         ``,
	}
	for name, in := range malformed {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := Decode([]byte(in))
			assert.Error(t, err)

			doc := DecodeOrEmpty([]byte(in))
			assert.Equal(t, 0, doc.Record().Len())
		})
	}

	t.Run("array is ErrNotObject", func(t *testing.T) {
		_, err := Decode([]byte(`[]`))
		assert.ErrorIs(t, err, ErrNotObject)
	})
}

func TestEncode(t *testing.T) {
	t.Run("unchanged fields keep their encoding", func(t *testing.T) {
		in := `{"id": 42, "meta": {"a": [1, 2]}, "ok": false, "x": null, "s": "a<b"}`
		doc, err := Decode([]byte(in))
		require.NoError(t, err)

		out, err := doc.Encode(doc.Record())
		require.NoError(t, err)
		assert.Equal(t, `{"id": 42, "meta": {"a":[1,2]}, "ok": false, "x": null, "s": "a<b"}`, string(out))
	})

	t.Run("redacted fields become strings", func(t *testing.T) {
		doc, err := Decode([]byte(`{"phone": 9876543210, "name": "Asha Rao", "email": "a@b.com", "city": "Pune"}`))
		require.NoError(t, err)

		detector, err := privacy.NewWithPolicy(privacy.DefaultPolicy(), nil)
		require.NoError(t, err)
		result := detector.Process(doc.Record())
		require.True(t, result.ContainsPII)

		out, err := doc.Encode(result.Record)
		require.NoError(t, err)
		assert.Equal(t,
			`{"phone": "98XXXXXX10", "name": "AXXX RXX", "email": "[REDACTED_EMAIL]", "city": "Pune"}`,
			string(out))
	})

	t.Run("empty quasi-identifiers do not count", func(t *testing.T) {
		detector, err := privacy.NewWithPolicy(privacy.DefaultPolicy(), nil)
		require.NoError(t, err)

		inputs := []string{
			`{"name": "Asha Rao", "address": {}}`,
			`{"name": "Asha Rao", "address": []}`,
			`{"name": "Asha Rao", "device_id": 0}`,
			`{"name": "Asha Rao", "ip_address": false}`,
		}
		for _, in := range inputs {
			doc, err := Decode([]byte(in))
			require.NoError(t, err)

			result := detector.Process(doc.Record())
			assert.False(t, result.ContainsPII, in)

			out, err := doc.Encode(result.Record)
			require.NoError(t, err)
			assert.Equal(t, in, string(out))
		}
	})

	t.Run("empty document", func(t *testing.T) {
		out, err := Empty().Encode(Empty().Record())
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(out))
	})

	t.Run("record without document", func(t *testing.T) {
		out, err := EncodeRecord(privacy.NewRecord(
			privacy.F("a", "1"),
			privacy.Field{Name: "b", Value: privacy.Null},
		))
		require.NoError(t, err)
		assert.Equal(t, `{"a": "1", "b": null}`, string(out))
	})
}
