package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	t.Run("keeps insertion order", func(t *testing.T) {
		r := NewRecord(F("b", "1"), F("a", "2"), F("c", "3"))
		assert.Equal(t, []string{"b", "a", "c"}, r.Keys())
	})

	t.Run("duplicate name keeps first position and last value", func(t *testing.T) {
		r := NewRecord(F("a", "1"), F("b", "2"), F("a", "3"))
		assert.Equal(t, []string{"a", "b"}, r.Keys())
		v, _ := r.Get("a")
		assert.Equal(t, "3", v.Text)
	})

	t.Run("replace copies", func(t *testing.T) {
		r := NewRecord(F("a", "1"), F("b", "2"))
		out := r.replace(map[string]string{"a": "X", "zz": "ignored"})

		v, _ := r.Get("a")
		assert.Equal(t, "1", v.Text)
		v, _ = out.Get("a")
		assert.Equal(t, "X", v.Text)
		assert.Equal(t, r.Keys(), out.Keys())
	})

	t.Run("fields returns a copy", func(t *testing.T) {
		r := NewRecord(F("a", "1"))
		fields := r.Fields()
		fields[0].Value = Text("changed")
		v, _ := r.Get("a")
		assert.Equal(t, "1", v.Text)
	})

	t.Run("map skips null", func(t *testing.T) {
		r := NewRecord(F("a", "1"), Field{Name: "b", Value: Null})
		assert.Equal(t, map[string]string{"a": "1"}, r.Map())
	})

	t.Run("from map sorts keys", func(t *testing.T) {
		r := FromMap(map[string]string{"z": "1", "a": "2"})
		assert.Equal(t, []string{"a", "z"}, r.Keys())
	})

	t.Run("truthy", func(t *testing.T) {
		assert.True(t, Text("x").Truthy())
		assert.False(t, Text("").Truthy())
		assert.False(t, Null.Truthy())
		assert.False(t, Empty("0").Truthy())
		assert.False(t, Empty("{}").Truthy())
		assert.Equal(t, "false", Empty("false").Text)
	})
}
