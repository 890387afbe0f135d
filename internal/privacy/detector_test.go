package privacy

import (
	"testing"

	"github.com/raaihank/pii-redactor/internal/config"
	"github.com/raaihank/pii-redactor/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewWithPolicy(DefaultPolicy(), logger.NewNop())
	require.NoError(t, err)
	return d
}

func text(t *testing.T, rec Record, field string) string {
	t.Helper()
	v, ok := rec.Get(field)
	require.True(t, ok, "field %s missing", field)
	return v.Text
}

func TestNew(t *testing.T) {
	t.Run("from config", func(t *testing.T) {
		d, err := New(config.PrivacyConfig{CombinationThreshold: 3}, logger.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 3, d.Policy().CombinationThreshold)
		assert.Len(t, d.Rules(), 9)
	})

	t.Run("rejects zero threshold", func(t *testing.T) {
		_, err := New(config.PrivacyConfig{}, logger.NewNop())
		assert.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		d, err := NewWithPolicy(DefaultPolicy(), nil)
		require.NoError(t, err)
		assert.False(t, d.Process(NewRecord()).ContainsPII)
	})
}

func TestRuleSetsAreDisjoint(t *testing.T) {
	seen := make(map[string]RuleKind)
	for _, rule := range GetDefaultRules() {
		_, dup := seen[rule.Field]
		assert.False(t, dup, "field %s bound twice", rule.Field)
		seen[rule.Field] = rule.Kind
		if rule.Kind == RuleStandalone {
			assert.NotNil(t, rule.Match, rule.Field)
		}
		assert.NotNil(t, rule.Mask, rule.Field)
	}
	assert.ElementsMatch(t, []string{
		"phone", "aadhar", "passport", "upi_id",
		"name", "email", "address", "ip_address", "device_id",
	}, RecognizedFields())
}

func TestDetectStandalone(t *testing.T) {
	d := newTestDetector(t)

	t.Run("phone masked", func(t *testing.T) {
		in := NewRecord(F("phone", "9876543210"))
		out, findings := d.DetectStandalone(in)
		require.Len(t, findings, 1)
		assert.Equal(t, "98XXXXXX10", text(t, out, "phone"))
		assert.Equal(t, Finding{Field: "phone", Category: CategoryPhone, Rule: RuleStandalone}, findings[0])
		assert.Equal(t, "9876543210", text(t, in, "phone"), "input must not be mutated")
	})

	t.Run("wrong length untouched", func(t *testing.T) {
		out, findings := d.DetectStandalone(NewRecord(F("phone", "98765")))
		assert.Empty(t, findings)
		assert.Equal(t, "98765", text(t, out, "phone"))
	})

	t.Run("non-ascii digits and letters", func(t *testing.T) {
		out, findings := d.DetectStandalone(NewRecord(
			F("phone", "९८७६५४३२१०"),
			F("upi_id", "rájá@upi"),
		))
		assert.Len(t, findings, 2)
		assert.Equal(t, "९८XXXXXX१०", text(t, out, "phone"))
		assert.Equal(t, "ráXXXjá@upi", text(t, out, "upi_id"))
	})

	t.Run("all four at once", func(t *testing.T) {
		out, findings := d.DetectStandalone(NewRecord(
			F("phone", "9876543210"),
			F("aadhar", "123456789012"),
			F("passport", "P1234567"),
			F("upi_id", "user@upi"),
		))
		assert.Len(t, findings, 4)
		assert.Equal(t, "98XXXXXX10", text(t, out, "phone"))
		assert.Equal(t, "XXXX XXXX 9012", text(t, out, "aadhar"))
		assert.Equal(t, "PXXXXXXX", text(t, out, "passport"))
		assert.Equal(t, "usXXXer@upi", text(t, out, "upi_id"))
	})

	t.Run("one match among misses", func(t *testing.T) {
		out, findings := d.DetectStandalone(NewRecord(
			F("phone", "123"),
			F("passport", "P1234567"),
		))
		require.Len(t, findings, 1)
		assert.Equal(t, "123", text(t, out, "phone"))
		assert.Equal(t, "PXXXXXXX", text(t, out, "passport"))
	})

	t.Run("null and empty are not matches", func(t *testing.T) {
		_, findings := d.DetectStandalone(NewRecord(
			Field{Name: "phone", Value: Null},
			F("aadhar", ""),
		))
		assert.Empty(t, findings)
	})

	t.Run("unrecognized fields ignored", func(t *testing.T) {
		out, findings := d.DetectStandalone(NewRecord(F("mobile", "9876543210")))
		assert.Empty(t, findings)
		assert.Equal(t, "9876543210", text(t, out, "mobile"))
	})
}

func TestDetectCombinatorial(t *testing.T) {
	d := newTestDetector(t)

	t.Run("two quasi identifiers", func(t *testing.T) {
		out, findings := d.DetectCombinatorial(NewRecord(
			F("name", "Asha Rao"),
			F("email", "a@b.com"),
		))
		assert.Len(t, findings, 2)
		assert.Equal(t, "AXXX RXX", text(t, out, "name"))
		assert.Equal(t, "[REDACTED_EMAIL]", text(t, out, "email"))
	})

	t.Run("single quasi identifier", func(t *testing.T) {
		out, findings := d.DetectCombinatorial(NewRecord(F("name", "Asha Rao")))
		assert.Empty(t, findings)
		assert.Equal(t, "Asha Rao", text(t, out, "name"))
	})

	t.Run("empty and null do not count", func(t *testing.T) {
		out, findings := d.DetectCombinatorial(NewRecord(
			F("name", "Asha Rao"),
			F("email", ""),
			Field{Name: "address", Value: Null},
		))
		assert.Empty(t, findings)
		assert.Equal(t, "Asha Rao", text(t, out, "name"))
		assert.Equal(t, "", text(t, out, "email"))
	})

	t.Run("only truthy fields masked", func(t *testing.T) {
		out, findings := d.DetectCombinatorial(NewRecord(
			F("address", "12 MG Road"),
			F("ip_address", "10.1.2.3"),
			F("device_id", ""),
			F("email", "x@y.in"),
		))
		assert.Len(t, findings, 3)
		assert.Equal(t, "[REDACTED_ADDRESS]", text(t, out, "address"))
		assert.Equal(t, "[REDACTED_IP]", text(t, out, "ip_address"))
		assert.Equal(t, "", text(t, out, "device_id"))
		assert.Equal(t, "[REDACTED_EMAIL]", text(t, out, "email"))
	})

	t.Run("all five", func(t *testing.T) {
		out, findings := d.DetectCombinatorial(NewRecord(
			F("name", "Ravi"),
			F("email", "r@k.com"),
			F("address", "Pune"),
			F("ip_address", "1.1.1.1"),
			F("device_id", "abc"),
		))
		assert.Len(t, findings, 5)
		assert.Equal(t, "[REDACTED_DEVICE]", text(t, out, "device_id"))
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		strict, err := NewWithPolicy(Policy{CombinationThreshold: 3}, nil)
		require.NoError(t, err)
		_, findings := strict.DetectCombinatorial(NewRecord(F("name", "Asha Rao"), F("email", "a@b.com")))
		assert.Empty(t, findings)

		loose, err := NewWithPolicy(Policy{CombinationThreshold: 1}, nil)
		require.NoError(t, err)
		out, findings := loose.DetectCombinatorial(NewRecord(F("name", "Asha Rao")))
		assert.Len(t, findings, 1)
		assert.Equal(t, "AXXX RXX", text(t, out, "name"))
	})
}

func TestProcess(t *testing.T) {
	d := newTestDetector(t)

	t.Run("empty record", func(t *testing.T) {
		result := d.Process(NewRecord())
		assert.False(t, result.ContainsPII)
		assert.Equal(t, 0, result.Record.Len())
		assert.Empty(t, result.Findings)
	})

	t.Run("zero value record", func(t *testing.T) {
		result := d.Process(Record{})
		assert.False(t, result.ContainsPII)
		assert.Equal(t, 0, result.Record.Len())
	})

	t.Run("end to end", func(t *testing.T) {
		in := NewRecord(
			F("phone", "9876543210"),
			F("name", "Asha Rao"),
			F("email", "a@b.com"),
			F("order_id", "A-1001"),
		)
		result := d.Process(in)

		assert.True(t, result.ContainsPII)
		assert.Equal(t, in.Keys(), result.Record.Keys())
		assert.Equal(t, "98XXXXXX10", text(t, result.Record, "phone"))
		assert.Equal(t, "AXXX RXX", text(t, result.Record, "name"))
		assert.Equal(t, "[REDACTED_EMAIL]", text(t, result.Record, "email"))
		assert.Equal(t, "A-1001", text(t, result.Record, "order_id"))
		assert.Equal(t, []Category{CategoryPhone, CategoryName, CategoryEmail}, result.Categories())
	})

	t.Run("no pii", func(t *testing.T) {
		in := NewRecord(F("phone", "12345"), F("name", "Asha"), F("city", "Pune"))
		result := d.Process(in)
		assert.False(t, result.ContainsPII)
		assert.Equal(t, in.Fields(), result.Record.Fields())
	})

	t.Run("detector order does not matter", func(t *testing.T) {
		records := []Record{
			NewRecord(F("phone", "9876543210"), F("name", "Asha Rao"), F("email", "a@b.com")),
			NewRecord(F("upi_id", "user@upi"), F("address", "Pune"), F("device_id", "d1")),
			NewRecord(F("aadhar", "123456789012"), F("name", "Asha")),
			NewRecord(F("ip_address", "1.2.3.4"), F("passport", "A7654321"), F("x", "y")),
		}
		for _, rec := range records {
			a, fa := d.DetectStandalone(rec)
			a, fb := d.DetectCombinatorial(a)

			b, gb := d.DetectCombinatorial(rec)
			b, ga := d.DetectStandalone(b)

			assert.Equal(t, a.Fields(), b.Fields())
			assert.Equal(t, len(fa)+len(fb) > 0, len(ga)+len(gb) > 0)
		}
	})
}
