package privacy

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomDigits(r *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('0' + r.Intn(10)))
	}
	return b.String()
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "98XXXXXX10", MaskPhone("9876543210"))

	t.Run("shape holds for random numbers", func(t *testing.T) {
		r := rand.New(rand.NewSource(1))
		for i := 0; i < 200; i++ {
			p := randomDigits(r, 10)
			m := MaskPhone(p)
			require.Len(t, m, len(p))
			assert.Equal(t, p[:2], m[:2])
			assert.Equal(t, p[8:], m[8:])
			assert.Equal(t, "XXXXXX", m[2:8])
		}
	})

	t.Run("short values do not panic", func(t *testing.T) {
		assert.Equal(t, "XXXXXX", MaskPhone(""))
		assert.Equal(t, "9XXXXXX9", MaskPhone("9"))
	})
}

func TestMaskAadhar(t *testing.T) {
	assert.Equal(t, "XXXX XXXX 9012", MaskAadhar("123456789012"))

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		a := randomDigits(r, 12)
		m := MaskAadhar(a)
		assert.True(t, strings.HasPrefix(m, "XXXX XXXX "), m)
		assert.True(t, strings.HasSuffix(m, a[8:]), m)
	}
}

func TestMaskPassport(t *testing.T) {
	assert.Equal(t, "PXXXXXXX", MaskPassport("P1234567"))
	assert.Equal(t, "XXXXXXX", MaskPassport(""))
}

func TestMaskUPI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"user@upi", "usXXXer@upi"},
		{"ab@ybl", "abXXX@ybl"},
		{"a@ybl", "aXXX@ybl"},
		{"a@b@c", "aXXX@b@c"},
		{"noatsign", "noatsign"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskUPI(tt.in))
		})
	}
}

func TestMaskName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Asha Rao", "AXXX RXX"},
		{"Priya", "PXXXX"},
		{"  Ravi   Kumar  Singh ", "RXXX KXXXX SXXXX"},
		{"J", "J"},
		{"Zoë Ángel", "ZXX ÁXXXX"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, MaskName(tt.in))
		})
	}
}

func TestWholeValueMaskers(t *testing.T) {
	assert.Equal(t, "[REDACTED_EMAIL]", MaskEmail("a@b.com"))
	assert.Equal(t, "[REDACTED_ADDRESS]", MaskAddress("12 MG Road, Pune"))
	assert.Equal(t, "[REDACTED_IP]", MaskIP("10.0.0.1"))
	assert.Equal(t, "[REDACTED_DEVICE]", MaskDevice("dev-123"))
}
