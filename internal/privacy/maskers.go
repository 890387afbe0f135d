package privacy

import "strings"

// Replacement tokens for values that are redacted whole
const (
	RedactedEmail   = "[REDACTED_EMAIL]"
	RedactedAddress = "[REDACTED_ADDRESS]"
	RedactedIP      = "[REDACTED_IP]"
	RedactedDevice  = "[REDACTED_DEVICE]"
)

const maskChar = "X"

// MaskPhone keeps the first and last two characters around a fixed XXXXXX
func MaskPhone(phone string) string {
	r := []rune(phone)
	return string(head(r, 2)) + "XXXXXX" + string(tail(r, 2))
}

// MaskAadhar keeps only the last four digits
func MaskAadhar(aadhar string) string {
	return "XXXX XXXX " + string(tail([]rune(aadhar), 4))
}

// MaskPassport keeps the leading letter
func MaskPassport(passport string) string {
	return string(head([]rune(passport), 1)) + "XXXXXXX"
}

// MaskUPI hides part of the handle and keeps the provider. Values without
// an @ are returned unchanged.
func MaskUPI(upi string) string {
	handle, provider, ok := strings.Cut(upi, "@")
	if !ok {
		return upi
	}
	r := []rune(handle)
	return string(head(r, 2)) + "XXX" + string(r[len(head(r, 2)):]) + "@" + provider
}

// MaskName keeps the first character of every word. Word count and word
// lengths are preserved; words are re-joined with single spaces.
func MaskName(name string) string {
	parts := strings.Fields(name)
	for i, p := range parts {
		r := []rune(p)
		parts[i] = string(r[0]) + strings.Repeat(maskChar, len(r)-1)
	}
	return strings.Join(parts, " ")
}

// MaskEmail redacts the whole address
func MaskEmail(string) string {
	return RedactedEmail
}

// MaskAddress redacts the whole address
func MaskAddress(string) string {
	return RedactedAddress
}

// MaskIP redacts the whole IP address
func MaskIP(string) string {
	return RedactedIP
}

// MaskDevice redacts the whole device identifier
func MaskDevice(string) string {
	return RedactedDevice
}

func head(r []rune, n int) []rune {
	if len(r) < n {
		return r
	}
	return r[:n]
}

func tail(r []rune, n int) []rune {
	if len(r) < n {
		return r
	}
	return r[len(r)-n:]
}
