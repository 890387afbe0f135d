package privacy

import "regexp"

// Compiled full-value formats for the standalone categories. Digits are any
// Unicode decimal digit and word characters any letter, number or underscore,
// so Devanagari numerals and accented handles are caught too.
var (
	phonePattern    = regexp.MustCompile(`^\p{Nd}{10}$`)
	aadharPattern   = regexp.MustCompile(`^\p{Nd}{12}$`)
	passportPattern = regexp.MustCompile(`^[A-Z]\p{Nd}{7}$`)
	upiPattern      = regexp.MustCompile(`^[\p{L}\p{N}_]+@[\p{L}\p{N}_]+$`)
)

// IsPhone reports whether value is exactly 10 digits
func IsPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// IsAadhar reports whether value is exactly 12 digits
func IsAadhar(value string) bool {
	return aadharPattern.MatchString(value)
}

// IsPassport reports whether value is one uppercase letter followed by 7 digits
func IsPassport(value string) bool {
	return passportPattern.MatchString(value)
}

// IsUPI reports whether value looks like handle@provider
func IsUPI(value string) bool {
	return upiPattern.MatchString(value)
}
