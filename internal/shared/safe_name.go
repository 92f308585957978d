// Package shared holds small helpers used by more than one layer.
package shared

import (
	"strings"
)

const hexDigits = "0123456789abcdef"

// SafeIdentifier escapes value so the result only contains ASCII letters,
// digits and underscores. Letters and digits are kept; every other byte,
// underscore included, becomes "_" followed by two lowercase hex digits.
// The escape is injective, so distinct inputs never collapse.
func SafeIdentifier(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if isAlnum(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('_')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// IsSafeIdentifier reports whether value only contains ASCII letters,
// digits and underscores.
func IsSafeIdentifier(value string) bool {
	for i := 0; i < len(value); i++ {
		if c := value[i]; !isAlnum(c) && c != '_' {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
