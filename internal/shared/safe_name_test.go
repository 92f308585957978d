package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSafeIdentifier(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"abc123":        "abc123",
		"a_b":           "a_5fb",
		"feature/x":     "feature_2fx",
		"1.0 (main)":    "1_2e0_20_28main_29",
		"UPPER-lower.0": "UPPER_2dlower_2e0",
	}
	for input, want := range tests {
		assert.Equal(t, want, SafeIdentifier(input), "%q", input)
		assert.True(t, IsSafeIdentifier(SafeIdentifier(input)))
	}
	assert.False(t, IsSafeIdentifier("a-b"))
	assert.True(t, IsSafeIdentifier("a_b"))
}

func TestSafeIdentifierIsInjective(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.String().Draw(rt, "a")
		b := rapid.String().Draw(rt, "b")
		if a != b && SafeIdentifier(a) == SafeIdentifier(b) {
			rt.Fatalf("%q and %q share the identifier %q", a, b, SafeIdentifier(a))
		}
		if !IsSafeIdentifier(SafeIdentifier(a)) {
			rt.Fatalf("unsafe identifier for %q", a)
		}
	})
}
