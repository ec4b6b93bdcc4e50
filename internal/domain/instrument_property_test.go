package domain

import (
	"testing"

	"pgregory.net/rapid"
)

const (
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	upperAlnum   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits       = "0123456789"
)

// genISIN generates a string that has the ISIN shape.
func genISIN() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		b := make([]byte, 0, 12)
		for i := 0; i < 2; i++ {
			b = append(b, rapid.SampledFrom([]byte(upperLetters)).Draw(t, "prefix"))
		}
		for i := 0; i < 9; i++ {
			b = append(b, rapid.SampledFrom([]byte(upperAlnum)).Draw(t, "body"))
		}
		b = append(b, rapid.SampledFrom([]byte(digits)).Draw(t, "check"))
		return string(b)
	})
}

func TestProperty_WellFormedISINAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		code := genISIN().Draw(t, "isin")
		if !IsValidISIN(code) {
			t.Fatalf("IsValidISIN(%q) = false for well-formed code", code)
		}
	})
}

func TestProperty_WrongLengthRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.StringMatching(`[A-Z0-9]{0,11}|[A-Z0-9]{13,20}`).Draw(t, "code")
		if IsValidISIN(code) {
			t.Fatalf("IsValidISIN(%q) = true for length %d", code, len(code))
		}
	})
}

func TestProperty_ExistsImpliesValidFormat(t *testing.T) {
	r, err := NewInstrumentRegistry(DefaultCatalog())
	if err != nil {
		t.Fatalf("NewInstrumentRegistry: %v", err)
	}
	rapid.Check(t, func(t *rapid.T) {
		code := rapid.OneOf(
			genISIN(),
			rapid.SampledFrom([]string{"US0378331005", "GB0002875804"}),
			rapid.String(),
		).Draw(t, "code")

		// Format validation is pattern-only and deterministic.
		if IsValidISIN(code) != IsValidISIN(code) {
			t.Fatalf("IsValidISIN(%q) not deterministic", code)
		}
		if r.Exists(code) && !IsValidISIN(code) {
			t.Fatalf("Exists(%q) = true for malformed code", code)
		}
	})
}
