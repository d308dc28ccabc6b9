//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseEntityID tests that parsing never panics on arbitrary input and
// always returns either a valid ID or an error.
func FuzzParseEntityID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE entities;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseEntityID(input)

		if err == nil {
			roundTrip, err2 := ParseEntityID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseCurrency verifies currency parsing is total and normalizing.
func FuzzParseCurrency(f *testing.F) {
	f.Add("EUR")
	f.Add("usd")
	f.Add("")
	f.Add("EURO")
	f.Add("€€€")

	f.Fuzz(func(t *testing.T, input string) {
		c, err := ParseCurrency(input)
		if err != nil {
			return
		}
		if len(string(c)) != 3 {
			t.Errorf("accepted currency %q is not three bytes", c)
		}
		again, err := ParseCurrency(string(c))
		if err != nil {
			t.Errorf("normalized currency failed re-parse: %v", err)
		}
		if again != c {
			t.Error("normalization is not idempotent")
		}
	})
}
