package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPair is returned for symbols that are not two three-letter
// currency codes.
var ErrInvalidPair = errors.New("invalid currency pair")

// ValidatePair checks that s is a six-letter symbol such as "EURUSD".
func ValidatePair(s string) error {
	if len(s) != 6 {
		return fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return fmt.Errorf("%w: %q", ErrInvalidPair, s)
		}
	}
	if s[:3] == s[3:] {
		return fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	return nil
}

// ValidateCurrency checks for a three-letter upper case code.
func ValidateCurrency(c string) error {
	if len(c) != 3 || strings.ToUpper(c) != c {
		return fmt.Errorf("invalid currency %q", c)
	}
	return nil
}

// Base returns the first currency of the pair.
func Base(pair string) string { return pair[:3] }

// QuoteCurrency returns the second currency of the pair.
func QuoteCurrency(pair string) string { return pair[3:] }

// Invert swaps the currencies: EURUSD becomes USDEUR.
func Invert(pair string) string { return pair[3:] + pair[:3] }

// ToInstrument converts EURUSD into the broker form EUR_USD.
func ToInstrument(pair string) string { return pair[:3] + "_" + pair[3:] }

// FromInstrument converts EUR_USD into EURUSD.
func FromInstrument(instrument string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(instrument)), "_", "")
}
