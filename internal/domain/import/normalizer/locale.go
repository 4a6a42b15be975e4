package normalizer

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// ErrUnparsableAmount is returned when no number can be read from an amount cell.
var ErrUnparsableAmount = errors.New("unparsable amount")

const canonicalDate = "2006-01-02"

// leadingNumber matches the longest base-10 float at the start of a string.
var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseLocaleAmount reads bank amounts written with a decimal comma and space
// thousands separators, e.g. "1 234,56" or "-12,50 PLN".
//
// All whitespace is removed, including no-break and thin spaces, and the first
// comma becomes the decimal point. The longest numeric prefix is then parsed,
// so trailing currency codes are ignored. Values too large for a float64, such
// as "1e400", are rejected.
func ParseLocaleAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	prefix := leadingNumber.FindString(cleaned)
	if prefix == "" {
		return decimal.Zero, ErrUnparsableAmount
	}
	amount, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero, ErrUnparsableAmount
	}
	if f, _ := amount.Float64(); math.IsInf(f, 0) {
		return decimal.Zero, ErrUnparsableAmount
	}
	return amount, nil
}

// ParseCanonicalDate accepts YYYY-MM-DD with an optional space-separated time
// part. Anything else yields today's date and ok=false so callers can count the
// substitution.
func ParseCanonicalDate(raw string, today time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	if t, err := time.Parse(canonicalDate, s); err == nil {
		return t, true
	}
	return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), false
}

// ParseOptionalDate is ParseCanonicalDate without the fallback: malformed or
// blank input yields nil.
func ParseOptionalDate(raw string) *time.Time {
	t, ok := ParseCanonicalDate(raw, time.Time{})
	if !ok {
		return nil
	}
	return &t
}
