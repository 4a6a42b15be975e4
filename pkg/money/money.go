// Package money converts between decimal amounts and integer minor units using the
// ISO-4217 fraction table from go-money, and renders amounts for display.
// Amounts travel through the domain as decimal.Decimal and are stored as minor units.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	PLN = "PLN" // Polish Zloty, the default account currency
	EUR = "EUR" // Euro
	USD = "USD" // US Dollar
	GBP = "GBP" // British Pound
	CHF = "CHF" // Swiss Franc
	JPY = "JPY" // Japanese Yen (no decimal places)
)

// defaultFraction is used for codes go-money does not know about.
const defaultFraction = 2

// ErrOverflow is returned when an amount does not fit in int64 minor units.
var ErrOverflow = errors.New("amount overflows minor units")

// Money is a monetary value in minor units plus its currency.
type Money struct {
	m *money.Money
}

// New creates Money from minor units (grosze, cents).
func New(minor int64, currencyCode string) *Money {
	return &Money{m: money.New(minor, normalizeCode(currencyCode))}
}

// NewFromDecimal creates Money from a decimal amount, rounding half away from zero
// to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) (*Money, error) {
	minor, err := ToMinor(amount, currencyCode)
	if err != nil {
		return nil, err
	}
	return New(minor, currencyCode), nil
}

// ToMinor converts a decimal amount into minor units for the given currency.
func ToMinor(amount decimal.Decimal, currencyCode string) (int64, error) {
	multiplier := decimal.New(1, int32(Fraction(currencyCode)))
	minor := amount.Mul(multiplier).Round(0)
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s %s", ErrOverflow, amount.String(), normalizeCode(currencyCode))
	}
	return minor.IntPart(), nil
}

// FromMinor converts minor units back into a decimal amount.
func FromMinor(minor int64, currencyCode string) decimal.Decimal {
	return decimal.New(minor, -int32(Fraction(currencyCode)))
}

// Fraction returns the number of decimal places of a currency.
func Fraction(currencyCode string) int {
	if c := money.GetCurrency(normalizeCode(currencyCode)); c != nil {
		return c.Fraction
	}
	return defaultFraction
}

// Display formats a decimal amount with the currency's symbol and separators
// (e.g. "$1,234.56", "1 234,56 zł"). Unknown codes, and amounts too large for
// minor units, fall back to "<amount> <CODE>".
func Display(amount decimal.Decimal, currencyCode string) string {
	code := normalizeCode(currencyCode)
	if money.GetCurrency(code) == nil {
		return amount.StringFixed(defaultFraction) + " " + code
	}
	m, err := NewFromDecimal(amount, code)
	if err != nil {
		return amount.StringFixed(int32(Fraction(code))) + " " + code
	}
	return m.Display()
}

// Display returns a formatted string for display
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PLN
	}
	return code
}
