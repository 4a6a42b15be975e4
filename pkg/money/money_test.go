package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
	}{
		{"zloty", "-12.50", PLN, -1250},
		{"whole number", "100", EUR, 10000},
		{"zero", "0", USD, 0},
		{"rounds half away from zero", "12.345", PLN, 1235},
		{"negative rounding", "-0.005", PLN, -1},
		{"yen has no minor unit", "1500", JPY, 1500},
		{"unknown code uses two decimals", "1.23", "XYZ", 123},
		{"empty code defaults to PLN", "3.10", "", 310},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinor(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromMinor(t *testing.T) {
	assert.True(t, FromMinor(-1250, PLN).Equal(decimal.RequireFromString("-12.5")))
	assert.True(t, FromMinor(1500, JPY).Equal(decimal.NewFromInt(1500)))
	assert.True(t, FromMinor(0, EUR).IsZero())
}

func TestMinorRoundTrip(t *testing.T) {
	for _, raw := range []string{"0.01", "-999.99", "1234.56", "-0.10"} {
		t.Run(raw, func(t *testing.T) {
			d := decimal.RequireFromString(raw)
			minor, err := ToMinor(d, PLN)
			require.NoError(t, err)
			back := FromMinor(minor, PLN)
			assert.True(t, d.Equal(back), "got %s", back)
		})
	}
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "$1,234.56", Display(decimal.RequireFromString("1234.56"), USD))
	assert.Equal(t, "12.30 XYZ", Display(decimal.RequireFromString("12.3"), "xyz"))
}

func TestToMinor_Overflow(t *testing.T) {
	for _, raw := range []string{"1e400", "-1e300", "92233720368547758.08"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ToMinor(decimal.RequireFromString(raw), PLN)
			assert.ErrorIs(t, err, ErrOverflow)
		})
	}

	got, err := ToMinor(decimal.RequireFromString("92233720368547758.07"), PLN)
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}

func TestDisplay_Overflow(t *testing.T) {
	assert.Equal(t, "100000000000000000000.00 PLN", Display(decimal.RequireFromString("1e20"), PLN))
}

func TestNewFromDecimal(t *testing.T) {
	m, err := NewFromDecimal(decimal.RequireFromString("2.50"), USD)
	require.NoError(t, err)
	assert.Equal(t, "$2.50", m.Display())

	_, err = NewFromDecimal(decimal.RequireFromString("1e30"), EUR)
	assert.ErrorIs(t, err, ErrOverflow)

	var nilMoney *Money
	assert.Equal(t, "", nilMoney.Display())
}
