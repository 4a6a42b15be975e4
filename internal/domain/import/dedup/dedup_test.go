package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

func day(s string) time.Time {
	t, _ := time.Parse(transaction.DateLayout, s)
	return t
}

func str(s string) *string { return &s }

func candidate(date, amount string, merchant *string) transaction.Parsed {
	return transaction.Parsed{
		TransactionDate: day(date),
		Amount:          decimal.RequireFromString(amount),
		Merchant:        merchant,
	}
}

func TestFindDuplicates_SubstringMerchant(t *testing.T) {
	existing := []transaction.Fingerprint{{Date: day("2024-01-05"), Amount: decimal.NewFromInt(-50), Merchant: str("Amazon")}}
	candidates := []transaction.Parsed{candidate("2024-01-05", "-50.00", str("Amazon.com"))}

	dups := FindDuplicates(candidates, existing)
	assert.True(t, dups.Has(0))
	assert.Equal(t, []int{0}, dups.Sorted())
}

func TestFindDuplicates_Rules(t *testing.T) {
	existing := []transaction.Fingerprint{
		{Date: day("2024-01-05"), Amount: decimal.RequireFromString("-50"), Merchant: str("Amazon")},
		{Date: day("2024-01-06"), Amount: decimal.RequireFromString("-10"), Merchant: nil},
	}

	tests := []struct {
		name string
		tx   transaction.Parsed
		want bool
	}{
		{"exact", candidate("2024-01-05", "-50", str("Amazon")), true},
		{"amount within tolerance", candidate("2024-01-05", "-50.009", str("Amazon")), true},
		{"amount at tolerance", candidate("2024-01-05", "-50.01", str("Amazon")), false},
		{"different date", candidate("2024-01-04", "-50", str("Amazon")), false},
		{"merchant contained in existing", candidate("2024-01-05", "-50", str("Amaz")), true},
		{"merchant case differs", candidate("2024-01-05", "-50", str("AMAZON")), false},
		{"merchant unrelated", candidate("2024-01-05", "-50", str("Allegro")), false},
		{"merchant whitespace ignored", candidate("2024-01-05", "-50", str(" Amazon ")), true},
		{"both merchants absent", candidate("2024-01-06", "-10", nil), true},
		{"blank equals absent", candidate("2024-01-06", "-10", str("  ")), true},
		{"one merchant absent", candidate("2024-01-05", "-50", nil), false},
		{"absent existing vs present candidate", candidate("2024-01-06", "-10", str("Lidl")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dups := FindDuplicates([]transaction.Parsed{tt.tx}, existing)
			assert.Equal(t, tt.want, dups.Has(0))
		})
	}
}

func TestFindDuplicates_Symmetric(t *testing.T) {
	pairs := [][2]transaction.Parsed{
		{candidate("2024-01-05", "-50", str("Amazon")), candidate("2024-01-05", "-50.00", str("Amazon.com"))},
		{candidate("2024-02-01", "12.34", str("ZUS")), candidate("2024-02-01", "12.335", str("Przelew ZUS"))},
		{candidate("2024-02-01", "1", str("Lidl")), candidate("2024-02-01", "1", str("Biedronka"))},
	}

	for _, p := range pairs {
		a, b := p[0], p[1]
		ab := FindDuplicates([]transaction.Parsed{a}, []transaction.Fingerprint{b.Fingerprint()}).Has(0)
		ba := FindDuplicates([]transaction.Parsed{b}, []transaction.Fingerprint{a.Fingerprint()}).Has(0)
		assert.Equal(t, ab, ba, "%s vs %s", a.MerchantName(), b.MerchantName())
	}
}

func TestFindDuplicates_Empty(t *testing.T) {
	assert.Empty(t, FindDuplicates(nil, nil))
	assert.Empty(t, FindDuplicates([]transaction.Parsed{candidate("2024-01-01", "1", nil)}, nil))
}

func TestFindDuplicates_MultipleCandidates(t *testing.T) {
	existing := []transaction.Fingerprint{{Date: day("2024-03-01"), Amount: decimal.RequireFromString("-12.5"), Merchant: str("Lidl")}}
	candidates := []transaction.Parsed{
		candidate("2024-03-01", "-12.50", str("Lidl Warszawa")),
		candidate("2024-03-01", "-99", str("Lidl")),
		candidate("2024-03-01", "-12.5", str("Lidl")),
	}

	assert.Equal(t, []int{0, 2}, FindDuplicates(candidates, existing).Sorted())
}
