// Package dedup flags imported transactions that already exist in the store.
package dedup

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

// AmountTolerance is the largest absolute amount difference still treated as equal (exclusive).
var AmountTolerance = decimal.New(1, -2)

// IndexSet holds candidate positions.
type IndexSet map[int]struct{}

// Has reports whether i is in the set.
func (s IndexSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Sorted returns the indices in ascending order.
func (s IndexSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// FindDuplicates returns the positions of candidates matching any existing
// record: same calendar date, amounts closer than AmountTolerance and matching
// merchants. It has no side effects; callers decide what to do with the result.
func FindDuplicates(candidates []transaction.Parsed, existing []transaction.Fingerprint) IndexSet {
	byDate := make(map[string][]transaction.Fingerprint, len(existing))
	for _, e := range existing {
		key := e.DateKey()
		byDate[key] = append(byDate[key], e)
	}

	dups := make(IndexSet)
	for i, c := range candidates {
		fp := c.Fingerprint()
		for _, e := range byDate[fp.DateKey()] {
			if IsDuplicate(fp, e) {
				dups[i] = struct{}{}
				break
			}
		}
	}
	return dups
}

// IsDuplicate applies the matching rule to a pair. It is symmetric.
func IsDuplicate(a, b transaction.Fingerprint) bool {
	if a.DateKey() != b.DateKey() {
		return false
	}
	if a.Amount.Sub(b.Amount).Abs().GreaterThanOrEqual(AmountTolerance) {
		return false
	}
	return merchantsMatch(a.Merchant, b.Merchant)
}

// merchantsMatch accepts equal strings or one contained in the other, which
// covers merchants truncated differently by different export formats. Two
// absent merchants match; one absent merchant does not.
func merchantsMatch(a, b *string) bool {
	x, y := normalize(a), normalize(b)
	if x == "" || y == "" {
		return x == y
	}
	return x == y || strings.Contains(x, y) || strings.Contains(y, x)
}

func normalize(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
