package normalizer

import (
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
)

// Suggestion is a category proposed for an imported row.
type Suggestion struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Distance   int       `json:"distance"`
}

// SuggestCategory ranks the user's categories against the merchant's category
// hints. The subcategory hint is tried before the broader category hint; within
// a hint the smallest edit distance wins. Names are compared accent and case
// insensitively and either side may be a subsequence of the other.
func SuggestCategory(info MerchantInfo, tree *category.Tree) (Suggestion, bool) {
	if tree == nil {
		return Suggestion{}, false
	}

	var nodes []category.Category
	for _, m := range tree.Mains() {
		nodes = append(nodes, m.Category)
		for _, s := range m.Children {
			nodes = append(nodes, s.Category)
		}
	}

	for _, hint := range []string{info.Subcategory, info.Category} {
		if hint == "" {
			continue
		}
		best := Suggestion{Distance: -1}
		for _, c := range nodes {
			d := rank(hint, c.Name)
			if d < 0 {
				continue
			}
			if best.Distance < 0 || d < best.Distance {
				best = Suggestion{CategoryID: c.ID, Name: c.Name, Distance: d}
			}
		}
		if best.Distance >= 0 {
			return best, true
		}
	}
	return Suggestion{}, false
}

func rank(hint, name string) int {
	a := fuzzy.RankMatchNormalizedFold(hint, name)
	b := fuzzy.RankMatchNormalizedFold(name, hint)
	switch {
	case a < 0:
		return b
	case b < 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}
