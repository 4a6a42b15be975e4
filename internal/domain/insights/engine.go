// Package insights computes dashboard analytics over a user's transactions.
package insights

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights/daterange"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

const (
	// UncategorizedID identifies the bucket for transactions without a resolvable category.
	UncategorizedID   = "uncategorized"
	uncategorizedName = "Uncategorized"
	unknownMerchant   = "Unknown"

	DefaultTopMerchants = 10
)

// Totals summarizes a period.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Largest  decimal.Decimal `json:"largest"`
	AvgDaily decimal.Decimal `json:"avg_daily"`
	Count    int             `json:"count"`
}

// Bucket is one slice of a category chart.
type Bucket struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Value    decimal.Decimal `json:"value"`
	Color    string          `json:"color"`
	ParentID string          `json:"parent_id,omitempty"`
	Count    int             `json:"count"`
	Display  string          `json:"display,omitempty"`
}

// SeriesPoint is one time bucket keyed YYYY-MM or YYYY-MM-DD.
type SeriesPoint struct {
	Key      string          `json:"key"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// MerchantTotal is expense spending at one merchant.
type MerchantTotal struct {
	Merchant string          `json:"merchant"`
	Value    decimal.Decimal `json:"value"`
	Count    int             `json:"count"`
	Display  string          `json:"display,omitempty"`
}

// Backlog counts transactions that still need a category.
type Backlog struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Dashboard is every aggregate for one period.
type Dashboard struct {
	Token      daterange.Token `json:"token"`
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Totals     Totals          `json:"totals"`
	Categories []Bucket        `json:"categories"`
	Series     []SeriesPoint   `json:"series"`
	Merchants  []MerchantTotal `json:"merchants"`
	Backlog    Backlog         `json:"backlog"`
}

// DashboardInput carries the data Build aggregates. Period holds the
// range-scoped transactions and History every transaction of the user.
type DashboardInput struct {
	Token   daterange.Token
	Now     time.Time
	Period  []transaction.Stored
	History []transaction.Stored
	Tree    *category.Tree
}

// Engine aggregates in-memory transaction sets. It holds no state between calls.
type Engine struct {
	topMerchants int
	logger       *slog.Logger
}

// NewEngine creates an engine that reports the top 10 merchants.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{topMerchants: DefaultTopMerchants, logger: logger}
}

// WithTopMerchants changes how many merchants TopMerchants keeps.
func (e *Engine) WithTopMerchants(n int) *Engine {
	if n > 0 {
		e.topMerchants = n
	}
	return e
}

// Totals sums income and expenses. activeDays below 1 is treated as 1.
func (e *Engine) Totals(txs []transaction.Stored, activeDays int) Totals {
	t := Totals{
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Largest:  decimal.Zero,
		AvgDaily: decimal.Zero,
		Count:    len(txs),
	}
	for _, tx := range txs {
		switch {
		case tx.Amount.IsPositive():
			t.Income = t.Income.Add(tx.Amount)
		case tx.Amount.IsNegative():
			abs := tx.Amount.Abs()
			t.Expenses = t.Expenses.Add(abs)
			if abs.GreaterThan(t.Largest) {
				t.Largest = abs
			}
		}
	}

	if activeDays < 1 {
		activeDays = 1
	}
	t.AvgDaily = t.Expenses.Div(decimal.NewFromInt(int64(activeDays))).Round(2)

	e.logger.Debug("computed totals",
		slog.Int("transactions", t.Count),
		slog.Int("active_days", activeDays),
		slog.String("expenses", t.Expenses.String()),
	)
	return t
}

// ExpensesByCategory groups expenses by main category. Subcategory spending
// rolls up into its parent and anything unresolvable lands in the
// uncategorized bucket. Buckets are sorted by value, largest first.
func (e *Engine) ExpensesByCategory(txs []transaction.Stored, tree *category.Tree) []Bucket {
	acc := newAccumulator()
	dangling := 0

	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}
		abs := tx.Amount.Abs()

		if tx.CategoryID == nil {
			acc.addUncategorized(abs)
			continue
		}
		root, ok := tree.RollUp(*tx.CategoryID)
		if !ok {
			dangling++
			acc.addUncategorized(abs)
			continue
		}
		acc.add(root.ID.String(), abs, func() Bucket {
			return Bucket{ID: root.ID.String(), Name: root.Name, Color: root.Color}
		})
	}

	if dangling > 0 {
		e.logger.Debug("expenses with unknown category counted as uncategorized", slog.Int("count", dangling))
	}
	return acc.sorted()
}

// SubcategoryBreakdown re-aggregates the expenses of one main category at
// child granularity. Spending posted directly to the parent gets its own bucket.
func (e *Engine) SubcategoryBreakdown(txs []transaction.Stored, tree *category.Tree, parentID uuid.UUID) ([]Bucket, error) {
	parent, ok := tree.Main(parentID)
	if !ok {
		if _, exists := tree.Lookup(parentID); exists {
			return nil, fmt.Errorf("category %s: %w", parentID, category.ErrInvalidParent)
		}
		return nil, fmt.Errorf("category %s: %w", parentID, category.ErrNotFound)
	}

	acc := newAccumulator()
	for _, tx := range txs {
		if !tx.Amount.IsNegative() || tx.CategoryID == nil {
			continue
		}
		node, ok := tree.Lookup(*tx.CategoryID)
		if !ok {
			continue
		}

		var rec category.Category
		switch n := node.(type) {
		case *category.Main:
			if n.ID != parent.ID {
				continue
			}
			rec = n.Category
		case *category.Sub:
			if n.Parent.ID != parent.ID {
				continue
			}
			rec = n.Category
		}

		acc.add(rec.ID.String(), tx.Amount.Abs(), func() Bucket {
			b := Bucket{ID: rec.ID.String(), Name: rec.Name, Color: rec.Color}
			if rec.ParentID != nil {
				b.ParentID = rec.ParentID.String()
			}
			return b
		})
	}
	return acc.sorted(), nil
}

// TimeSeries buckets income and expenses by day or month, ordered by key.
func (e *Engine) TimeSeries(txs []transaction.Stored, granularity daterange.Bucketing) []SeriesPoint {
	layout := granularity.Layout()
	points := make(map[string]*SeriesPoint)

	for _, tx := range txs {
		key := tx.TransactionDate.Format(layout)
		p, ok := points[key]
		if !ok {
			p = &SeriesPoint{Key: key, Income: decimal.Zero, Expenses: decimal.Zero}
			points[key] = p
		}
		switch {
		case tx.Amount.IsPositive():
			p.Income = p.Income.Add(tx.Amount)
		case tx.Amount.IsNegative():
			p.Expenses = p.Expenses.Add(tx.Amount.Abs())
		}
	}

	out := make([]SeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	// Both layouts are zero-padded, so string order is chronological.
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TopMerchants ranks merchants by expense total.
func (e *Engine) TopMerchants(txs []transaction.Stored) []MerchantTotal {
	totals := make(map[string]*MerchantTotal)
	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}
		name := tx.MerchantName()
		if name == "" {
			name = unknownMerchant
		}
		m, ok := totals[name]
		if !ok {
			m = &MerchantTotal{Merchant: name, Value: decimal.Zero}
			totals[name] = m
		}
		m.Value = m.Value.Add(tx.Amount.Abs())
		m.Count++
	}

	out := make([]MerchantTotal, 0, len(totals))
	for _, m := range totals {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Merchant < out[j].Merchant
	})
	if len(out) > e.topMerchants {
		out = out[:e.topMerchants]
	}
	return out
}

// UncategorizedBacklog counts transactions of any sign with no category.
// Callers pass the full history, not a period.
func (e *Engine) UncategorizedBacklog(txs []transaction.Stored) Backlog {
	b := Backlog{Total: decimal.Zero}
	for _, tx := range txs {
		if tx.CategoryID != nil {
			continue
		}
		b.Count++
		b.Total = b.Total.Add(tx.Amount.Abs())
	}
	return b
}

// Build assembles a dashboard for in.Token relative to in.Now.
func (e *Engine) Build(in DashboardInput) (*Dashboard, error) {
	r, err := daterange.Resolve(in.Token, in.Now)
	if err != nil {
		return nil, err
	}

	period := make([]transaction.Stored, 0, len(in.Period))
	from, to := r.Dates()
	for _, tx := range in.Period {
		if tx.TransactionDate.Before(from) || tx.TransactionDate.After(to) {
			continue
		}
		period = append(period, tx)
	}

	return &Dashboard{
		Token:      in.Token,
		Start:      r.Start,
		End:        r.End,
		Totals:     e.Totals(period, daterange.ActiveDays(in.Token, in.Now)),
		Categories: e.ExpensesByCategory(period, in.Tree),
		Series:     e.TimeSeries(period, daterange.Granularity(in.Token)),
		Merchants:  e.TopMerchants(period),
		Backlog:    e.UncategorizedBacklog(in.History),
	}, nil
}

type accumulator struct {
	buckets map[string]*Bucket
}

func newAccumulator() *accumulator {
	return &accumulator{buckets: make(map[string]*Bucket)}
}

func (a *accumulator) add(id string, value decimal.Decimal, create func() Bucket) {
	b, ok := a.buckets[id]
	if !ok {
		nb := create()
		nb.Value = decimal.Zero
		b = &nb
		a.buckets[id] = b
	}
	b.Value = b.Value.Add(value)
	b.Count++
}

func (a *accumulator) addUncategorized(value decimal.Decimal) {
	a.add(UncategorizedID, value, func() Bucket {
		return Bucket{ID: UncategorizedID, Name: uncategorizedName, Color: category.DefaultColor}
	})
}

func (a *accumulator) sorted() []Bucket {
	out := make([]Bucket, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
