package insights_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights/daterange"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

func newEngine() *insights.Engine {
	return insights.NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(date time.Time, amount string, categoryID *uuid.UUID, merchant string) transaction.Stored {
	return transaction.Stored{
		Parsed: transaction.Parsed{
			TransactionDate: date,
			Amount:          decimal.RequireFromString(amount),
			Currency:        transaction.DefaultCurrency,
			Merchant:        transaction.StringPtr(merchant),
		},
		ID:         uuid.New(),
		CategoryID: categoryID,
	}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

type fixture struct {
	tree      *category.Tree
	food      category.Category
	groceries category.Category
	bars      category.Category
	transport category.Category
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		food:      category.Category{ID: uuid.New(), Name: "Food", Color: "#ff0000"},
		transport: category.Category{ID: uuid.New(), Name: "Transport", Color: "#0000ff"},
	}
	f.groceries = category.Category{ID: uuid.New(), Name: "Groceries", Color: "#ff0000", ParentID: ptr(f.food.ID)}
	f.bars = category.Category{ID: uuid.New(), Name: "Bars", Color: "#ff0000", ParentID: ptr(f.food.ID)}

	tree, problems := category.BuildTree([]category.Category{f.food, f.groceries, f.bars, f.transport})
	require.Empty(t, problems)
	f.tree = tree
	return f
}

func TestEngine_Totals(t *testing.T) {
	txs := []transaction.Stored{
		tx(day(2024, 3, 1), "5000.00", nil, "Employer"),
		tx(day(2024, 3, 2), "-120.50", nil, "Biedronka"),
		tx(day(2024, 3, 3), "-300.00", nil, "IKEA"),
		tx(day(2024, 3, 4), "0", nil, ""),
	}

	got := newEngine().Totals(txs, 10)

	assert.Equal(t, "5000", got.Income.String())
	assert.Equal(t, "420.5", got.Expenses.String())
	assert.Equal(t, "300", got.Largest.String())
	assert.Equal(t, "42.05", got.AvgDaily.String())
	assert.Equal(t, 4, got.Count)
}

func TestEngine_TotalsEmpty(t *testing.T) {
	for _, days := range []int{0, -3, 1, 31} {
		got := newEngine().Totals(nil, days)
		assert.True(t, got.Income.IsZero())
		assert.True(t, got.Expenses.IsZero())
		assert.True(t, got.Largest.IsZero())
		assert.True(t, got.AvgDaily.IsZero())
	}
}

func TestEngine_ExpensesByCategory_RollsUpToParent(t *testing.T) {
	f := newFixture(t)
	txs := []transaction.Stored{
		tx(day(2024, 3, 1), "-10", ptr(f.groceries.ID), "Lidl"),
		tx(day(2024, 3, 2), "-15", ptr(f.groceries.ID), "Lidl"),
		tx(day(2024, 3, 3), "-20", ptr(f.food.ID), "Market"),
		tx(day(2024, 3, 4), "100", ptr(f.food.ID), "Refund"),
	}

	buckets := newEngine().ExpensesByCategory(txs, f.tree)

	require.Len(t, buckets, 1)
	assert.Equal(t, f.food.ID.String(), buckets[0].ID)
	assert.Equal(t, "Food", buckets[0].Name)
	assert.Equal(t, "#ff0000", buckets[0].Color)
	assert.Equal(t, "45", buckets[0].Value.String())
	assert.Equal(t, 3, buckets[0].Count)
}

func TestEngine_ExpensesByCategory_Uncategorized(t *testing.T) {
	f := newFixture(t)
	deleted := uuid.New()
	txs := []transaction.Stored{
		tx(day(2024, 3, 1), "-10", nil, "A"),
		tx(day(2024, 3, 2), "-5", &deleted, "B"),
		tx(day(2024, 3, 3), "-100", ptr(f.transport.ID), "Orlen"),
	}

	buckets := newEngine().ExpensesByCategory(txs, f.tree)

	require.Len(t, buckets, 2)
	assert.Equal(t, "Transport", buckets[0].Name, "sorted by value")
	assert.Equal(t, insights.UncategorizedID, buckets[1].ID)
	assert.Equal(t, "15", buckets[1].Value.String())
}

func TestEngine_ExpensesByCategory_NilTree(t *testing.T) {
	txs := []transaction.Stored{tx(day(2024, 3, 1), "-10", ptr(uuid.New()), "A")}

	buckets := newEngine().ExpensesByCategory(txs, nil)

	require.Len(t, buckets, 1)
	assert.Equal(t, insights.UncategorizedID, buckets[0].ID)
}

func TestEngine_ExpensesByCategory_RollUpInvariant(t *testing.T) {
	f := newFixture(t)
	ids := []uuid.UUID{f.food.ID, f.groceries.ID, f.bars.ID, f.transport.ID, uuid.New()}
	gen := transaction.NewFakeGenerator(42)
	engine := newEngine()

	for i := 0; i < 20; i++ {
		txs := gen.StoredBatch(50, uuid.New(), day(2024, 1, 1), day(2024, 12, 31), ids)

		want := decimal.Zero
		for _, s := range txs {
			if s.Amount.IsNegative() {
				want = want.Add(s.Amount.Abs())
			}
		}

		got := decimal.Zero
		for _, b := range engine.ExpensesByCategory(txs, f.tree) {
			assert.Empty(t, b.ParentID, "only main categories at the top level")
			got = got.Add(b.Value)
		}
		assert.True(t, want.Equal(got), "want %s got %s", want, got)
	}
}

func TestEngine_SubcategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	txs := []transaction.Stored{
		tx(day(2024, 3, 1), "-10", ptr(f.groceries.ID), "Lidl"),
		tx(day(2024, 3, 2), "-15", ptr(f.groceries.ID), "Lidl"),
		tx(day(2024, 3, 3), "-20", ptr(f.food.ID), "Market"),
		tx(day(2024, 3, 4), "-7", ptr(f.bars.ID), "Pub"),
		tx(day(2024, 3, 5), "-99", ptr(f.transport.ID), "Orlen"),
		tx(day(2024, 3, 6), "-1", nil, "?"),
	}
	engine := newEngine()

	buckets, err := engine.SubcategoryBreakdown(txs, f.tree, f.food.ID)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, "Groceries", buckets[0].Name)
	assert.Equal(t, "25", buckets[0].Value.String())
	assert.Equal(t, f.food.ID.String(), buckets[0].ParentID)
	assert.Equal(t, "Food", buckets[1].Name, "direct spending keeps the parent bucket")
	assert.Empty(t, buckets[1].ParentID)
	assert.Equal(t, "Bars", buckets[2].Name)

	t.Run("subcategory is not a valid parent", func(t *testing.T) {
		_, err := engine.SubcategoryBreakdown(txs, f.tree, f.groceries.ID)
		assert.ErrorIs(t, err, category.ErrInvalidParent)
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := engine.SubcategoryBreakdown(txs, f.tree, uuid.New())
		assert.ErrorIs(t, err, category.ErrNotFound)
	})
}

func TestEngine_TimeSeries(t *testing.T) {
	txs := []transaction.Stored{
		tx(day(2024, 3, 2), "-10", nil, "A"),
		tx(day(2024, 1, 15), "200", nil, "B"),
		tx(day(2024, 3, 1), "-5", nil, "C"),
		tx(day(2024, 3, 1), "50", nil, "D"),
	}
	engine := newEngine()

	t.Run("monthly", func(t *testing.T) {
		points := engine.TimeSeries(txs, daterange.Month)
		require.Len(t, points, 2)
		assert.Equal(t, "2024-01", points[0].Key)
		assert.Equal(t, "2024-03", points[1].Key)
		assert.Equal(t, "50", points[1].Income.String())
		assert.Equal(t, "15", points[1].Expenses.String())
	})

	t.Run("daily", func(t *testing.T) {
		points := engine.TimeSeries(txs, daterange.Day)
		keys := make([]string, len(points))
		for i, p := range points {
			keys[i] = p.Key
		}
		assert.Equal(t, []string{"2024-01-15", "2024-03-01", "2024-03-02"}, keys)
	})
}

func TestEngine_TopMerchants(t *testing.T) {
	var txs []transaction.Stored
	for i := 0; i < 12; i++ {
		amount := decimal.NewFromInt(int64(-i - 1)).String()
		merchant := string(rune('A' + i))
		txs = append(txs, tx(day(2024, 3, 1), amount, nil, merchant))
	}
	txs = append(txs,
		tx(day(2024, 3, 2), "-100", nil, ""),
		tx(day(2024, 3, 3), "-1", nil, ""),
		tx(day(2024, 3, 4), "500", nil, "Employer"),
	)

	top := newEngine().TopMerchants(txs)

	require.Len(t, top, 10)
	assert.Equal(t, "Unknown", top[0].Merchant)
	assert.Equal(t, "101", top[0].Value.String())
	assert.Equal(t, 2, top[0].Count)
	assert.Equal(t, "L", top[1].Merchant)
	for _, m := range top {
		assert.NotEqual(t, "Employer", m.Merchant)
	}

	assert.Len(t, newEngine().WithTopMerchants(3).TopMerchants(txs), 3)
}

func TestEngine_UncategorizedBacklog(t *testing.T) {
	f := newFixture(t)
	txs := []transaction.Stored{
		tx(day(2020, 1, 1), "-10", nil, "A"),
		tx(day(2024, 3, 1), "25", nil, "B"),
		tx(day(2024, 3, 1), "-99", ptr(f.food.ID), "C"),
	}

	got := newEngine().UncategorizedBacklog(txs)

	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "35", got.Total.String())
}

func TestEngine_Build(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	period := []transaction.Stored{
		tx(day(2024, 3, 1), "3000", nil, "Employer"),
		tx(day(2024, 3, 5), "-50", ptr(f.groceries.ID), "Lidl"),
		tx(day(2024, 2, 28), "-999", nil, "Outside"),
	}
	history := append([]transaction.Stored{tx(day(2021, 6, 1), "-5", nil, "Old")}, period...)

	d, err := newEngine().Build(insights.DashboardInput{
		Token:   daterange.ThisMonth,
		Now:     now,
		Period:  period,
		History: history,
		Tree:    f.tree,
	})
	require.NoError(t, err)

	assert.Equal(t, day(2024, 3, 1), d.Start)
	assert.Equal(t, "3000", d.Totals.Income.String())
	assert.Equal(t, "50", d.Totals.Expenses.String())
	assert.Equal(t, "5", d.Totals.AvgDaily.String(), "divided by 10 elapsed days")
	require.Len(t, d.Categories, 1)
	assert.Equal(t, "Food", d.Categories[0].Name)
	require.Len(t, d.Series, 2)
	assert.Equal(t, "2024-03-01", d.Series[0].Key)
	assert.Equal(t, 3, d.Backlog.Count, "backlog ignores the period")

	_, err = newEngine().Build(insights.DashboardInput{Token: "decade", Now: now})
	assert.ErrorIs(t, err, daterange.ErrUnknownToken)
}

func TestEngine_BuildEmpty(t *testing.T) {
	d, err := newEngine().Build(insights.DashboardInput{Token: daterange.AllTime, Now: time.Now()})
	require.NoError(t, err)

	assert.True(t, d.Totals.AvgDaily.IsZero())
	assert.Empty(t, d.Categories)
	assert.Empty(t, d.Series)
	assert.Empty(t, d.Merchants)
	assert.Zero(t, d.Backlog.Count)
}
