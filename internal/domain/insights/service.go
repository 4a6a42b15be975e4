package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights/daterange"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
	"github.com/FACorreiaa/expense-tracker/pkg/money"
)

const tracerName = "github.com/FACorreiaa/expense-tracker/internal/domain/insights"

// TransactionReader is the read side of the transaction store.
type TransactionReader interface {
	Query(ctx context.Context, userID uuid.UUID, filter transaction.Filter) ([]transaction.Stored, error)
}

// CategoryTreeSource loads a user's category hierarchy.
type CategoryTreeSource interface {
	Tree(ctx context.Context, userID uuid.UUID) (*category.Tree, error)
}

// TotalsDisplay holds Totals rendered for the account currency.
type TotalsDisplay struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Largest  string `json:"largest"`
	AvgDaily string `json:"avg_daily"`
	Backlog  string `json:"backlog"`
}

// DashboardView is a Dashboard plus formatted amounts.
type DashboardView struct {
	*Dashboard
	Currency string        `json:"currency"`
	Display  TotalsDisplay `json:"display"`
}

// Service loads a user's transactions and categories and runs the Engine over them.
type Service struct {
	transactions TransactionReader
	categories   CategoryTreeSource
	engine       *Engine
	currency     string
	location     *time.Location
	now          func() time.Time
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewService creates a new insights service
func NewService(transactions TransactionReader, categories CategoryTreeSource, logger *slog.Logger) *Service {
	return &Service{
		transactions: transactions,
		categories:   categories,
		engine:       NewEngine(logger),
		currency:     money.PLN,
		location:     time.UTC,
		now:          time.Now,
		tracer:       otel.Tracer(tracerName),
		logger:       logger,
	}
}

// WithLocation sets the timezone periods are resolved in.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.location = loc
	}
	return s
}

// WithCurrency sets the currency used for display strings.
func (s *Service) WithCurrency(code string) *Service {
	if code != "" {
		s.currency = code
	}
	return s
}

// WithTopMerchants sets how many merchants a dashboard lists.
func (s *Service) WithTopMerchants(n int) *Service {
	s.engine.WithTopMerchants(n)
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Dashboard aggregates the user's activity for the period named by token.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID, token daterange.Token) (*DashboardView, error) {
	ctx, span := s.tracer.Start(ctx, "insights.Dashboard", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("token", string(token)),
	))
	defer span.End()

	now := s.now().In(s.location)
	r, err := daterange.Resolve(token, now)
	if err != nil {
		return nil, err
	}

	period, err := s.query(ctx, userID, r)
	if err != nil {
		return nil, fail(span, err)
	}
	// The backlog spans every stored row, including dates outside any range.
	history, err := s.transactions.Query(ctx, userID, transaction.Filter{})
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load transaction history: %w", err))
	}

	tree, err := s.categories.Tree(ctx, userID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load categories: %w", err))
	}

	d, err := s.engine.Build(DashboardInput{
		Token:   token,
		Now:     now,
		Period:  period,
		History: history,
		Tree:    tree,
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.formatBuckets(d.Categories)
	for i := range d.Merchants {
		d.Merchants[i].Display = money.Display(d.Merchants[i].Value, s.currency)
	}

	span.SetAttributes(attribute.Int("transactions", d.Totals.Count))
	s.logger.Debug("dashboard built",
		slog.String("user_id", userID.String()),
		slog.String("token", string(token)),
		slog.Int("transactions", d.Totals.Count),
	)

	return &DashboardView{
		Dashboard: d,
		Currency:  s.currency,
		Display: TotalsDisplay{
			Income:   money.Display(d.Totals.Income, s.currency),
			Expenses: money.Display(d.Totals.Expenses, s.currency),
			Largest:  money.Display(d.Totals.Largest, s.currency),
			AvgDaily: money.Display(d.Totals.AvgDaily, s.currency),
			Backlog:  money.Display(d.Backlog.Total, s.currency),
		},
	}, nil
}

// Subcategories breaks one main category's expenses down by child for the period.
func (s *Service) Subcategories(ctx context.Context, userID uuid.UUID, token daterange.Token, parentID uuid.UUID) ([]Bucket, error) {
	ctx, span := s.tracer.Start(ctx, "insights.Subcategories", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("token", string(token)),
		attribute.String("parent_id", parentID.String()),
	))
	defer span.End()

	r, err := daterange.Resolve(token, s.now().In(s.location))
	if err != nil {
		return nil, err
	}

	txs, err := s.query(ctx, userID, r)
	if err != nil {
		return nil, fail(span, err)
	}
	tree, err := s.categories.Tree(ctx, userID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to load categories: %w", err))
	}

	buckets, err := s.engine.SubcategoryBreakdown(txs, tree, parentID)
	if err != nil {
		return nil, err
	}
	s.formatBuckets(buckets)
	return buckets, nil
}

func (s *Service) query(ctx context.Context, userID uuid.UUID, r daterange.Range) ([]transaction.Stored, error) {
	from, to := r.Dates()
	txs, err := s.transactions.Query(ctx, userID, transaction.Filter{From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return txs, nil
}

func (s *Service) formatBuckets(buckets []Bucket) {
	for i := range buckets {
		buckets[i].Display = money.Display(buckets[i].Value, s.currency)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
