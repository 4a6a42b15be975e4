package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
)

type memTransactions struct{ stored []transaction.Stored }

func (m *memTransactions) Query(context.Context, uuid.UUID, transaction.Filter) ([]transaction.Stored, error) {
	return m.stored, nil
}

type memTree struct{ tree *category.Tree }

func (m *memTree) Tree(context.Context, uuid.UUID) (*category.Tree, error) { return m.tree, nil }

var (
	foodID = uuid.New()
	subID  = uuid.New()
)

func newTestHandler(t *testing.T) *InsightsHandler {
	t.Helper()
	tree, problems := category.BuildTree([]category.Category{
		{ID: foodID, Name: "Food", Color: "#ff0000"},
		{ID: subID, Name: "Coffee", Color: "#ff0000", ParentID: &foodID},
	})
	require.Empty(t, problems)

	merchant := "Starbucks"
	txs := &memTransactions{stored: []transaction.Stored{{
		Parsed: transaction.Parsed{
			TransactionDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Amount:          decimal.RequireFromString("-18.50"),
			Currency:        "PLN",
			Merchant:        &merchant,
		},
		ID:         uuid.New(),
		CategoryID: &subID,
	}}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := insights.NewService(txs, &memTree{tree: tree}, logger).
		WithClock(func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) })
	return NewInsightsHandler(svc, logger)
}

func authed() context.Context {
	return interceptors.WithUserID(context.Background(), uuid.NewString())
}

func TestInsightsHandler_RequiresUser(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.GetDashboard(context.Background(), connect.NewRequest(&GetDashboardRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestInsightsHandler_GetDashboard(t *testing.T) {
	h := newTestHandler(t)

	resp, err := h.GetDashboard(authed(), connect.NewRequest(&GetDashboardRequest{}))
	require.NoError(t, err)

	d := resp.Msg.Dashboard
	assert.Equal(t, "this_month", string(d.Token))
	assert.Equal(t, "18.5", d.Totals.Expenses.String())
	require.Len(t, d.Categories, 1)
	assert.Equal(t, "Food", d.Categories[0].Name)

	_, err = h.GetDashboard(authed(), connect.NewRequest(&GetDashboardRequest{Range: "fortnight"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestInsightsHandler_GetSubcategoryBreakdown(t *testing.T) {
	h := newTestHandler(t)

	resp, err := h.GetSubcategoryBreakdown(authed(), connect.NewRequest(&GetSubcategoryBreakdownRequest{
		Range:    "this_month",
		ParentID: foodID.String(),
	}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Buckets, 1)
	assert.Equal(t, "Coffee", resp.Msg.Buckets[0].Name)

	tests := []struct {
		name     string
		parentID string
		code     connect.Code
	}{
		{"malformed id", "nope", connect.CodeInvalidArgument},
		{"unknown category", uuid.NewString(), connect.CodeNotFound},
		{"subcategory as parent", subID.String(), connect.CodeFailedPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.GetSubcategoryBreakdown(authed(), connect.NewRequest(&GetSubcategoryBreakdownRequest{ParentID: tt.parentID}))
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestInsightsServiceHandler_OverHTTP(t *testing.T) {
	userID := uuid.NewString()
	injectUser := connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			return next(interceptors.WithUserID(ctx, userID), req)
		}
	})

	path, handler := NewInsightsServiceHandler(newTestHandler(t),
		connect.WithCodec(interceptors.JSONCodec{}),
		connect.WithInterceptors(injectUser),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := connect.NewClient[GetDashboardRequest, GetDashboardResponse](
		server.Client(),
		server.URL+GetDashboardProcedure,
		connect.WithCodec(interceptors.JSONCodec{}),
	)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&GetDashboardRequest{Range: "this_year"}))
	require.NoError(t, err)
	require.NotNil(t, resp.Msg.Dashboard)
	require.Len(t, resp.Msg.Dashboard.Series, 1)
	assert.Equal(t, "2024-03", resp.Msg.Dashboard.Series[0].Key)
	require.Len(t, resp.Msg.Dashboard.Merchants, 1)
	assert.Equal(t, "Starbucks", resp.Msg.Dashboard.Merchants[0].Merchant)
}
