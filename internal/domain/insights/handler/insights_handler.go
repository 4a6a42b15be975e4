// Package handler implements the InsightsService Connect RPC handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights"
	"github.com/FACorreiaa/expense-tracker/internal/domain/insights/daterange"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
)

// InsightsServiceName is the fully-qualified name of the insights RPC service.
const InsightsServiceName = "expense.v1.InsightsService"

const (
	GetDashboardProcedure            = "/" + InsightsServiceName + "/GetDashboard"
	GetSubcategoryBreakdownProcedure = "/" + InsightsServiceName + "/GetSubcategoryBreakdown"
)

// defaultRange applies when a request leaves the range empty.
const defaultRange = daterange.ThisMonth

type GetDashboardRequest struct {
	Range string `json:"range"`
}

type GetDashboardResponse struct {
	Dashboard *insights.DashboardView `json:"dashboard"`
}

type GetSubcategoryBreakdownRequest struct {
	Range    string `json:"range"`
	ParentID string `json:"parent_id"`
}

type GetSubcategoryBreakdownResponse struct {
	Buckets []insights.Bucket `json:"buckets"`
}

// InsightsHandler implements the InsightsService Connect handlers.
type InsightsHandler struct {
	svc    *insights.Service
	logger *slog.Logger
}

// NewInsightsHandler constructs a new handler.
func NewInsightsHandler(svc *insights.Service, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{svc: svc, logger: logger}
}

// NewInsightsServiceHandler mounts the insights procedures and returns the
// path prefix to register on a mux.
func NewInsightsServiceHandler(h *InsightsHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetDashboardProcedure, connect.NewUnaryHandler(GetDashboardProcedure, h.GetDashboard, opts...))
	mux.Handle(GetSubcategoryBreakdownProcedure, connect.NewUnaryHandler(GetSubcategoryBreakdownProcedure, h.GetSubcategoryBreakdown, opts...))
	return "/" + InsightsServiceName + "/", mux
}

// GetDashboard returns totals, category split, time series, top merchants and
// the uncategorized backlog for a period.
func (h *InsightsHandler) GetDashboard(
	ctx context.Context,
	req *connect.Request[GetDashboardRequest],
) (*connect.Response[GetDashboardResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	token, err := parseRange(req.Msg.Range)
	if err != nil {
		return nil, err
	}

	view, err := h.svc.Dashboard(ctx, userID, token)
	if err != nil {
		h.logger.Error("failed to build dashboard",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetDashboardResponse{Dashboard: view}), nil
}

// GetSubcategoryBreakdown splits one main category's spending by subcategory.
func (h *InsightsHandler) GetSubcategoryBreakdown(
	ctx context.Context,
	req *connect.Request[GetSubcategoryBreakdownRequest],
) (*connect.Response[GetSubcategoryBreakdownResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	token, err := parseRange(req.Msg.Range)
	if err != nil {
		return nil, err
	}
	parentID, err := uuid.Parse(req.Msg.ParentID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid parent_id: %w", err))
	}

	buckets, err := h.svc.Subcategories(ctx, userID, token, parentID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetSubcategoryBreakdownResponse{Buckets: buckets}), nil
}

func parseRange(raw string) (daterange.Token, error) {
	if raw == "" {
		return defaultRange, nil
	}
	token, err := daterange.ParseToken(raw)
	if err != nil {
		return "", connect.NewError(connect.CodeInvalidArgument, err)
	}
	return token, nil
}

func authenticatedUser(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	return userID, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, daterange.ErrUnknownToken):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, category.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, category.ErrInvalidParent):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
