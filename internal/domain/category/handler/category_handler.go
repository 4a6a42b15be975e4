// Package handler implements the CategoryService Connect RPC handlers.
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
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
)

// CategoryServiceName is the fully-qualified name of the category RPC service.
const CategoryServiceName = "expense.v1.CategoryService"

const (
	ListCategoriesProcedure = "/" + CategoryServiceName + "/ListCategories"
	CreateCategoryProcedure = "/" + CategoryServiceName + "/CreateCategory"
	DeleteCategoryProcedure = "/" + CategoryServiceName + "/DeleteCategory"
)

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []category.Category `json:"categories"`
}

type CreateCategoryRequest struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
	ParentID     string `json:"parent_id"`
	DisplayOrder int    `json:"display_order"`
}

type CreateCategoryResponse struct {
	Category *category.Category `json:"category"`
}

type DeleteCategoryRequest struct {
	ID string `json:"id"`
}

type DeleteCategoryResponse struct{}

// CategoryHandler handles Category service RPCs
type CategoryHandler struct {
	svc    *category.Service
	logger *slog.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(svc *category.Service, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{svc: svc, logger: logger}
}

// NewCategoryServiceHandler mounts the category procedures.
func NewCategoryServiceHandler(h *CategoryHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ListCategoriesProcedure, connect.NewUnaryHandler(ListCategoriesProcedure, h.ListCategories, opts...))
	mux.Handle(CreateCategoryProcedure, connect.NewUnaryHandler(CreateCategoryProcedure, h.CreateCategory, opts...))
	mux.Handle(DeleteCategoryProcedure, connect.NewUnaryHandler(DeleteCategoryProcedure, h.DeleteCategory, opts...))
	return "/" + CategoryServiceName + "/", mux
}

// ListCategories returns the user's categories as flat records
func (h *CategoryHandler) ListCategories(ctx context.Context, _ *connect.Request[ListCategoriesRequest]) (*connect.Response[ListCategoriesResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	items, err := h.svc.List(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list categories", slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if items == nil {
		items = []category.Category{}
	}
	return connect.NewResponse(&ListCategoriesResponse{Categories: items}), nil
}

// CreateCategory adds a main category or a subcategory
func (h *CategoryHandler) CreateCategory(ctx context.Context, req *connect.Request[CreateCategoryRequest]) (*connect.Response[CreateCategoryResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	in := category.CreateInput{
		Name:         req.Msg.Name,
		Color:        req.Msg.Color,
		Icon:         req.Msg.Icon,
		DisplayOrder: req.Msg.DisplayOrder,
	}
	if req.Msg.ParentID != "" {
		parentID, err := uuid.Parse(req.Msg.ParentID)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid parent_id: %w", err))
		}
		in.ParentID = &parentID
	}

	c, err := h.svc.Create(ctx, userID, in)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateCategoryResponse{Category: c}), nil
}

// DeleteCategory removes a user category and its subcategories
func (h *CategoryHandler) DeleteCategory(ctx context.Context, req *connect.Request[DeleteCategoryRequest]) (*connect.Response[DeleteCategoryResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(req.Msg.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid id: %w", err))
	}
	if err := h.svc.Delete(ctx, userID, id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteCategoryResponse{}), nil
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
	case errors.Is(err, category.ErrNameRequired):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, category.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, category.ErrInvalidParent), errors.Is(err, category.ErrSystemCategory):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
