package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
	"github.com/FACorreiaa/expense-tracker/pkg/storage"
)

// ImportServiceName is the fully-qualified name of the import RPC service.
const ImportServiceName = "expense.v1.ImportService"

const (
	PreviewImportProcedure          = "/" + ImportServiceName + "/PreviewImport"
	CommitImportProcedure           = "/" + ImportServiceName + "/CommitImport"
	ListImportsProcedure            = "/" + ImportServiceName + "/ListImports"
	SaveMerchantOverrideProcedure   = "/" + ImportServiceName + "/SaveMerchantOverride"
	ListMerchantOverridesProcedure  = "/" + ImportServiceName + "/ListMerchantOverrides"
	DeleteMerchantOverrideProcedure = "/" + ImportServiceName + "/DeleteMerchantOverride"
	ListArchivedUploadsProcedure    = "/" + ImportServiceName + "/ListArchivedUploads"
	DownloadArchivedUploadProcedure = "/" + ImportServiceName + "/DownloadArchivedUpload"
	DeleteArchivedUploadProcedure   = "/" + ImportServiceName + "/DeleteArchivedUpload"
)

type PreviewImportRequest struct {
	CsvBytes []byte `json:"csv_bytes"`
	BankType string `json:"bank_type"`
}

type PreviewImportResponse struct {
	Preview *importservice.Preview `json:"preview"`
}

type CommitImportRequest struct {
	CsvBytes          []byte `json:"csv_bytes"`
	BankType          string `json:"bank_type"`
	FileName          string `json:"file_name"`
	IncludeDuplicates bool   `json:"include_duplicates"`
}

type CommitImportResponse struct {
	Result *importservice.ImportResult `json:"result"`
}

type ListImportsRequest struct {
	Limit int `json:"limit"`
}

type ListImportsResponse struct {
	Imports []*repository.Import `json:"imports"`
}

type SaveMerchantOverrideRequest struct {
	MatchPattern string     `json:"match_pattern"`
	MatchType    string     `json:"match_type"`
	MerchantName string     `json:"merchant_name"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
}

type SaveMerchantOverrideResponse struct {
	Override *normalizer.MerchantOverride `json:"override"`
}

type ListMerchantOverridesRequest struct{}

type ListMerchantOverridesResponse struct {
	Overrides []normalizer.MerchantOverride `json:"overrides"`
}

type DeleteMerchantOverrideRequest struct {
	ID string `json:"id"`
}

type DeleteMerchantOverrideResponse struct{}

type ListArchivedUploadsRequest struct{}

type ListArchivedUploadsResponse struct {
	Files []*storage.FileInfo `json:"files"`
}

// DownloadArchivedUploadRequest names a file by the archive_key of an import
// or an id from ListArchivedUploads.
type DownloadArchivedUploadRequest struct {
	FileID string `json:"file_id"`
}

type DownloadArchivedUploadResponse struct {
	File *importservice.ArchivedFile `json:"file"`
}

type DeleteArchivedUploadRequest struct {
	FileID string `json:"file_id"`
}

type DeleteArchivedUploadResponse struct{}

// ImportHandler handles Import service RPCs
type ImportHandler struct {
	importSvc      *importservice.ImportService
	maxUploadBytes int
	logger         *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc *importservice.ImportService, maxUploadBytes int, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc:      importSvc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// NewImportServiceHandler mounts every import procedure and returns the path
// prefix to register on a mux.
func NewImportServiceHandler(h *ImportHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(PreviewImportProcedure, connect.NewUnaryHandler(PreviewImportProcedure, h.PreviewImport, opts...))
	mux.Handle(CommitImportProcedure, connect.NewUnaryHandler(CommitImportProcedure, h.CommitImport, opts...))
	mux.Handle(ListImportsProcedure, connect.NewUnaryHandler(ListImportsProcedure, h.ListImports, opts...))
	mux.Handle(SaveMerchantOverrideProcedure, connect.NewUnaryHandler(SaveMerchantOverrideProcedure, h.SaveMerchantOverride, opts...))
	mux.Handle(ListMerchantOverridesProcedure, connect.NewUnaryHandler(ListMerchantOverridesProcedure, h.ListMerchantOverrides, opts...))
	mux.Handle(DeleteMerchantOverrideProcedure, connect.NewUnaryHandler(DeleteMerchantOverrideProcedure, h.DeleteMerchantOverride, opts...))
	mux.Handle(ListArchivedUploadsProcedure, connect.NewUnaryHandler(ListArchivedUploadsProcedure, h.ListArchivedUploads, opts...))
	mux.Handle(DownloadArchivedUploadProcedure, connect.NewUnaryHandler(DownloadArchivedUploadProcedure, h.DownloadArchivedUpload, opts...))
	mux.Handle(DeleteArchivedUploadProcedure, connect.NewUnaryHandler(DeleteArchivedUploadProcedure, h.DeleteArchivedUpload, opts...))
	return "/" + ImportServiceName + "/", mux
}

// PreviewImport parses an upload and reports duplicates and suggestions without storing anything
func (h *ImportHandler) PreviewImport(ctx context.Context, req *connect.Request[PreviewImportRequest]) (*connect.Response[PreviewImportResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validateUpload(req.Msg.CsvBytes, req.Msg.BankType); err != nil {
		return nil, err
	}

	preview, err := h.importSvc.Preview(ctx, userID, req.Msg.CsvBytes, req.Msg.BankType)
	if err != nil {
		h.logger.Error("failed to preview import", slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&PreviewImportResponse{Preview: preview}), nil
}

// CommitImport parses and stores an upload
func (h *ImportHandler) CommitImport(ctx context.Context, req *connect.Request[CommitImportRequest]) (*connect.Response[CommitImportResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.validateUpload(req.Msg.CsvBytes, req.Msg.BankType); err != nil {
		return nil, err
	}

	result, err := h.importSvc.Commit(ctx, userID, req.Msg.CsvBytes, req.Msg.BankType, importservice.CommitOptions{
		IncludeDuplicates: req.Msg.IncludeDuplicates,
		FileName:          req.Msg.FileName,
	})
	if err != nil {
		h.logger.Error("failed to commit import", slog.Any("error", err))
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&CommitImportResponse{Result: result}), nil
}

// ListImports returns the user's recent imports
func (h *ImportHandler) ListImports(ctx context.Context, req *connect.Request[ListImportsRequest]) (*connect.Response[ListImportsResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	imports, err := h.importSvc.ListImports(ctx, userID, req.Msg.Limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if imports == nil {
		imports = []*repository.Import{}
	}
	return connect.NewResponse(&ListImportsResponse{Imports: imports}), nil
}

// SaveMerchantOverride creates or updates a merchant correction
func (h *ImportHandler) SaveMerchantOverride(ctx context.Context, req *connect.Request[SaveMerchantOverrideRequest]) (*connect.Response[SaveMerchantOverrideResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	matchType := req.Msg.MatchType
	if matchType == "" {
		matchType = normalizer.MatchContains
	}
	override, err := h.importSvc.SaveMerchantOverride(ctx, normalizer.MerchantOverride{
		UserID:       userID,
		MatchPattern: req.Msg.MatchPattern,
		MatchType:    matchType,
		MerchantName: req.Msg.MerchantName,
		CategoryID:   req.Msg.CategoryID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SaveMerchantOverrideResponse{Override: override}), nil
}

// ListMerchantOverrides returns the user's merchant corrections
func (h *ImportHandler) ListMerchantOverrides(ctx context.Context, _ *connect.Request[ListMerchantOverridesRequest]) (*connect.Response[ListMerchantOverridesResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	overrides, err := h.importSvc.ListMerchantOverrides(ctx, userID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if overrides == nil {
		overrides = []normalizer.MerchantOverride{}
	}
	return connect.NewResponse(&ListMerchantOverridesResponse{Overrides: overrides}), nil
}

// DeleteMerchantOverride removes a merchant correction
func (h *ImportHandler) DeleteMerchantOverride(ctx context.Context, req *connect.Request[DeleteMerchantOverrideRequest]) (*connect.Response[DeleteMerchantOverrideResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(req.Msg.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid override id: %w", err))
	}
	if err := h.importSvc.DeleteMerchantOverride(ctx, userID, id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteMerchantOverrideResponse{}), nil
}

// ListArchivedUploads lists the raw and normalized files kept for the user's imports
func (h *ImportHandler) ListArchivedUploads(ctx context.Context, _ *connect.Request[ListArchivedUploadsRequest]) (*connect.Response[ListArchivedUploadsResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	files, err := h.importSvc.ListArchives(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list archived uploads", slog.String("user_id", userID.String()), slog.Any("error", err))
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListArchivedUploadsResponse{Files: files}), nil
}

// DownloadArchivedUpload returns the content of one archived file
func (h *ImportHandler) DownloadArchivedUpload(ctx context.Context, req *connect.Request[DownloadArchivedUploadRequest]) (*connect.Response[DownloadArchivedUploadResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	fileID, err := uuid.Parse(req.Msg.FileID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid file_id: %w", err))
	}

	file, err := h.importSvc.DownloadArchive(ctx, userID, fileID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DownloadArchivedUploadResponse{File: file}), nil
}

// DeleteArchivedUpload removes one archived file
func (h *ImportHandler) DeleteArchivedUpload(ctx context.Context, req *connect.Request[DeleteArchivedUploadRequest]) (*connect.Response[DeleteArchivedUploadResponse], error) {
	userID, err := authenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	fileID, err := uuid.Parse(req.Msg.FileID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid file_id: %w", err))
	}

	if err := h.importSvc.DeleteArchive(ctx, userID, fileID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteArchivedUploadResponse{}), nil
}

func (h *ImportHandler) validateUpload(data []byte, bankType string) error {
	if len(data) == 0 {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("csv_bytes is required"))
	}
	if h.maxUploadBytes > 0 && len(data) > h.maxUploadBytes {
		return connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("file is %d bytes, the limit is %d", len(data), h.maxUploadBytes))
	}
	if _, ok := parser.Lookup(bankType); !ok {
		return connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("unsupported bank_type %q, expected Auto or one of %s", bankType, strings.Join(parser.BankTypes(), ", ")))
	}
	return nil
}

func authenticatedUser(ctx context.Context) (uuid.UUID, error) {
	userIDStr, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, nil)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, err)
	}
	return userID, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, normalizer.ErrInvalidOverride):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, normalizer.ErrOverrideNotFound), errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, importservice.ErrArchiveDisabled):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
