// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/expense-tracker/internal/domain/category"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/dedup"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
	"github.com/FACorreiaa/expense-tracker/pkg/metrics"
	"github.com/FACorreiaa/expense-tracker/pkg/storage"
)

const tracerName = "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"

// ErrArchiveDisabled is returned by archive operations when no storage is configured.
var ErrArchiveDisabled = errors.New("upload archive is not configured")

// CategoryTreeSource loads a user's category hierarchy.
type CategoryTreeSource interface {
	Tree(ctx context.Context, userID uuid.UUID) (*category.Tree, error)
}

// OverrideRepository stores user merchant corrections.
type OverrideRepository interface {
	Save(ctx context.Context, override normalizer.MerchantOverride) (*normalizer.MerchantOverride, error)
	List(ctx context.Context, userID uuid.UUID) ([]normalizer.MerchantOverride, error)
	Delete(ctx context.Context, userID, overrideID uuid.UUID) error
}

// PreviewRow is one parsed row as shown before committing.
type PreviewRow struct {
	Index       int                     `json:"index"`
	Transaction transaction.Parsed      `json:"transaction"`
	Merchant    normalizer.MerchantInfo `json:"merchant"`
	Duplicate   bool                    `json:"duplicate"`
	Suggestion  *normalizer.Suggestion  `json:"suggestion,omitempty"`
}

// Preview is a dry run of an upload.
type Preview struct {
	Result     *CSVParseResult `json:"result"`
	Rows       []PreviewRow    `json:"rows"`
	Duplicates int             `json:"duplicates"`
}

// CommitOptions controls what Commit persists.
type CommitOptions struct {
	// IncludeDuplicates keeps rows matching stored transactions.
	IncludeDuplicates bool
	// FileName names the archived upload.
	FileName string
}

// ImportResult contains the result of a committed upload
type ImportResult struct {
	ImportID      *uuid.UUID           `json:"import_id,omitempty"`
	Success       bool                 `json:"success"`
	BankType      string               `json:"bank_type"`
	RowsParsed    int                  `json:"rows_parsed"`
	RowsSkipped   int                  `json:"rows_skipped"`
	RowsInserted  int                  `json:"rows_inserted"`
	Duplicates    int                  `json:"duplicates"`
	DateFallbacks int                  `json:"date_fallbacks"`
	Errors        []string             `json:"errors"`
	Transactions  []transaction.Stored `json:"transactions"`
	ArchiveKey    *string              `json:"archive_key,omitempty"`
}

// ArchivedFile is an archived upload with its content.
type ArchivedFile struct {
	Info    *storage.FileInfo `json:"info"`
	Content []byte            `json:"content"`
}

// ImportService orchestrates previews and commits of bank statement uploads
type ImportService struct {
	pipeline     *Pipeline
	transactions transaction.Repository
	imports      repository.ImportRepository
	categories   CategoryTreeSource     // Optional: nil disables suggestions
	overrides    OverrideRepository     // Optional: nil disables user overrides
	archive      storage.Storage        // Optional: nil disables archiving
	metrics      *metrics.ImportMetrics // Optional
	sanitizer    *normalizer.MerchantSanitizer
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(pipeline *Pipeline, transactions transaction.Repository, imports repository.ImportRepository, logger *slog.Logger) *ImportService {
	return &ImportService{
		pipeline:     pipeline,
		transactions: transactions,
		imports:      imports,
		sanitizer:    normalizer.NewMerchantSanitizer(),
		tracer:       otel.Tracer(tracerName),
		logger:       logger,
	}
}

// WithCategories enables category suggestions in previews.
func (s *ImportService) WithCategories(src CategoryTreeSource) *ImportService {
	s.categories = src
	return s
}

// WithOverrides enables user merchant overrides.
func (s *ImportService) WithOverrides(repo OverrideRepository) *ImportService {
	s.overrides = repo
	return s
}

// WithArchive stores raw and normalized uploads on commit.
func (s *ImportService) WithArchive(st storage.Storage) *ImportService {
	s.archive = st
	return s
}

// WithMetrics records import counters.
func (s *ImportService) WithMetrics(m *metrics.ImportMetrics) *ImportService {
	s.metrics = m
	return s
}

// Parse runs the pipeline without touching the store.
func (s *ImportService) Parse(data []byte, bankHint string) *CSVParseResult {
	return s.pipeline.Parse(data, bankHint)
}

// Preview parses an upload, flags rows already stored and suggests categories.
func (s *ImportService) Preview(ctx context.Context, userID uuid.UUID, data []byte, bankHint string) (*Preview, error) {
	ctx, span := s.tracer.Start(ctx, "ImportService.Preview", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("upload.bytes", len(data)),
	))
	defer span.End()

	result := s.pipeline.Parse(data, bankHint)
	span.SetAttributes(attribute.String("import.bank", result.BankType))

	preview := &Preview{Result: result, Rows: []PreviewRow{}}
	if !result.Success {
		return preview, nil
	}

	duplicates, err := s.findDuplicates(ctx, userID, result.Data)
	if err != nil {
		return nil, s.fail(span, err)
	}
	tree := s.loadTree(ctx, userID)
	overrides := s.loadOverrides(ctx, userID)

	preview.Rows = make([]PreviewRow, len(result.Data))
	for i, tx := range result.Data {
		row := PreviewRow{
			Index:       i,
			Transaction: tx,
			Duplicate:   duplicates.Has(i),
		}
		row.Merchant, row.Suggestion = s.enrich(tx, tree, overrides)
		preview.Rows[i] = row
	}
	preview.Duplicates = len(duplicates)

	span.SetAttributes(
		attribute.Int("import.rows", len(result.Data)),
		attribute.Int("import.duplicates", preview.Duplicates),
	)
	return preview, nil
}

// Commit parses an upload and stores its rows. Duplicates of stored
// transactions are dropped unless opts.IncludeDuplicates is set. Unknown formats
// and empty files produce an unsuccessful result, not an error.
func (s *ImportService) Commit(ctx context.Context, userID uuid.UUID, data []byte, bankHint string, opts CommitOptions) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImportService.Commit", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("upload.bytes", len(data)),
		attribute.Bool("import.include_duplicates", opts.IncludeDuplicates),
	))
	defer span.End()

	start := time.Now()
	parsed := s.pipeline.Parse(data, bankHint)
	span.SetAttributes(attribute.String("import.bank", parsed.BankType))

	result := &ImportResult{
		Success:       parsed.Success,
		BankType:      parsed.BankType,
		RowsParsed:    len(parsed.Data),
		RowsSkipped:   parsed.Skipped,
		DateFallbacks: parsed.DateFallbacks,
		Errors:        parsed.Errors,
		Transactions:  []transaction.Stored{},
	}
	if parsed.HeaderIndex < 0 {
		s.metrics.DetectionFailed()
		return result, nil
	}
	s.metrics.ObserveParse(parsed.BankType, len(parsed.Data), parsed.Skipped, parsed.DateFallbacks, time.Since(start))
	if !parsed.Success {
		return result, nil
	}

	duplicates, err := s.findDuplicates(ctx, userID, parsed.Data)
	if err != nil {
		return nil, s.fail(span, err)
	}
	result.Duplicates = len(duplicates)

	batch := parsed.Data
	if !opts.IncludeDuplicates && len(duplicates) > 0 {
		batch = make([]transaction.Parsed, 0, len(parsed.Data)-len(duplicates))
		for i, tx := range parsed.Data {
			if !duplicates.Has(i) {
				batch = append(batch, tx)
			}
		}
	}

	imp := &repository.Import{
		UserID:      userID,
		BankType:    parsed.BankType,
		RowsParsed:  len(parsed.Data),
		RowsSkipped: parsed.Skipped,
		Duplicates:  len(duplicates),
	}
	if err := s.imports.Create(ctx, imp); err != nil {
		return nil, s.fail(span, err)
	}
	result.ImportID = &imp.ID

	stored, err := s.transactions.Insert(ctx, userID, batch, &imp.ID)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("failed to insert transactions: %w", err))
	}
	if stored != nil {
		result.Transactions = stored
	}
	result.RowsInserted = len(stored)

	imp.RowsInserted = len(stored)
	imp.RawKey = s.archiveUpload(ctx, userID, imp.ID, data, batch, opts.FileName)
	result.ArchiveKey = imp.RawKey
	if err := s.imports.Complete(ctx, imp); err != nil {
		s.logger.Warn("failed to complete import record", slog.String("import_id", imp.ID.String()), slog.Any("error", err))
	}

	s.metrics.ObserveCommit(parsed.BankType, len(duplicates), len(stored))
	s.logger.Info("import committed",
		slog.String("user_id", userID.String()),
		slog.String("import_id", imp.ID.String()),
		slog.String("bank", parsed.BankType),
		slog.Int("inserted", len(stored)),
		slog.Int("duplicates", len(duplicates)),
		slog.Int("skipped", parsed.Skipped),
	)
	span.SetAttributes(
		attribute.Int("import.inserted", len(stored)),
		attribute.Int("import.duplicates", len(duplicates)),
	)
	return result, nil
}

// ListImports returns the user's recent imports.
func (s *ImportService) ListImports(ctx context.Context, userID uuid.UUID, limit int) ([]*repository.Import, error) {
	return s.imports.List(ctx, userID, limit)
}

// ListArchives returns the user's archived uploads, raw and normalized.
func (s *ImportService) ListArchives(ctx context.Context, userID uuid.UUID) ([]*storage.FileInfo, error) {
	if s.archive == nil {
		return []*storage.FileInfo{}, nil
	}
	files, err := s.archive.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived uploads: %w", err)
	}
	return files, nil
}

// DownloadArchive returns one archived upload. fileID is the archive key
// reported by Commit or any id from ListArchives.
func (s *ImportService) DownloadArchive(ctx context.Context, userID, fileID uuid.UUID) (*ArchivedFile, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	rc, info, err := s.archive.Download(ctx, userID, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to open archived upload: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived upload: %w", err)
	}
	return &ArchivedFile{Info: info, Content: content}, nil
}

// DeleteArchive removes one archived upload.
func (s *ImportService) DeleteArchive(ctx context.Context, userID, fileID uuid.UUID) error {
	if s.archive == nil {
		return ErrArchiveDisabled
	}
	if err := s.archive.Delete(ctx, userID, fileID); err != nil {
		return fmt.Errorf("failed to delete archived upload: %w", err)
	}
	s.logger.Info("archived upload deleted",
		slog.String("user_id", userID.String()),
		slog.String("file_id", fileID.String()),
	)
	return nil
}

// SaveMerchantOverride stores a user's merchant correction.
func (s *ImportService) SaveMerchantOverride(ctx context.Context, override normalizer.MerchantOverride) (*normalizer.MerchantOverride, error) {
	if s.overrides == nil {
		return nil, fmt.Errorf("merchant overrides are not configured")
	}
	return s.overrides.Save(ctx, override)
}

// ListMerchantOverrides returns the user's merchant corrections.
func (s *ImportService) ListMerchantOverrides(ctx context.Context, userID uuid.UUID) ([]normalizer.MerchantOverride, error) {
	if s.overrides == nil {
		return []normalizer.MerchantOverride{}, nil
	}
	return s.overrides.List(ctx, userID)
}

// DeleteMerchantOverride removes a user's merchant correction.
func (s *ImportService) DeleteMerchantOverride(ctx context.Context, userID, overrideID uuid.UUID) error {
	if s.overrides == nil {
		return normalizer.ErrOverrideNotFound
	}
	return s.overrides.Delete(ctx, userID, overrideID)
}

func (s *ImportService) findDuplicates(ctx context.Context, userID uuid.UUID, batch []transaction.Parsed) (dedup.IndexSet, error) {
	existing, err := s.transactions.Query(ctx, userID, transaction.Span(batch))
	if err != nil {
		return nil, fmt.Errorf("failed to load existing transactions: %w", err)
	}
	return dedup.FindDuplicates(batch, transaction.Fingerprints(existing)), nil
}

// enrich cleans the merchant and proposes a category. A matching user
// override beats the built-in dictionary.
func (s *ImportService) enrich(tx transaction.Parsed, tree *category.Tree, overrides []normalizer.MerchantOverride) (normalizer.MerchantInfo, *normalizer.Suggestion) {
	raw := tx.MerchantName()
	if raw == "" && tx.Description != nil {
		raw = *tx.Description
	}
	info := s.sanitizer.Sanitize(raw)

	if o, ok := normalizer.FindOverride(overrides, raw); ok {
		info.NormalizedName = o.MerchantName
		if o.CategoryID != nil {
			if node, found := tree.Lookup(*o.CategoryID); found {
				return info, &normalizer.Suggestion{CategoryID: *o.CategoryID, Name: node.Record().Name}
			}
		}
	}

	if suggestion, ok := normalizer.SuggestCategory(info, tree); ok {
		return info, &suggestion
	}
	return info, nil
}

func (s *ImportService) loadTree(ctx context.Context, userID uuid.UUID) *category.Tree {
	if s.categories == nil {
		return nil
	}
	tree, err := s.categories.Tree(ctx, userID)
	if err != nil {
		s.logger.Warn("category suggestions unavailable", slog.Any("error", err))
		return nil
	}
	return tree
}

func (s *ImportService) loadOverrides(ctx context.Context, userID uuid.UUID) []normalizer.MerchantOverride {
	if s.overrides == nil {
		return nil
	}
	overrides, err := s.overrides.List(ctx, userID)
	if err != nil {
		s.logger.Warn("merchant overrides unavailable", slog.Any("error", err))
		return nil
	}
	return overrides
}

// archiveUpload stores the raw upload and the normalized batch. Failures are
// logged and leave the import without an archive key.
func (s *ImportService) archiveUpload(ctx context.Context, userID, importID uuid.UUID, raw []byte, batch []transaction.Parsed, fileName string) *string {
	if s.archive == nil {
		return nil
	}

	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	if base == "" || base == "." || base == "/" {
		base = "statement"
	}
	base = fmt.Sprintf("%s_%s", importID.String()[:8], base)

	info, err := s.archive.Upload(ctx, userID, base+".csv", "text/csv", bytes.NewReader(raw))
	if err != nil {
		s.logger.Warn("failed to archive upload", slog.String("import_id", importID.String()), slog.Any("error", err))
		return nil
	}

	canonical, err := parser.MarshalCanonical(batch)
	if err == nil {
		_, err = s.archive.Upload(ctx, userID, base+".normalized.csv", "text/csv", bytes.NewReader(canonical))
	}
	if err != nil {
		s.logger.Warn("failed to archive normalized batch", slog.String("import_id", importID.String()), slog.Any("error", err))
	}

	key := info.ID.String()
	return &key
}

func (s *ImportService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
