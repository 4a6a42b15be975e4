package service

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/sniffer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

// UnknownFormatErrors is returned when no supported bank header was found.
var UnknownFormatErrors = []string{
	"Unrecognized bank statement format.",
	"Supported formats: ING (CSV, semicolon separated), Revolut (CSV, comma separated).",
	"Make sure you exported the statement as CSV without modifying it.",
	"If you selected a bank manually, check that it matches the file.",
}

// NoValidRowsError explains a detected file without importable rows.
func NoValidRowsError(bank string) string {
	return fmt.Sprintf("Bank format detected (%s) but no valid transactions were found. "+
		"Every row was missing a transaction date or amount.", bank)
}

// CSVParseResult is the outcome of parsing one upload.
type CSVParseResult struct {
	Success  bool                 `json:"success"`
	Data     []transaction.Parsed `json:"data"`
	Errors   []string             `json:"errors"`
	Skipped  int                  `json:"skipped"`
	BankType string               `json:"bank_type"`
	// DateFallbacks counts rows whose malformed transaction date was replaced
	// by the import day.
	DateFallbacks int `json:"date_fallbacks"`
	HeaderIndex   int `json:"header_index"`
}

// Pipeline decodes, detects and maps bank statement CSVs. It holds no
// per-upload state and is safe for concurrent use.
type Pipeline struct {
	profiles        []parser.Profile
	defaultCurrency string
	now             func() time.Time
	logger          *slog.Logger
}

// NewPipeline creates a pipeline over the built-in bank profiles.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		profiles:        parser.Profiles(),
		defaultCurrency: transaction.DefaultCurrency,
		now:             time.Now,
		logger:          logger,
	}
}

// WithDefaultCurrency sets the currency of rows without a currency column.
func (p *Pipeline) WithDefaultCurrency(code string) *Pipeline {
	if code != "" {
		p.defaultCurrency = code
	}
	return p
}

// WithClock sets the clock used for the malformed-date fallback.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Parse runs a whole upload. hint is "", "Auto" or a bank name; a pinned bank
// fixes the delimiter while detection still decides the format. Detection
// failure and empty results are reported in the result, never as errors.
func (p *Pipeline) Parse(data []byte, hint string) *CSVParseResult {
	pinned, ok := parser.Lookup(hint)
	if !ok {
		p.logger.Warn("unknown bank hint, falling back to auto detection", slog.String("hint", hint))
	}

	text := string(decodeStatement(data))
	delimiter := sniffer.InferDelimiter(text, p.profiles, pinned)
	rows := sniffer.ReadRows(text, delimiter)

	detection := sniffer.Detect(rows, p.profiles)
	if !detection.Found() {
		p.logger.Info("bank format not detected",
			slog.String("delimiter", string(delimiter)),
			slog.Int("rows", len(rows)),
		)
		return &CSVParseResult{
			Success:     false,
			Data:        []transaction.Parsed{},
			Errors:      append([]string(nil), UnknownFormatErrors...),
			BankType:    parser.BankUnknown,
			HeaderIndex: -1,
		}
	}

	profile := detection.Profile
	headers := parser.BuildHeaders(rows[detection.HeaderIndex])
	mc := parser.MapContext{
		Today:           today(p.now()),
		DefaultCurrency: p.defaultCurrency,
	}

	result := &CSVParseResult{
		Data:        make([]transaction.Parsed, 0, len(rows)-detection.HeaderIndex-1),
		Errors:      []string{},
		BankType:    profile.Name(),
		HeaderIndex: detection.HeaderIndex,
	}

	for i, record := range rows[detection.HeaderIndex+1:] {
		mapped, ok := profile.MapRow(parser.NewRawRow(headers, record), mc)
		if !ok {
			result.Skipped++
			continue
		}
		if mapped.DateFallback {
			result.DateFallbacks++
			p.logger.Warn("malformed transaction date replaced by import day",
				slog.String("bank", profile.Name()),
				slog.Int("row", detection.HeaderIndex+1+i),
			)
		}
		result.Data = append(result.Data, mapped.Transaction)
	}

	result.Success = len(result.Data) > 0
	if !result.Success {
		result.Errors = append(result.Errors, NoValidRowsError(profile.Name()))
	}

	p.logger.Debug("statement parsed",
		slog.String("bank", result.BankType),
		slog.Int("header_index", result.HeaderIndex),
		slog.Int("parsed", len(result.Data)),
		slog.Int("skipped", result.Skipped),
	)
	return result
}

// decodeStatement strips a UTF-8 BOM and returns UTF-8 text. Bytes that are not
// valid UTF-8 are decoded from Windows-1250, the code page of Polish bank
// exports.
func decodeStatement(data []byte) []byte {
	data = stripUTF8BOM(data)
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
