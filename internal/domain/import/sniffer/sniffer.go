// Package sniffer identifies which bank produced a CSV export and where its
// header row is. Statements often start with account metadata lines, so the
// header is searched for rather than assumed to be the first row.
package sniffer

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
)

// MaxScanRows bounds the header search.
const MaxScanRows = 35

// Detection is the outcome of Detect. Profile is nil and HeaderIndex is -1
// when no known format was found.
type Detection struct {
	Profile     parser.Profile
	HeaderIndex int
}

// Found reports whether a profile matched.
func (d Detection) Found() bool {
	return d.Profile != nil && d.HeaderIndex >= 0
}

// BankType returns the detected bank name or "Unknown".
func (d Detection) BankType() string {
	if d.Profile == nil {
		return parser.BankUnknown
	}
	return d.Profile.Name()
}

// InferDelimiter picks the field separator. A pinned profile decides outright.
// Otherwise the first profile whose peek marker occurs in the text wins, then a
// semicolon in the first non-empty line, then a comma.
func InferDelimiter(text string, profiles []parser.Profile, pinned parser.Profile) rune {
	if pinned != nil {
		return pinned.Delimiter()
	}

	lower := strings.ToLower(text)
	for _, p := range profiles {
		for _, marker := range p.Peek() {
			if strings.Contains(lower, marker) {
				return p.Delimiter()
			}
		}
	}

	if strings.Contains(firstLine(text), ";") {
		return ';'
	}
	return ','
}

// ReadRows splits text into records. Quotes are handled leniently, rows may
// have different widths and blank rows are dropped.
func ReadRows(text string, delimiter rune) [][]string {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}
	return rows
}

// Detect scans the first MaxScanRows rows for a header matching one of the
// profiles' signatures. Rows are scanned top-down and, within a row, profiles
// are tried in order; the first match wins.
func Detect(rows [][]string, profiles []parser.Profile) Detection {
	limit := len(rows)
	if limit > MaxScanRows {
		limit = MaxScanRows
	}

	for i := 0; i < limit; i++ {
		joined := strings.ToLower(strings.Join(rows[i], " "))
		for _, p := range profiles {
			if matchesAny(joined, p.Signatures()) {
				return Detection{Profile: p, HeaderIndex: i}
			}
		}
	}
	return Detection{HeaderIndex: -1}
}

func matchesAny(text string, signatures [][]string) bool {
	for _, tokens := range signatures {
		if len(tokens) == 0 {
			continue
		}
		matched := true
		for _, tok := range tokens {
			if !strings.Contains(text, tok) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
