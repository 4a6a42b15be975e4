package parser

import "strings"

// RawRow is a data row keyed by normalized header name. Values are only read
// through a profile's aliases.
type RawRow map[string]string

// BuildHeaders trims header cells and strips wrapping quotes.
func BuildHeaders(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		h = strings.TrimPrefix(h, "\ufeff")
		if len(h) >= 2 && h[0] == '"' && h[len(h)-1] == '"' {
			h = strings.TrimSpace(h[1 : len(h)-1])
		}
		out[i] = h
	}
	return out
}

// NewRawRow pairs headers with a record. The first occurrence of a repeated
// header wins; cells beyond the header width are ignored.
func NewRawRow(headers, record []string) RawRow {
	row := make(RawRow, len(headers))
	for i, h := range headers {
		key := headerKey(h)
		if key == "" {
			continue
		}
		if _, seen := row[key]; seen {
			continue
		}
		if i < len(record) {
			row[key] = record[i]
		} else {
			row[key] = ""
		}
	}
	return row
}

// Get returns the first non-blank value among the profile's aliases for field.
func (r RawRow) Get(p Profile, field Field) (string, bool) {
	for _, alias := range p.Aliases(field) {
		if v, ok := r[headerKey(alias)]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
