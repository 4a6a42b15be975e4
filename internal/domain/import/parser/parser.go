// Package parser maps bank statement rows onto canonical transactions.
//
// Each supported bank is a Profile: the signature tokens that identify its
// header row, the header names accepted for every canonical field, and the
// row-mapping quirks of its export. Adding a bank means adding one Profile to
// the registry.
package parser

import (
	"strings"
	"time"

	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

// Bank type names as reported in parse results.
const (
	BankING     = "ING"
	BankRevolut = "Revolut"
	BankUnknown = "Unknown"
	BankAuto    = "Auto"
)

// Field is a canonical transaction field a profile can map.
type Field int

const (
	FieldTransactionDate Field = iota
	FieldBookingDate
	FieldAmount
	FieldCurrency
	FieldMerchant
	FieldDescription
	FieldTransactionType
	FieldOriginalAmount
)

func (f Field) String() string {
	switch f {
	case FieldTransactionDate:
		return "transaction_date"
	case FieldBookingDate:
		return "booking_date"
	case FieldAmount:
		return "amount"
	case FieldCurrency:
		return "currency"
	case FieldMerchant:
		return "merchant"
	case FieldDescription:
		return "description"
	case FieldTransactionType:
		return "transaction_type"
	case FieldOriginalAmount:
		return "original_amount"
	}
	return "unknown"
}

// MapContext carries per-upload values row mapping depends on.
type MapContext struct {
	// Today replaces malformed transaction dates.
	Today time.Time
	// DefaultCurrency is used when a row has no currency column.
	DefaultCurrency string
}

// Mapped is a successfully mapped row.
type Mapped struct {
	Transaction transaction.Parsed
	// DateFallback is set when the transaction date was malformed and replaced by today.
	DateFallback bool
}

// Profile describes one bank's CSV export.
type Profile interface {
	// Name is the bank type reported to callers.
	Name() string
	// Delimiter is the export's field separator.
	Delimiter() rune
	// Signatures lists alternative token sets. A header row matches when its
	// lower-cased text contains every token of any one set.
	Signatures() [][]string
	// Peek lists lower-case markers that identify the bank in raw text before
	// the delimiter is known.
	Peek() []string
	// Aliases lists accepted header names for a field, most preferred first.
	Aliases(Field) []string
	// MapRow converts a row. ok is false when the transaction date or amount is
	// missing or the amount cannot be parsed.
	MapRow(row RawRow, mc MapContext) (m Mapped, ok bool)
}

var registry = []Profile{ING{}, Revolut{}}

// Profiles returns the registry in detection order.
func Profiles() []Profile {
	out := make([]Profile, len(registry))
	copy(out, registry)
	return out
}

// Lookup resolves a bank hint. An empty hint or "auto" returns nil with ok=true.
func Lookup(name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, BankAuto) {
		return nil, true
	}
	for _, p := range registry {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// BankTypes lists the names accepted by Lookup besides Auto.
func BankTypes() []string {
	out := make([]string, len(registry))
	for i, p := range registry {
		out[i] = p.Name()
	}
	return out
}
