package parser

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

// CanonicalRow is the normalized CSV layout archived next to each raw upload.
type CanonicalRow struct {
	TransactionDate  string `csv:"transaction_date"`
	BookingDate      string `csv:"booking_date"`
	Amount           string `csv:"amount"`
	Currency         string `csv:"currency"`
	Merchant         string `csv:"merchant"`
	Description      string `csv:"description"`
	TransactionType  string `csv:"transaction_type"`
	OriginalAmount   string `csv:"original_amount"`
	OriginalCurrency string `csv:"original_currency"`
}

// MarshalCanonical renders a batch as CSV with a header row.
func MarshalCanonical(batch []transaction.Parsed) ([]byte, error) {
	rows := make([]CanonicalRow, len(batch))
	for i, tx := range batch {
		rows[i] = CanonicalRow{
			TransactionDate: tx.TransactionDate.Format(transaction.DateLayout),
			Amount:          tx.Amount.String(),
			Currency:        tx.Currency,
			Merchant:        deref(tx.Merchant),
			Description:     deref(tx.Description),
			TransactionType: deref(tx.TransactionType),
		}
		if tx.BookingDate != nil {
			rows[i].BookingDate = tx.BookingDate.Format(transaction.DateLayout)
		}
		if tx.OriginalAmount != nil {
			rows[i].OriginalAmount = tx.OriginalAmount.String()
			rows[i].OriginalCurrency = deref(tx.OriginalCurrency)
		}
	}

	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canonical csv: %w", err)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
