package parser

import (
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

// Revolut maps Revolut account statement CSV exports in Polish or English.
// Dates carry a time of day and there is no merchant column, so the
// description doubles as the merchant.
type Revolut struct{}

var revolutAliases = map[Field][]string{
	FieldTransactionDate: {"Data rozpoczęcia", "Started Date"},
	FieldBookingDate:     {"Data zakończenia", "Completed Date"},
	FieldAmount:          {"Kwota", "Amount"},
	FieldCurrency:        {"Waluta", "Currency"},
	FieldDescription:     {"Opis", "Description"},
	FieldTransactionType: {"Typ", "Type"},
}

func (Revolut) Name() string    { return BankRevolut }
func (Revolut) Delimiter() rune { return ',' }

func (Revolut) Signatures() [][]string {
	return [][]string{
		{"typ", "produkt", "kwota"},
		{"type", "product", "amount"},
	}
}

func (Revolut) Peek() []string {
	return []string{"typ,produkt", "type,product"}
}

func (Revolut) Aliases(f Field) []string {
	return revolutAliases[f]
}

func (p Revolut) MapRow(row RawRow, mc MapContext) (Mapped, bool) {
	rawDate, ok := row.Get(p, FieldTransactionDate)
	if !ok {
		return Mapped{}, false
	}
	rawAmount, ok := row.Get(p, FieldAmount)
	if !ok {
		return Mapped{}, false
	}
	amount, err := normalizer.ParseLocaleAmount(rawAmount)
	if err != nil {
		return Mapped{}, false
	}

	date, dateOK := normalizer.ParseCanonicalDate(rawDate, mc.Today)
	description := lookup(row, p, FieldDescription)
	tx := transaction.Parsed{
		TransactionDate: date,
		Amount:          amount,
		Currency:        currencyOr(row, p, mc.DefaultCurrency),
		Merchant:        description,
		Description:     description,
		TransactionType: lookup(row, p, FieldTransactionType),
	}
	if raw, ok := row.Get(p, FieldBookingDate); ok {
		tx.BookingDate = normalizer.ParseOptionalDate(raw)
	}
	return Mapped{Transaction: tx, DateFallback: !dateOK}, true
}
