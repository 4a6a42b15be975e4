package parser

import (
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/transaction"
)

// ForeignCurrencyAssumption is the currency given to ING's "amount in payment
// currency" column. The export does not carry that currency in a parseable
// column, so foreign amounts are assumed to be euros.
const ForeignCurrencyAssumption = "EUR"

// ING maps ING Bank Śląski "Historia transakcji" CSV exports: semicolon
// separated, comma decimals, amounts possibly containing spaces.
type ING struct{}

var ingAliases = map[Field][]string{
	FieldTransactionDate: {"Data transakcji"},
	FieldBookingDate:     {"Data księgowania"},
	FieldAmount:          {"Kwota transakcji (waluta rachunku)", "Kwota transakcji"},
	FieldCurrency:        {"Waluta"},
	FieldMerchant:        {"Dane kontrahenta"},
	FieldDescription:     {"Tytuł"},
	FieldTransactionType: {"Szczegóły"},
	FieldOriginalAmount:  {"Kwota płatności w walucie"},
}

func (ING) Name() string    { return BankING }
func (ING) Delimiter() rune { return ';' }

func (ING) Signatures() [][]string {
	return [][]string{{"data transakcji", "kwota transakcji"}}
}

func (ING) Peek() []string {
	return []string{"data transakcji"}
}

func (ING) Aliases(f Field) []string {
	return ingAliases[f]
}

func (p ING) MapRow(row RawRow, mc MapContext) (Mapped, bool) {
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
	tx := transaction.Parsed{
		TransactionDate: date,
		Amount:          amount,
		Currency:        currencyOr(row, p, mc.DefaultCurrency),
		Merchant:        lookup(row, p, FieldMerchant),
		Description:     lookup(row, p, FieldDescription),
		TransactionType: lookup(row, p, FieldTransactionType),
	}
	if raw, ok := row.Get(p, FieldBookingDate); ok {
		tx.BookingDate = normalizer.ParseOptionalDate(raw)
	}
	if raw, ok := row.Get(p, FieldOriginalAmount); ok {
		if original, err := normalizer.ParseLocaleAmount(raw); err == nil && !original.IsZero() {
			code := ForeignCurrencyAssumption
			tx.OriginalAmount = &original
			tx.OriginalCurrency = &code
		}
	}
	return Mapped{Transaction: tx, DateFallback: !dateOK}, true
}

func lookup(row RawRow, p Profile, f Field) *string {
	v, ok := row.Get(p, f)
	if !ok {
		return nil
	}
	return transaction.StringPtr(v)
}

func currencyOr(row RawRow, p Profile, fallback string) string {
	if v, ok := row.Get(p, FieldCurrency); ok {
		return v
	}
	if fallback == "" {
		return transaction.DefaultCurrency
	}
	return fallback
}
