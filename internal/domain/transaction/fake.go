package transaction

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FakeGenerator produces synthetic transactions for tests and local seeding.
type FakeGenerator struct {
	faker *gofakeit.Faker
}

// NewFakeGenerator creates a generator with a fixed seed for reproducibility.
func NewFakeGenerator(seed int64) *FakeGenerator {
	return &FakeGenerator{faker: gofakeit.New(seed)}
}

var fakeMerchants = []string{
	"Biedronka", "Lidl", "Żabka", "Orlen", "Allegro", "Rossmann",
	"Uber", "Bolt", "Netflix", "Spotify", "IKEA", "Castorama",
}

var fakeTypes = []string{
	"Płatność kartą", "Przelew", "CARD_PAYMENT", "TRANSFER", "TOPUP",
}

// Parsed returns a random parsed transaction dated within [from, to].
// Expenses dominate roughly 3 to 1, amounts stay under 2000 in magnitude.
func (g *FakeGenerator) Parsed(from, to time.Time) Parsed {
	date := g.faker.DateRange(from, to)
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	minor := int64(g.faker.Number(1, 200000))
	if g.faker.Number(1, 4) != 1 {
		minor = -minor
	}

	merchant := g.faker.RandomString(fakeMerchants)
	description := merchant + " " + g.faker.Word()
	txType := g.faker.RandomString(fakeTypes)

	return Parsed{
		TransactionDate: date,
		Amount:          decimal.New(minor, -2),
		Currency:        DefaultCurrency,
		Merchant:        &merchant,
		Description:     &description,
		TransactionType: &txType,
	}
}

// Stored returns a random stored transaction for userID. A nil categories slice
// or a coin flip leaves it uncategorized.
func (g *FakeGenerator) Stored(userID uuid.UUID, from, to time.Time, categories []uuid.UUID) Stored {
	s := Stored{
		Parsed:      g.Parsed(from, to),
		ID:          uuid.New(),
		UserID:      userID,
		IsConfirmed: g.faker.Bool(),
		CreatedAt:   to,
	}
	if len(categories) > 0 && g.faker.Number(1, 5) != 1 {
		id := categories[g.faker.Number(0, len(categories)-1)]
		s.CategoryID = &id
	}
	return s
}

// StoredBatch returns n stored transactions.
func (g *FakeGenerator) StoredBatch(n int, userID uuid.UUID, from, to time.Time, categories []uuid.UUID) []Stored {
	out := make([]Stored, n)
	for i := range out {
		out[i] = g.Stored(userID, from, to, categories)
	}
	return out
}
