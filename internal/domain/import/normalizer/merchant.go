// Package normalizer turns raw bank strings into canonical values: locale
// amounts and dates, cleaned merchant names and category hints.
package normalizer

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// MerchantInfo contains normalized merchant information
type MerchantInfo struct {
	OriginalName   string `json:"original_name"`
	NormalizedName string `json:"normalized_name"`
	Category       string `json:"category,omitempty"`
	Subcategory    string `json:"subcategory,omitempty"`
}

// MerchantKeyword maps a keyword found in a statement line to a merchant.
type MerchantKeyword struct {
	Keyword     string
	Name        string
	Category    string
	Subcategory string
}

// MerchantSanitizer normalizes merchant names and detects category hints.
// All keywords are matched in a single pass with Aho-Corasick; the longest
// matching keyword wins so "UBER EATS" beats "UBER".
type MerchantSanitizer struct {
	mu       sync.RWMutex
	keywords []MerchantKeyword
	matcher  *ahocorasick.Matcher
}

// NewMerchantSanitizer creates a sanitizer with the built-in dictionary
func NewMerchantSanitizer() *MerchantSanitizer {
	s := &MerchantSanitizer{}
	s.rebuild(defaultMerchantKeywords())
	return s
}

// Sanitize normalizes a merchant name and detects its category hint
func (s *MerchantSanitizer) Sanitize(rawMerchant string) MerchantInfo {
	cleaned := cleanMerchantName(rawMerchant)
	result := MerchantInfo{
		OriginalName:   rawMerchant,
		NormalizedName: titleCase(cleaned),
	}

	if kw, ok := s.match(cleaned); ok {
		result.NormalizedName = kw.Name
		result.Category = kw.Category
		result.Subcategory = kw.Subcategory
	}
	return result
}

// AddKeyword registers a custom merchant keyword
func (s *MerchantSanitizer) AddKeyword(kw MerchantKeyword) {
	s.mu.RLock()
	keywords := append([]MerchantKeyword(nil), s.keywords...)
	s.mu.RUnlock()

	s.rebuild(append(keywords, kw))
}

func (s *MerchantSanitizer) match(text string) (MerchantKeyword, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.matcher == nil {
		return MerchantKeyword{}, false
	}
	hits := s.matcher.Match([]byte(strings.ToUpper(text)))

	best := -1
	for _, idx := range hits {
		if best < 0 || len(s.keywords[idx].Keyword) > len(s.keywords[best].Keyword) {
			best = idx
		}
	}
	if best < 0 {
		return MerchantKeyword{}, false
	}
	return s.keywords[best], true
}

func (s *MerchantSanitizer) rebuild(keywords []MerchantKeyword) {
	kept := make([]MerchantKeyword, 0, len(keywords))
	patterns := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw.Keyword = strings.ToUpper(strings.TrimSpace(kw.Keyword))
		if kw.Keyword == "" {
			continue
		}
		kept = append(kept, kw)
		patterns = append(patterns, []byte(kw.Keyword))
	}

	var matcher *ahocorasick.Matcher
	if len(patterns) > 0 {
		matcher = ahocorasick.NewMatcher(patterns)
	}

	s.mu.Lock()
	s.keywords = kept
	s.matcher = matcher
	s.mu.Unlock()
}

var (
	noisePrefixes = []string{
		"ZAKUP PRZY UŻYCIU KARTY ", "PŁATNOŚĆ KARTĄ ", "PLATNOSC KARTA ",
		"TRANSAKCJA BLIK ", "BLIK ", "PRZELEW ", "ZAKUP ",
		"CARD PAYMENT ", "PAYMENT ", "PURCHASE ", "POS ",
		"VISA ", "MASTERCARD ",
	}
	refPattern   = regexp.MustCompile(`\s+\d{4,}$`)
	datePattern  = regexp.MustCompile(`\s+\d{1,2}[./]\d{1,2}([./]\d{2,4})?$`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// cleanMerchantName removes common noise from merchant names
func cleanMerchantName(raw string) string {
	result := strings.TrimSpace(raw)

	upper := strings.ToUpper(result)
	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(upper, prefix) {
			result = string([]rune(result)[len([]rune(prefix)):])
			break
		}
	}

	// Terminal and reference numbers at the end, e.g. "123456"
	result = refPattern.ReplaceAllString(result, "")
	// Trailing dates, e.g. "12.01" or "12/01/2024"
	result = datePattern.ReplaceAllString(result, "")
	result = spacePattern.ReplaceAllString(result, " ")

	return strings.TrimSpace(result)
}

// titleCase converts a string to title case
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// defaultMerchantKeywords covers merchants common on Polish statements
func defaultMerchantKeywords() []MerchantKeyword {
	return []MerchantKeyword{
		// Groceries
		{"BIEDRONKA", "Biedronka", "Groceries", "Supermarket"},
		{"LIDL", "Lidl", "Groceries", "Supermarket"},
		{"KAUFLAND", "Kaufland", "Groceries", "Supermarket"},
		{"CARREFOUR", "Carrefour", "Groceries", "Supermarket"},
		{"AUCHAN", "Auchan", "Groceries", "Supermarket"},
		{"ALDI", "Aldi", "Groceries", "Supermarket"},
		{"NETTO", "Netto", "Groceries", "Supermarket"},
		{"DINO", "Dino", "Groceries", "Supermarket"},
		{"ŻABKA", "Żabka", "Groceries", "Convenience"},
		{"ZABKA", "Żabka", "Groceries", "Convenience"},
		{"FRISCO", "Frisco", "Groceries", "Online"},

		// Food & Drink
		{"STARBUCKS", "Starbucks", "Food & Drink", "Coffee"},
		{"COSTA COFFEE", "Costa Coffee", "Food & Drink", "Coffee"},
		{"MCDONALDS", "McDonald's", "Food & Drink", "Fast Food"},
		{"MC DONALDS", "McDonald's", "Food & Drink", "Fast Food"},
		{"KFC", "KFC", "Food & Drink", "Fast Food"},
		{"BURGER KING", "Burger King", "Food & Drink", "Fast Food"},
		{"PYSZNE.PL", "Pyszne.pl", "Food & Drink", "Delivery"},
		{"WOLT", "Wolt", "Food & Drink", "Delivery"},
		{"GLOVO", "Glovo", "Food & Drink", "Delivery"},
		{"UBER EATS", "Uber Eats", "Food & Drink", "Delivery"},
		{"BOLT FOOD", "Bolt Food", "Food & Drink", "Delivery"},

		// Transport
		{"UBER", "Uber", "Transport", "Rideshare"},
		{"BOLT", "Bolt", "Transport", "Rideshare"},
		{"FREENOW", "Free Now", "Transport", "Rideshare"},
		{"JAKDOJADE", "Jakdojade", "Transport", "Public Transit"},
		{"PKP INTERCITY", "PKP Intercity", "Transport", "Train"},
		{"KOLEO", "Koleo", "Transport", "Train"},
		{"ORLEN", "Orlen", "Transport", "Fuel"},
		{"BP ", "BP", "Transport", "Fuel"},
		{"SHELL", "Shell", "Transport", "Fuel"},
		{"CIRCLE K", "Circle K", "Transport", "Fuel"},
		{"RYANAIR", "Ryanair", "Transport", "Flights"},
		{"WIZZ AIR", "Wizz Air", "Transport", "Flights"},
		{"LOT POLISH", "LOT", "Transport", "Flights"},

		// Utilities
		{"PGE", "PGE", "Utilities", "Electricity"},
		{"TAURON", "Tauron", "Utilities", "Electricity"},
		{"ENEA", "Enea", "Utilities", "Electricity"},
		{"PGNIG", "PGNiG", "Utilities", "Gas"},
		{"ORANGE", "Orange", "Utilities", "Telecom"},
		{"PLAY", "Play", "Utilities", "Telecom"},
		{"T-MOBILE", "T-Mobile", "Utilities", "Telecom"},
		{"PLUS GSM", "Plus", "Utilities", "Telecom"},
		{"UPC", "UPC", "Utilities", "Internet"},

		// Shopping
		{"ALLEGRO", "Allegro", "Shopping", "Online"},
		{"AMAZON", "Amazon", "Shopping", "Online"},
		{"ALIEXPRESS", "AliExpress", "Shopping", "Online"},
		{"ZALANDO", "Zalando", "Shopping", "Clothing"},
		{"RESERVED", "Reserved", "Shopping", "Clothing"},
		{"ZARA", "Zara", "Shopping", "Clothing"},
		{"H&M", "H&M", "Shopping", "Clothing"},
		{"IKEA", "IKEA", "Shopping", "Home"},
		{"CASTORAMA", "Castorama", "Shopping", "Home"},
		{"LEROY MERLIN", "Leroy Merlin", "Shopping", "Home"},
		{"MEDIA EXPERT", "Media Expert", "Shopping", "Electronics"},
		{"MEDIAMARKT", "MediaMarkt", "Shopping", "Electronics"},
		{"ROSSMANN", "Rossmann", "Shopping", "Drugstore"},
		{"HEBE", "Hebe", "Shopping", "Drugstore"},

		// Entertainment
		{"NETFLIX", "Netflix", "Entertainment", "Streaming"},
		{"SPOTIFY", "Spotify", "Entertainment", "Streaming"},
		{"HBO MAX", "HBO Max", "Entertainment", "Streaming"},
		{"DISNEY PLUS", "Disney+", "Entertainment", "Streaming"},
		{"YOUTUBE", "YouTube", "Entertainment", "Streaming"},
		{"STEAM", "Steam", "Entertainment", "Gaming"},
		{"PLAYSTATION", "PlayStation", "Entertainment", "Gaming"},
		{"CINEMA CITY", "Cinema City", "Entertainment", "Cinema"},
		{"MULTIKINO", "Multikino", "Entertainment", "Cinema"},

		// Health
		{"APTEKA", "Apteka", "Health", "Pharmacy"},
		{"LUX MED", "Lux Med", "Health", "Medical"},
		{"MEDICOVER", "Medicover", "Health", "Medical"},

		// Finance
		{"REVOLUT", "Revolut", "Finance", "Digital Bank"},
		{"PAYPAL", "PayPal", "Finance", "Payment"},
		{"ZUS", "ZUS", "Finance", "Taxes"},
		{"URZĄD SKARBOWY", "Urząd Skarbowy", "Finance", "Taxes"},
	}
}
