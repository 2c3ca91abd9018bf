package unit

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency holds display metadata for a native currency.
type Currency struct {
	// Code is the ISO 4217 currency code (eg. USD).
	Code string
	// Symbol is the currency symbol (eg. $ for USD).
	Symbol string
	// SymbolLeft places the symbol before the number when true ($1.50)
	// and after it otherwise (1,50 kr).
	SymbolLeft bool
	// Decimals is the conventional number of fractional display digits.
	Decimals int
}

// currencies is the closed set of supported display currencies.
//
//nolint:gochecknoglobals // static display metadata
var currencies = map[string]Currency{
	"USD": {Code: "USD", Symbol: "$", SymbolLeft: true, Decimals: 2},
	"EUR": {Code: "EUR", Symbol: "€", SymbolLeft: true, Decimals: 2},
	"GBP": {Code: "GBP", Symbol: "£", SymbolLeft: true, Decimals: 2},
	"JPY": {Code: "JPY", Symbol: "¥", SymbolLeft: true, Decimals: 0},
	"CHF": {Code: "CHF", Symbol: "CHF", SymbolLeft: false, Decimals: 2},
	"SEK": {Code: "SEK", Symbol: "kr", SymbolLeft: false, Decimals: 2},
	"KRW": {Code: "KRW", Symbol: "₩", SymbolLeft: true, Decimals: 0},
	"CNY": {Code: "CNY", Symbol: "¥", SymbolLeft: true, Decimals: 2},
}

// LookupCurrency returns display metadata for a currency code, falling
// back to USD conventions for unknown codes.
func LookupCurrency(code string) Currency {
	if c, ok := currencies[strings.ToUpper(code)]; ok {
		return c
	}
	return Currency{Code: strings.ToUpper(code), Symbol: "", SymbolLeft: true, Decimals: 2}
}

// PriceEntry is one asset's quote in one currency.
type PriceEntry struct {
	// Price is the native-currency value of one whole asset unit.
	Price NativeAmount
	// Change is the 24h percentage change as reported by the feed.
	Change decimal.Decimal
}

// PriceTable is a snapshot of asset quotes keyed by currency code and
// asset symbol. It is rebuilt wholesale on each refresh and never mutated
// in place, so readers may hold a reference without locking.
type PriceTable struct {
	SelectedCurrency string
	PerCurrency      map[string]map[string]PriceEntry
}

// NewPriceTable builds an immutable snapshot from a freshly fetched quote
// set. The maps are copied so the caller's buffers can be reused.
func NewPriceTable(selected string, quotes map[string]map[string]PriceEntry) *PriceTable {
	per := make(map[string]map[string]PriceEntry, len(quotes))
	for cur, bySymbol := range quotes {
		m := make(map[string]PriceEntry, len(bySymbol))
		for sym, e := range bySymbol {
			m[strings.ToUpper(sym)] = e
		}
		per[strings.ToUpper(cur)] = m
	}
	return &PriceTable{SelectedCurrency: strings.ToUpper(selected), PerCurrency: per}
}

// Lookup returns the selected-currency quote for an asset symbol.
func (t *PriceTable) Lookup(symbol string) (PriceEntry, bool) {
	if t == nil {
		return PriceEntry{}, false
	}
	bySymbol, ok := t.PerCurrency[t.SelectedCurrency]
	if !ok {
		return PriceEntry{}, false
	}
	e, ok := bySymbol[strings.ToUpper(symbol)]
	return e, ok
}

// Currency returns display metadata for the table's selected currency.
func (t *PriceTable) Currency() Currency {
	if t == nil {
		return LookupCurrency("USD")
	}
	return LookupCurrency(t.SelectedCurrency)
}
