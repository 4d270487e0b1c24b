package order

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[string]string{
	"BRL": "R$",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Formatter renders money amounts with two decimals for a locale.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter builds a Formatter for a BCP 47 locale such as "pt-BR".
// Unknown locales fall back to Brazilian Portuguese.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.BrazilianPortuguese
	}
	symbol := "R$"
	if unit, conf := currency.FromTag(tag); conf != language.No {
		if s, ok := symbols[unit.String()]; ok {
			symbol = s
		} else {
			symbol = unit.String()
		}
	}
	return &Formatter{printer: message.NewPrinter(tag), symbol: symbol}
}

// Amount formats v with two decimals and the locale's separators.
func (f *Formatter) Amount(v float64) string {
	return f.printer.Sprintf("%.2f", v)
}

// Money formats v prefixed with the locale's currency symbol.
func (f *Formatter) Money(v float64) string {
	return f.symbol + " " + f.Amount(v)
}
