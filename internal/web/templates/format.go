package templates

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts for the screen in the configured locale.
// Exports never go through it; they use the fixed dialect formats.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter builds a Formatter for a BCP 47 tag such as "es" or "en-GB".
// An unparseable tag falls back to Spanish.
func NewFormatter(locale, currency string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return Formatter{
		printer:  message.NewPrinter(tag),
		currency: strings.TrimSpace(currency),
	}
}

// Amount formats v with two decimals, locale separators and the currency symbol.
func (f Formatter) Amount(v decimal.Decimal) string {
	s := f.printer.Sprintf("%.2f", v.Round(2).InexactFloat64())
	if f.currency == "" {
		return s
	}
	return s + " " + f.currency
}

// Count formats an integer with locale grouping.
func (f Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}
