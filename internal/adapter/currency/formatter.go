package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts as a locale currency symbol followed by the
// locale-formatted amount at the currency's standard precision, e.g.
// "$1,250.00" or "¥100".
type Formatter struct {
	printer *message.Printer
}

func NewFormatter(locale language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(locale)}
}

func (f *Formatter) Format(amount decimal.Decimal, currencyCode string) (string, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}

	scale, _ := currency.Standard.Rounding(unit)
	value := amount.Round(int32(scale)).InexactFloat64()
	return f.symbol(unit) + f.printer.Sprint(number.Decimal(value, number.Scale(scale))), nil
}

func (f *Formatter) Symbol(currencyCode string) (string, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}
	return f.symbol(unit), nil
}

func (f *Formatter) symbol(unit currency.Unit) string {
	return f.printer.Sprint(currency.Symbol(unit))
}
