package export

import (
	"errors"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrNothingToRender = errors.New("nothing to render")
	ErrInvalidHeader   = errors.New("attendance sheet header does not match the template")
	ErrInvalidCell     = errors.New("attendance sheet cell is not a number")
)

var printer = message.NewPrinter(language.English)

// Amount formats money with thousands separators and centavos.
func Amount(value decimal.Decimal) string {
	return printer.Sprintf("%.2f", value.Round(2).InexactFloat64())
}

// Peso prefixes Amount with the currency code. Core PDF fonts have no peso sign.
func Peso(value decimal.Decimal) string {
	return "PHP " + Amount(value)
}

func plain(value decimal.Decimal) string {
	return value.StringFixed(2)
}
