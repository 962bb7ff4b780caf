package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders a monetary value with thousand separators for audit
// trails and log lines, e.g. 1234567.5 -> "1,234,567.50".
func FormatMoney(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}
