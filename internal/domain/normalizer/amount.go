package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// maxMinorUnits bounds parsed amounts well inside int64.
const maxMinorUnits = 1_000_000_000_000_000

var currencySymbols = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "", "₹", "",
	" ", "", " ", "",
)

var groupedDigits = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// StripGrouping removes thousands separators from an unsigned amount. It
// reports false when a comma is anything but a separator between groups of
// three integer digits, e.g. "5,50" or "1,2,3".
func StripGrouping(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	if !groupedDigits.MatchString(s) {
		return "", false
	}
	return strings.ReplaceAll(s, ",", ""), true
}

// ParseCurrency upper-cases code and checks it against ISO 4217. An empty
// code resolves to fallback.
func ParseCurrency(code, fallback string) (currency.Unit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = strings.ToUpper(strings.TrimSpace(fallback))
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", model.ErrInvalidCurrency, code)
	}
	return unit, nil
}

// ParseAmount converts decimal text into integer minor units of unit.
//
// Accepted forms include "5.50", "-5.50", "$1,234.00", "(12.00)" and "+3".
// Amounts with more fractional digits than the currency allows are rounded
// half away from zero.
func ParseAmount(text string, unit currency.Unit) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", model.ErrInvalidAmount)
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "nan") || strings.Contains(lower, "inf") {
		return 0, fmt.Errorf("%w: not finite", model.ErrInvalidAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = currencySymbols.Replace(s)
	if strings.HasPrefix(s, "-") {
		if negative {
			return 0, fmt.Errorf("%w: double negative", model.ErrInvalidAmount)
		}
		negative = true
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" || strings.ContainsAny(s, "+-eE") {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidAmount, text)
	}
	s, ok := StripGrouping(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q has misplaced digit grouping", model.ErrInvalidAmount, text)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidAmount, text)
	}
	if negative {
		d = d.Neg()
	}

	scale, _ := currency.Standard.Rounding(unit)
	minor := d.Shift(int32(scale)).Round(0)
	if minor.Abs().GreaterThanOrEqual(decimal.NewFromInt(maxMinorUnits)) {
		return 0, fmt.Errorf("%w: %q out of range", model.ErrInvalidAmount, text)
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units of the ISO currency code as fixed-point
// text, e.g. -550 CAD as "-5.50". Unknown codes are treated as two-decimal.
func FormatAmount(minor int64, code string) string {
	scale := 2
	if unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code))); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	return decimal.New(minor, -int32(scale)).StringFixed(int32(scale))
}
