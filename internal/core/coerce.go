package core

// coerce.go turns raw export cells into keys, amounts and flags.
//
// Input tables come from spreadsheet tools and database dumps, so a numeric
// column can hold "5000", "5000.0", "5e3", "TRUE", "" or garbage. The policy
// here is permissive on purpose: anything that is not a number counts as
// zero. CoerceNumeric reports whether the value was a real number so tests
// and logs can tell "invalid, treated as 0" apart from a genuine zero.

import (
	"math"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// maxExponent bounds the decimal exponent of a coerced cell; cells outside
// ±maxExponent are invalid.
const maxExponent = 30

var (
	decimalOne    = decimal.NewFromInt(1)
	minInt64      = decimal.NewFromInt(math.MinInt64)
	maxInt64      = decimal.NewFromInt(math.MaxInt64)
	minorPerMajor = int32(2)
)

// CoerceNumeric is the numeric coercion policy for amount and flag columns.
//
//   - empty or whitespace: (0, false)
//   - numeric literal: (value, true)
//   - "true" / "false" in any case: (1, true) / (0, true)
//   - anything else: (0, false)
func CoerceNumeric(raw string) (decimal.Decimal, bool) {
	s := CleanCell(raw)
	if s == "" {
		return decimal.Zero, false
	}

	switch strings.ToLower(s) {
	case "true":
		return decimalOne, true
	case "false":
		return decimal.Zero, true
	}

	return parseNumeric(s)
}

// parseNumeric parses a cleaned numeric literal, rejecting exponents
// outside ±maxExponent.
func parseNumeric(s string) (decimal.Decimal, bool) {
	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, false
	}
	return d, true
}

// CoerceAmount applies CoerceNumeric and drops the validity bit.
func CoerceAmount(raw string) decimal.Decimal {
	d, _ := CoerceNumeric(raw)
	return d
}

// IsUnset reports whether a coerced flag is zero, i.e. the fee is not
// collected or the settlement is not paid. Missing and invalid cells coerce
// to zero, so they are unset too.
func IsUnset(flag decimal.Decimal) bool {
	return flag.IsZero()
}

// CoerceKey converts a cell to a foreign/primary key. Only integral numbers
// inside the int64 range are valid; "12.0" is accepted as 12.
func CoerceKey(raw string) pgtype.Int8 {
	d, ok := parseNumeric(CleanCell(raw))
	if !ok || !d.IsInteger() {
		return pgtype.Int8{Valid: false}
	}
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: d.IntPart(), Valid: true}
}

// MinorToMajor converts cents to euros by a fixed division by 100.
func MinorToMajor(minor decimal.Decimal) decimal.Decimal {
	return minor.Shift(-minorPerMajor)
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = CleanCell(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching; on duplicate
// headers the first column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
