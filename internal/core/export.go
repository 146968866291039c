package core

// export.go writes a report as a downloadable file.
//
// Two CSV dialects are supported because the operator opens the file in
// different spreadsheet locales:
//
//   - csv:    "," separator, "." decimal, plain UTF-8
//   - csv-es: ";" separator, "," decimal, UTF-8 with BOM (Excel in es-ES)
//
// The xlsx export carries the same columns plus a summary sheet.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Dialect selects the CSV flavour of an export.
type Dialect string

const (
	DialectStandard      Dialect = "csv"
	DialectSpreadsheetES Dialect = "csv-es"
)

// ExportBaseName is the download file name without extension.
const ExportBaseName = "balance_liquidaciones_real"

// ExportHeader is the column header of every export.
var ExportHeader = []string{"ID", "Título", "Credit", "Debt", "Net"}

// ParseDialect validates a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectStandard, DialectSpreadsheetES:
		return d, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use csv, csv-es or xlsx)", s)
	}
}

func (d Dialect) separator() rune {
	if d == DialectSpreadsheetES {
		return ';'
	}
	return ','
}

// FormatAmount renders a major-unit amount with two decimals in the
// dialect's decimal mark. No thousands separators.
func (d Dialect) FormatAmount(v decimal.Decimal) string {
	s := v.StringFixed(2)
	if d == DialectSpreadsheetES {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

// ExportCSV writes balances in report order.
func ExportCSV(w io.Writer, balances []TitleBalance, d Dialect) error {
	var bom *transform.Writer
	if d == DialectSpreadsheetES {
		bom = transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		w = bom
	}

	cw := csv.NewWriter(w)
	cw.Comma = d.separator()

	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range balances {
		rec := []string{
			strconv.FormatInt(b.TitleID, 10),
			b.Name,
			d.FormatAmount(b.Credit),
			d.FormatAmount(b.Debt),
			d.FormatAmount(b.Net),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", b.TitleID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if bom != nil {
		return bom.Close()
	}
	return nil
}

const (
	balanceSheet = "Balance"
	summarySheet = "Summary"
)

// ExportXLSX writes the report as a workbook with a Balance and a Summary sheet.
// Net cells are filled with the same colors as the web table.
func ExportXLSX(w io.Writer, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), balanceSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	styles, err := newToneStyles(f)
	if err != nil {
		return err
	}

	for col, h := range ExportHeader {
		if err := setCell(f, balanceSheet, col+1, 1, h); err != nil {
			return err
		}
	}

	for i, b := range report.Balances {
		row := i + 2
		values := []any{b.TitleID, b.Name, b.Credit.InexactFloat64(), b.Debt.InexactFloat64(), b.Net.InexactFloat64()}
		for col, v := range values {
			if err := setCell(f, balanceSheet, col+1, row, v); err != nil {
				return err
			}
		}

		first, _ := excelize.CoordinatesToCellName(3, row)
		last, _ := excelize.CoordinatesToCellName(5, row)
		if err := f.SetCellStyle(balanceSheet, first, last, styles.amount); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
		if style, ok := styles.tone[ToneOf(b.Net)]; ok {
			if err := f.SetCellStyle(balanceSheet, last, last, style); err != nil {
				return fmt.Errorf("style row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(balanceSheet, "B", "B", 40); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	summaryRows := [][]any{
		{"Total a Transferir (Cash Out)", report.Summary.CashOut.InexactFloat64()},
		{"Deuda Recuperada (Compensada)", report.Summary.Compensated.InexactFloat64()},
		{"Deuda Fees Restante", report.Summary.OutstandingDebt.InexactFloat64()},
	}
	for i, rec := range summaryRows {
		for col, v := range rec {
			if err := setCell(f, summarySheet, col+1, i+1, v); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(summarySheet, "B1", "B3", styles.amount); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 34); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type toneStyles struct {
	amount int
	tone   map[Tone]int
}

func newToneStyles(f *excelize.File) (toneStyles, error) {
	const twoDecimals = 2 // built-in "0.00"

	amount, err := f.NewStyle(&excelize.Style{NumFmt: twoDecimals})
	if err != nil {
		return toneStyles{}, fmt.Errorf("amount style: %w", err)
	}

	styles := toneStyles{amount: amount, tone: make(map[Tone]int)}
	for tone, c := range map[Tone][2]string{
		TonePositive: {"D4EDDA", "155724"},
		ToneNegative: {"F8D7DA", "721C24"},
	} {
		id, err := f.NewStyle(&excelize.Style{
			NumFmt: twoDecimals,
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{c[0]}},
			Font:   &excelize.Font{Bold: true, Color: c[1]},
		})
		if err != nil {
			return toneStyles{}, fmt.Errorf("%s style: %w", tone, err)
		}
		styles.tone[tone] = id
	}
	return styles, nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}
