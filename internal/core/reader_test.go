package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    FileFormat
		wantErr bool
	}{
		{"cortos.csv", FormatCSV, false},
		{"VENTAS.CSV", FormatCSV, false},
		{"dump.txt", FormatCSV, false},
		{"liquidaciones.xlsx", FormatXLSX, false},
		{"old.xls", 0, true},
		{"noext", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTable_CSV(t *testing.T) {
	input := "id,titulo\n1,Foo\n2,\"Bar, the movie\"\n"

	raw, err := ReadTable(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "titulo"}, raw.Header)
	assert.Equal(t, [][]string{{"1", "Foo"}, {"2", "Bar, the movie"}}, raw.Rows)
}

func TestReadTable_CSVWithBOMAndSemicolons(t *testing.T) {
	input := "\xEF\xBB\xBFventa_id;importe_liquidar;liquidado\r\n10;30250;0\r\n"

	raw, err := ReadTable(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"venta_id", "importe_liquidar", "liquidado"}, raw.Header)
	require.Len(t, raw.Rows, 1)
	assert.Equal(t, []string{"10", "30250", "0"}, raw.Rows[0])
}

func TestReadTable_CSVRaggedRows(t *testing.T) {
	raw, err := ReadTable(strings.NewReader("id,corto_id\n1\n2,3,extra\n"), FormatCSV)
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 2)
}

func TestReadTable_Empty(t *testing.T) {
	for _, input := range []string{"", "  \n\n", "\xEF\xBB\xBF"} {
		_, err := ReadTable(strings.NewReader(input), FormatCSV)
		assert.True(t, errors.Is(err, ErrEmptyFile), "input %q: got %v", input, err)
	}
}

func TestReadTable_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"corto_id", "fee_amount", "fee_cobrado"},
		{1, 5000, 0},
		{2, 2500, 1},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	raw, err := ReadTable(&buf, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"corto_id", "fee_amount", "fee_cobrado"}, raw.Header)
	assert.Equal(t, [][]string{{"1", "5000", "0"}, {"2", "2500", "1"}}, raw.Rows)
}

func TestReadTable_XLSXIgnoresNumberFormats(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []any{"corto_id", "fee_amount", "fee_cobrado"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	row := []any{1, 5000, 0}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))
	require.NoError(t, f.SetCellValue(sheet, "B3", 1234.5))
	require.NoError(t, f.SetCellValue(sheet, "A3", 2))

	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	twoDecimals, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "B2", "B2", thousands))
	require.NoError(t, f.SetCellStyle(sheet, "B3", "B3", twoDecimals))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	raw, err := ReadTable(&buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, "5000", raw.Rows[0][1])
	assert.Equal(t, "1234.5", raw.Rows[1][1])

	ds, err := DecodeDataset(map[TableKind]RawTable{
		TableShorts:        {Header: []string{"id", "titulo"}},
		TableRegistrations: raw,
		TableSales:         {Header: []string{"id", "corto_id"}},
		TableSettlements:   {Header: []string{"venta_id", "importe_liquidar", "liquidado"}},
	})
	require.NoError(t, err)
	debts, _ := AggregateDebts(ds.Registrations)
	assertDecimal(t, "5000", debts[1], "title 1")
	assertDecimal(t, "1234.5", debts[2], "title 2")
}

func TestReadTable_InvalidXLSX(t *testing.T) {
	_, err := ReadTable(strings.NewReader("not a zip"), FormatXLSX)
	require.Error(t, err)
	assert.Equal(t, "FILE007", MapError(err).Code)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b,c\n1;2")))
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n1,2")))
	assert.Equal(t, ',', sniffDelimiter([]byte(`"a;b",c`)))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
}
