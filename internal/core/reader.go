package core

// reader.go reads one uploaded table into a RawTable.
//
// The format is chosen from the file extension. Delimited text is decoded
// through x/text so a UTF-8 (or UTF-16) byte order mark added by Windows tools
// is dropped and invalid byte sequences become U+FFFD instead of breaking the
// parser. Spreadsheets are read from their first sheet with excelize.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FileFormat is the on-disk format of an input table.
type FileFormat int

const (
	FormatCSV FileFormat = iota
	FormatXLSX
)

func (f FileFormat) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ErrEmptyFile is returned when a table has no header line.
var ErrEmptyFile = errors.New("empty file: no header row")

// ErrUnsupportedFormat is returned for extensions other than .csv/.txt/.xlsx/.xlsm.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat picks the reader for fileName by extension.
func DetectFormat(fileName string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return 0, fmt.Errorf("%w %q (use .csv or .xlsx)", ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}

// ReadTable reads a whole table. The first non-empty record is the header.
func ReadTable(r io.Reader, format FileFormat) (RawTable, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatXLSX:
		return readXLSX(r)
	default:
		return RawTable{}, ErrUnsupportedFormat
	}
}

func readCSV(r io.Reader) (RawTable, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return RawTable{}, fmt.Errorf("encoding error: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return RawTable{}, ErrEmptyFile
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return RawTable{}, fmt.Errorf("invalid csv: %w", err)
	}
	return splitHeader(records)
}

// sniffDelimiter chooses between ',' and ';' by counting both on the
// header line outside quotes. Spanish-locale spreadsheet exports use ';'.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	var commas, semis int
	quoted := false
	for _, b := range line {
		switch b {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				commas++
			}
		case ';':
			if !quoted {
				semis++
			}
		}
	}

	if semis > commas {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) (RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RawTable{}, fmt.Errorf("invalid spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawTable{}, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return RawTable{}, fmt.Errorf("invalid spreadsheet: sheet %q: %w", sheets[0], err)
	}
	return splitHeader(rows)
}

// splitHeader drops leading blank records and separates the header.
func splitHeader(records [][]string) (RawTable, error) {
	for i, rec := range records {
		if isBlankRow(rec) {
			continue
		}
		return RawTable{Header: rec, Rows: records[i+1:]}, nil
	}
	return RawTable{}, ErrEmptyFile
}
