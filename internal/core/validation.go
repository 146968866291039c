package core

// validation.go checks input headers before any row is decoded.
//
// Cell values are never rejected: the coercion policy turns bad numbers into
// zero. A missing column, however, would silently zero a whole table, so it
// fails the run with an error naming the table and the columns.

import (
	"fmt"
	"strings"
)

// MissingColumnsError reports required columns absent from a table header.
type MissingColumnsError struct {
	Table   TableKind
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required column(s): %s", e.Table, strings.Join(e.Columns, ", "))
}

// ValidateHeaders validates that all required columns exist in the header.
// Returns the header index, or a *MissingColumnsError listing what is absent.
func ValidateHeaders(kind TableKind, headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if _, ok := idx[strings.ToLower(spec.Name)]; !ok {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		return nil, &MissingColumnsError{Table: kind, Columns: missing}
	}

	return idx, nil
}

// DecodeDataset validates and decodes the four raw tables.
// Every registered table must be present in tables.
func DecodeDataset(tables map[TableKind]RawTable) (Dataset, error) {
	var ds Dataset

	for _, def := range All() {
		raw, ok := tables[def.Info.Kind]
		if !ok {
			return Dataset{}, &MissingTablesError{Missing: []TableKind{def.Info.Kind}}
		}

		idx, err := ValidateHeaders(def.Info.Kind, raw.Header, def.FieldSpecs)
		if err != nil {
			return Dataset{}, err
		}

		for _, row := range raw.Rows {
			if isBlankRow(row) {
				continue
			}
			def.Append(&ds, row, idx)
		}
	}

	return ds, nil
}

// isBlankRow reports whether every cell in row is empty after cleanup.
// Spreadsheet exports often carry trailing blank lines.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}
