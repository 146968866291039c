package core

// pgsource.go reads the four input tables straight from the festival
// PostgreSQL database instead of from uploaded exports.
//
// Every column is selected as ::text so the rows go through exactly the same
// coercion as a CSV upload: NULL becomes an empty cell, booleans become
// "true"/"false", numerics keep their textual form.

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of *pgxpool.Pool and *pgx.Conn the source needs.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TableNames maps each input table to its relation name, optionally
// schema-qualified ("public.cortos").
type TableNames struct {
	Shorts        string
	Registrations string
	Sales         string
	Settlements   string
}

// For returns the relation name of kind.
func (n TableNames) For(kind TableKind) string {
	switch kind {
	case TableShorts:
		return n.Shorts
	case TableRegistrations:
		return n.Registrations
	case TableSales:
		return n.Sales
	case TableSettlements:
		return n.Settlements
	default:
		return ""
	}
}

// LoadFromDatabase reads every registered table from db.
func LoadFromDatabase(ctx context.Context, db DBTX, names TableNames) (map[TableKind]RawTable, error) {
	tables := make(map[TableKind]RawTable, TableCount())

	for _, def := range All() {
		relation := names.For(def.Info.Kind)
		if relation == "" {
			return nil, fmt.Errorf("no relation configured for %s", def.Info.Kind)
		}

		raw, err := loadTable(ctx, db, relation, def.Columns())
		if err != nil {
			return nil, fmt.Errorf("load %s from %s: %w", def.Info.Kind, relation, err)
		}
		tables[def.Info.Kind] = raw
	}

	return tables, nil
}

func loadTable(ctx context.Context, db DBTX, relation string, columns []string) (RawTable, error) {
	query := selectText(relation, columns)

	rows, err := db.Query(ctx, query)
	if err != nil {
		return RawTable{}, err
	}
	defer rows.Close()

	raw := RawTable{Header: columns}
	for rows.Next() {
		cells := make([]pgtype.Text, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return RawTable{}, fmt.Errorf("scan row %d: %w", len(raw.Rows)+1, err)
		}

		row := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		raw.Rows = append(raw.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return RawTable{}, err
	}

	return raw, nil
}

// selectText builds SELECT "a"::text, "b"::text FROM "schema"."table".
func selectText(relation string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgx.Identifier{c}.Sanitize() + "::text"
	}
	table := pgx.Identifier(strings.Split(relation, ".")).Sanitize()
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
}
