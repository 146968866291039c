package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows serves string cells; nil entries scan as NULL.
type fakeRows struct {
	rows [][]*string
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, errors.New("not implemented") }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		t, ok := d.(*pgtype.Text)
		if !ok {
			return errors.New("unexpected destination type")
		}
		if row[i] == nil {
			*t = pgtype.Text{}
		} else {
			*t = pgtype.Text{String: *row[i], Valid: true}
		}
	}
	return nil
}

// fakeDB answers queries by the relation name found in the SQL.
type fakeDB struct {
	tables  map[string][][]*string
	queries []string
}

func (db *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, sql)
	for name, rows := range db.tables {
		if strings.HasSuffix(sql, name) {
			return &fakeRows{rows: rows}, nil
		}
	}
	return nil, errors.New(`ERROR: relation does not exist (SQLSTATE 42P01)`)
}

func str(s string) *string { return &s }

func fixtureDB() *fakeDB {
	return &fakeDB{tables: map[string][][]*string{
		`"cortos"`:        {{str("1"), str("Foo")}, {str("2"), nil}},
		`"inscripciones"`: {{str("1"), str("5000"), str("false")}},
		`"ventas"`:        {{str("10"), str("2")}},
		`"festival"."liquidaciones"`: {
			{str("10"), str("30250.00"), str("0")},
			{str("11"), nil, nil},
		},
	}}
}

func fixtureNames() TableNames {
	return TableNames{
		Shorts:        "cortos",
		Registrations: "inscripciones",
		Sales:         "ventas",
		Settlements:   "festival.liquidaciones",
	}
}

func TestSelectText(t *testing.T) {
	got := selectText("festival.liquidaciones", []string{"venta_id", "liquidado"})
	assert.Equal(t, `SELECT "venta_id"::text, "liquidado"::text FROM "festival"."liquidaciones"`, got)

	got = selectText(`bad"name`, []string{"id"})
	assert.Equal(t, `SELECT "id"::text FROM "bad""name"`, got)
}

func TestLoadFromDatabase(t *testing.T) {
	db := fixtureDB()

	tables, err := LoadFromDatabase(context.Background(), db, fixtureNames())
	require.NoError(t, err)
	require.Len(t, tables, 4)
	assert.Len(t, db.queries, 4)

	shorts := tables[TableShorts]
	assert.Equal(t, []string{"id", "titulo"}, shorts.Header)
	assert.Equal(t, [][]string{{"1", "Foo"}, {"2", ""}}, shorts.Rows, "NULL becomes an empty cell")

	ds, err := DecodeDataset(tables)
	require.NoError(t, err)
	result := Reconcile(ds, MergeOptions{})
	require.Len(t, result.Balances, 2)
	assert.Equal(t, DefaultUnknownTitle, result.Balances[0].Name)
	assertDecimal(t, "302.50", result.Balances[0].Net)
	assertDecimal(t, "-50", result.Balances[1].Net)
	assert.Equal(t, 1, result.Stats.OrphanedSettlements)
}

func TestLoadFromDatabase_MissingRelation(t *testing.T) {
	names := fixtureNames()
	names.Sales = "sales_v2"

	_, err := LoadFromDatabase(context.Background(), fixtureDB(), names)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load sales from sales_v2")
	assert.Equal(t, "DB002", MapError(err).Code)
}

func TestLoadFromDatabase_UnconfiguredRelation(t *testing.T) {
	names := fixtureNames()
	names.Shorts = ""

	_, err := LoadFromDatabase(context.Background(), fixtureDB(), names)
	assert.ErrorContains(t, err, "no relation configured for shorts")
}
