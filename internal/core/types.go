package core

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TableKind identifies one of the four input tables.
type TableKind string

const (
	TableShorts        TableKind = "shorts"
	TableRegistrations TableKind = "registrations"
	TableSales         TableKind = "sales"
	TableSettlements   TableKind = "settlements"
)

// TableKinds lists every input table in display order.
var TableKinds = []TableKind{TableShorts, TableRegistrations, TableSales, TableSettlements}

// FieldType describes how a column is interpreted.
type FieldType int

const (
	FieldText FieldType = iota
	FieldKey
	FieldAmount
	FieldFlag
)

// FieldSpec defines one column of an input table.
type FieldSpec struct {
	Name     string    // Column header name (matched case-insensitively)
	Type     FieldType // How the cell is coerced
	Required bool      // Column must exist in the header
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Kind        TableKind
	Label       string // "Cortos"
	Description string // shown next to the upload input
	Order       int
}

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// RawTable is an input table as read from a file or the database,
// header first, cells untouched.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// Title is a short film. Source of truth for display names.
type Title struct {
	ID   pgtype.Int8
	Name pgtype.Text
}

// Registration is one entry-fee obligation of a producer.
type Registration struct {
	TitleID      pgtype.Int8
	FeeAmount    decimal.Decimal // minor units
	FeeCollected decimal.Decimal // nonzero = collected
}

// Sale bridges a settlement to its title.
type Sale struct {
	ID      pgtype.Int8
	TitleID pgtype.Int8
}

// Settlement is one pending or paid producer payout.
type Settlement struct {
	SaleID         pgtype.Int8
	Settled        decimal.Decimal // nonzero = settled
	AmountToSettle decimal.Decimal // minor units
}

// Dataset holds the decoded contents of the four tables for one run.
type Dataset struct {
	Titles        []Title
	Registrations []Registration
	Sales         []Sale
	Settlements   []Settlement
}

// Sums maps a title id to an amount in minor units.
type Sums map[int64]decimal.Decimal

// TitleBalance is the reconciled position of one title, in major units.
type TitleBalance struct {
	TitleID int64           `json:"id"`
	Name    string          `json:"title"`
	Credit  decimal.Decimal `json:"credit"`
	Debt    decimal.Decimal `json:"debt"`
	Net     decimal.Decimal `json:"net"`
}

// Summary holds the report headline figures, in major units.
type Summary struct {
	CashOut         decimal.Decimal `json:"cashOut"`         // Σ Net where Net > 0
	Compensated     decimal.Decimal `json:"compensated"`     // Σ Credit where Net <= 0
	OutstandingDebt decimal.Decimal `json:"outstandingDebt"` // Σ |Net| where Net < 0
}

// RunStats counts rows that were filtered, dropped or patched during a run.
type RunStats struct {
	Rows                 map[TableKind]int `json:"rows"`
	UnpaidRegistrations  int               `json:"unpaidRegistrations"`
	UnsettledSettlements int               `json:"unsettledSettlements"`
	OrphanedSettlements  int               `json:"orphanedSettlements"`
	UnkeyedRows          int               `json:"unkeyedRows"`
	DuplicateSaleIDs     int               `json:"duplicateSaleIds"`
	DuplicateTitleIDs    int               `json:"duplicateTitleIds"`
	UnknownTitles        int               `json:"unknownTitles"`
}

// Result is the output of one pure reconciliation.
type Result struct {
	Balances []TitleBalance `json:"balances"`
	Summary  Summary        `json:"summary"`
	Stats    RunStats       `json:"stats"`
}

// Report is a stored Result that can be viewed and exported.
type Report struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // "upload" or "database"
	CreatedAt time.Time `json:"createdAt"`
	Result
}
