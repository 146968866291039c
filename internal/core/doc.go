// Package core reconciles festival settlements against entry-fee debts.
//
// The package holds all domain logic independent of the web UI and the
// CLI. Both front ends go through [Service].
//
// # Pipeline
//
// Four tables are read (uploaded CSV/XLSX files or the festival database),
// validated against the table registry and decoded into a [Dataset]:
//
//   - shorts:        id, titulo
//   - registrations: corto_id, fee_amount, fee_cobrado
//   - sales:         id, corto_id
//   - settlements:   venta_id, importe_liquidar, liquidado
//
// [AggregateDebts] sums uncollected fees per title and [AggregateCredits]
// sums unsettled payouts per title via the sales bridge. [MergeBalances]
// outer-joins both into one [TitleBalance] per title, converted from cents
// to currency units, and [Summarize] derives the headline figures.
//
// # Coercion
//
// Cells are never rejected. Anything that does not parse as a number is
// zero, so an unparseable flag means "not collected" / "not settled".
// Rows whose title id does not parse are dropped and counted in [RunStats].
//
// # Reports
//
// Results are kept in a [ReportStore] for a configurable TTL and exported
// with [ExportCSV] or [ExportXLSX].
package core
