package core

// reconcile.go holds the reconciliation pipeline:
//
//	registrations ──► AggregateDebts ───┐
//	                                    ├─► MergeBalances ─► Summarize
//	settlements+sales ► AggregateCredits┘
//
// All functions are pure. Unjoinable rows are never errors; they are
// dropped from the sums and counted so the caller can log them.

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultUnknownTitle is the display name of a title missing from the shorts table.
const DefaultUnknownTitle = "Unknown/Deleted"

// AggregateStats counts what an aggregator included and dropped.
type AggregateStats struct {
	Included      int // rows passing the flag filter
	Unkeyed       int // included rows without a usable title key
	Orphaned      int // included settlements whose sale does not exist
	DuplicateKeys int // repeated sale ids ignored by the join
}

// MergeOptions tunes MergeBalances.
type MergeOptions struct {
	UnknownTitle string
}

// MergeStats counts name resolution problems.
type MergeStats struct {
	UnknownTitles   int
	DuplicateTitles int
}

// AggregateDebts sums uncollected entry fees per title, in minor units.
// A registration is included iff its collected flag is zero.
func AggregateDebts(regs []Registration) (Sums, AggregateStats) {
	sums := make(Sums)
	var stats AggregateStats

	for _, reg := range regs {
		if !IsUnset(reg.FeeCollected) {
			continue
		}
		stats.Included++

		if !reg.TitleID.Valid {
			stats.Unkeyed++
			continue
		}
		sums.add(reg.TitleID.Int64, reg.FeeAmount)
	}

	return sums, stats
}

// AggregateCredits sums unsettled payouts per title, in minor units.
// Settlements are left-joined to sales on sale id; a settlement without a
// matching sale has no title and is dropped.
func AggregateCredits(settlements []Settlement, sales []Sale) (Sums, AggregateStats) {
	var stats AggregateStats

	saleTitle := make(map[int64]Sale, len(sales))
	for _, sale := range sales {
		if !sale.ID.Valid {
			continue
		}
		if _, dup := saleTitle[sale.ID.Int64]; dup {
			stats.DuplicateKeys++
			continue
		}
		saleTitle[sale.ID.Int64] = sale
	}

	sums := make(Sums)
	for _, st := range settlements {
		if !IsUnset(st.Settled) {
			continue
		}
		stats.Included++

		if !st.SaleID.Valid {
			stats.Orphaned++
			continue
		}
		sale, ok := saleTitle[st.SaleID.Int64]
		if !ok {
			stats.Orphaned++
			continue
		}
		if !sale.TitleID.Valid {
			stats.Unkeyed++
			continue
		}
		sums.add(sale.TitleID.Int64, st.AmountToSettle)
	}

	return sums, stats
}

// MergeBalances outer-joins credits and debts into one row per title.
//
// Missing sides count as zero, names come from titles (first match on
// duplicate ids, sentinel when absent or blank), amounts are converted to
// major units and rows are sorted by Net descending, then by id.
func MergeBalances(credits, debts Sums, titles []Title, opts MergeOptions) ([]TitleBalance, MergeStats) {
	unknown := opts.UnknownTitle
	if unknown == "" {
		unknown = DefaultUnknownTitle
	}

	var stats MergeStats
	names := make(map[int64]Title, len(titles))
	for _, t := range titles {
		if !t.ID.Valid {
			continue
		}
		if _, dup := names[t.ID.Int64]; dup {
			stats.DuplicateTitles++
			continue
		}
		names[t.ID.Int64] = t
	}

	ids := make(map[int64]struct{}, len(credits)+len(debts))
	for id := range credits {
		ids[id] = struct{}{}
	}
	for id := range debts {
		ids[id] = struct{}{}
	}

	balances := make([]TitleBalance, 0, len(ids))
	for id := range ids {
		credit := MinorToMajor(credits.get(id))
		debt := MinorToMajor(debts.get(id))

		name := unknown
		if t, ok := names[id]; ok && t.Name.Valid {
			name = t.Name.String
		} else {
			stats.UnknownTitles++
		}

		balances = append(balances, TitleBalance{
			TitleID: id,
			Name:    name,
			Credit:  credit,
			Debt:    debt,
			Net:     credit.Sub(debt),
		})
	}

	SortBalances(balances)
	return balances, stats
}

// SortBalances orders rows by Net descending; ties by title id ascending.
func SortBalances(balances []TitleBalance) {
	sort.Slice(balances, func(i, j int) bool {
		if c := balances[i].Net.Cmp(balances[j].Net); c != 0 {
			return c > 0
		}
		return balances[i].TitleID < balances[j].TitleID
	})
}

// Reconcile runs the whole pipeline over a decoded dataset.
func Reconcile(ds Dataset, opts MergeOptions) Result {
	debts, debtStats := AggregateDebts(ds.Registrations)
	credits, creditStats := AggregateCredits(ds.Settlements, ds.Sales)
	balances, mergeStats := MergeBalances(credits, debts, ds.Titles, opts)

	return Result{
		Balances: balances,
		Summary:  Summarize(balances),
		Stats: RunStats{
			Rows: map[TableKind]int{
				TableShorts:        len(ds.Titles),
				TableRegistrations: len(ds.Registrations),
				TableSales:         len(ds.Sales),
				TableSettlements:   len(ds.Settlements),
			},
			UnpaidRegistrations:  debtStats.Included,
			UnsettledSettlements: creditStats.Included,
			OrphanedSettlements:  creditStats.Orphaned,
			UnkeyedRows:          debtStats.Unkeyed + creditStats.Unkeyed,
			DuplicateSaleIDs:     creditStats.DuplicateKeys,
			DuplicateTitleIDs:    mergeStats.DuplicateTitles,
			UnknownTitles:        mergeStats.UnknownTitles,
		},
	}
}

func (s Sums) add(id int64, amount decimal.Decimal) {
	if cur, ok := s[id]; ok {
		s[id] = cur.Add(amount)
		return
	}
	s[id] = amount
}

func (s Sums) get(id int64) decimal.Decimal {
	if v, ok := s[id]; ok {
		return v
	}
	return decimal.Zero
}

// Total returns the sum over all keys.
func (s Sums) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}
