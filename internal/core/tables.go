package core

// tables.go registers the four festival exports the reconciliation reads.
// Column names are the ones used by the festival database.

func init() {
	Register(TableDefinition{
		Info: TableInfo{
			Kind:        TableShorts,
			Label:       "Cortos",
			Description: "Short films: id, titulo",
			Order:       0,
		},
		FieldSpecs: []FieldSpec{
			{Name: "id", Type: FieldKey, Required: true},
			{Name: "titulo", Type: FieldText, Required: true},
		},
		Append: func(ds *Dataset, row []string, idx HeaderIndex) {
			ds.Titles = append(ds.Titles, Title{
				ID:   CoerceKey(getCell(row, idx, "id")),
				Name: ToPgText(getCell(row, idx, "titulo")),
			})
		},
	})

	Register(TableDefinition{
		Info: TableInfo{
			Kind:        TableRegistrations,
			Label:       "Inscripciones",
			Description: "Entry fees: corto_id, fee_amount, fee_cobrado",
			Order:       1,
		},
		FieldSpecs: []FieldSpec{
			{Name: "corto_id", Type: FieldKey, Required: true},
			{Name: "fee_amount", Type: FieldAmount, Required: true},
			{Name: "fee_cobrado", Type: FieldFlag, Required: true},
		},
		Append: func(ds *Dataset, row []string, idx HeaderIndex) {
			ds.Registrations = append(ds.Registrations, Registration{
				TitleID:      CoerceKey(getCell(row, idx, "corto_id")),
				FeeAmount:    CoerceAmount(getCell(row, idx, "fee_amount")),
				FeeCollected: CoerceAmount(getCell(row, idx, "fee_cobrado")),
			})
		},
	})

	Register(TableDefinition{
		Info: TableInfo{
			Kind:        TableSales,
			Label:       "Ventas",
			Description: "Sales: id, corto_id",
			Order:       2,
		},
		FieldSpecs: []FieldSpec{
			{Name: "id", Type: FieldKey, Required: true},
			{Name: "corto_id", Type: FieldKey, Required: true},
		},
		Append: func(ds *Dataset, row []string, idx HeaderIndex) {
			ds.Sales = append(ds.Sales, Sale{
				ID:      CoerceKey(getCell(row, idx, "id")),
				TitleID: CoerceKey(getCell(row, idx, "corto_id")),
			})
		},
	})

	Register(TableDefinition{
		Info: TableInfo{
			Kind:        TableSettlements,
			Label:       "Liquidaciones",
			Description: "Settlements: venta_id, importe_liquidar, liquidado",
			Order:       3,
		},
		FieldSpecs: []FieldSpec{
			{Name: "venta_id", Type: FieldKey, Required: true},
			{Name: "importe_liquidar", Type: FieldAmount, Required: true},
			{Name: "liquidado", Type: FieldFlag, Required: true},
		},
		Append: func(ds *Dataset, row []string, idx HeaderIndex) {
			ds.Settlements = append(ds.Settlements, Settlement{
				SaleID:         CoerceKey(getCell(row, idx, "venta_id")),
				AmountToSettle: CoerceAmount(getCell(row, idx, "importe_liquidar")),
				Settled:        CoerceAmount(getCell(row, idx, "liquidado")),
			})
		},
	})
}

// getCell returns the cell under column name, or "" if the row is short
// or the column is absent.
func getCell(row []string, idx HeaderIndex, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}
