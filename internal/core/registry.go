package core

import (
	"fmt"
	"sort"
	"sync"
)

// AppendFunc decodes one data row into the dataset.
type AppendFunc func(ds *Dataset, row []string, idx HeaderIndex)

// TableDefinition contains everything needed to read one input table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
	Append     AppendFunc
}

// Columns returns the column names of the table in declaration order.
func (t TableDefinition) Columns() []string {
	cols := make([]string, len(t.FieldSpecs))
	for i, spec := range t.FieldSpecs {
		cols[i] = spec.Name
	}
	return cols
}

var (
	registry   = make(map[TableKind]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same kind is already registered.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Kind]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Kind))
	}
	if def.Append == nil {
		panic(fmt.Sprintf("table %s has no Append func", def.Info.Kind))
	}

	registry[def.Info.Kind] = def
}

// Get returns a table definition by kind.
func Get(kind TableKind) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns all registered table definitions sorted by display order.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Order < result[j].Info.Order
	})

	return result
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
