package database

import (
	"context"
	"fmt"
)

// Introspector reads the structure of a database (tables, columns, keys).
// Each driver implements the engine-specific queries; InspectSchema is shared.
type Introspector interface {
	// ListTables returns all user-defined table names, sorted by name.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists reports whether a table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// InspectTable returns columns (ordinal order), primary and foreign keys.
	InspectTable(ctx context.Context, table string) (*TableInfo, error)
}

// InspectSchema builds the full Schema by orchestrating the Introspector.
// Shared across all DB drivers — no duplication in drivers.
func InspectSchema(ctx context.Context, i Introspector) (*Schema, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	schema := &Schema{Tables: make(map[string]*TableInfo, len(tables))}
	for _, table := range tables {
		info, err := i.InspectTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("inspecting table %q: %w", table, err)
		}
		schema.Tables[table] = info
	}
	return schema, nil
}

// MarkKeys sets IsPrimary / IsUnique on columns from the given key lists.
func MarkKeys(cols []*ColumnInfo, primary, unique []string) {
	pkSet := toSet(primary)
	uqSet := toSet(unique)
	for _, col := range cols {
		col.IsPrimary = pkSet[col.Name]
		col.IsUnique = uqSet[col.Name]
	}
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
