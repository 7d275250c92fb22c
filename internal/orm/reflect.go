package orm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/koustreak/rowmodel/internal/database"
)

// ReflectOptions narrows what Reflect loads.
type ReflectOptions struct {
	// Tables to reflect; empty means every table the catalog lists.
	Tables []string
	// ModelNames overrides the model name for a table. Tables not listed get
	// ModelName(table).
	ModelNames map[string]string
}

// Reflect builds a Base from a live database catalog. Column nullability,
// keys and defaults are taken from the catalog as-is.
func Reflect(ctx context.Context, src database.Introspector, opts ReflectOptions) (*Base, error) {
	tables := opts.Tables
	if len(tables) == 0 {
		var err error
		tables, err = src.ListTables(ctx)
		if err != nil {
			return nil, err
		}
	}

	base := NewBase()
	for _, name := range tables {
		info, err := src.InspectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("reflecting table %q: %w", name, err)
		}

		table, err := TableFromInfo(info)
		if err != nil {
			return nil, err
		}

		modelName := opts.ModelNames[name]
		if modelName == "" {
			modelName = ModelName(name)
		}
		if _, err := base.Define(modelName, table); err != nil {
			return nil, err
		}
	}
	return base, nil
}

// TableFromInfo converts introspected table metadata into a Table.
func TableFromInfo(info *database.TableInfo) (*Table, error) {
	fks := make(map[string]*database.ForeignKey, len(info.ForeignKeys))
	for _, fk := range info.ForeignKeys {
		fks[fk.Column] = fk
	}

	cols := make([]*Column, 0, len(info.Columns))
	for _, ci := range info.Columns {
		opts := []ColumnOption{NotNull()}
		if ci.Nullable {
			opts[0] = Nullable()
		}
		if ci.IsPrimary {
			opts = append(opts, PrimaryKey())
		}
		if ci.IsUnique {
			opts = append(opts, Unique())
		}
		if fk, ok := fks[ci.Name]; ok {
			opts = append(opts, References(fk.RefTable, fk.RefColumn))
		}
		if ci.Default != nil {
			opts = append(opts, ServerDefault(*ci.Default))
		}

		typ := TypeFromSQL(ci.DataType, ci.ColumnType, ci.MaxLength)
		cols = append(cols, NewColumn(ci.Name, typ, opts...))
	}
	return NewTable(info.Name, cols...)
}

// ModelName turns a table name into a model name: "user_accounts" becomes
// "UserAccounts".
func ModelName(table string) string {
	var b strings.Builder
	upper := true
	for _, r := range table {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
