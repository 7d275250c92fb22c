package database

// ColumnInfo describes a single column as reported by information_schema.
type ColumnInfo struct {
	Name       string
	DataType   string // information_schema.columns.data_type
	ColumnType string // full declared type where the engine reports one (MySQL: "tinyint(1)")
	Nullable   bool
	Default    *string // nil if no default
	MaxLength  *int    // nil for non-char types
	IsPrimary  bool
	IsUnique   bool
}

// ForeignKey describes one referencing column of a table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableInfo describes a table, its columns in ordinal order and its keys.
type TableInfo struct {
	Name        string
	Columns     []*ColumnInfo
	PrimaryKey  []string
	ForeignKeys []*ForeignKey
}

// Schema is the full introspected database schema, keyed by table name.
type Schema struct {
	Tables map[string]*TableInfo
}
