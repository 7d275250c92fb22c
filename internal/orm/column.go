package orm

// ForeignKeyRef points a column at table.column.
type ForeignKeyRef struct {
	Table  string
	Column string
}

func (f ForeignKeyRef) String() string {
	return f.Table + "." + f.Column
}

// Column is the mapping metadata for one table column.
//
// Columns are nullable unless they are part of the primary key; NotNull and
// Nullable override that regardless of option order.
type Column struct {
	Name          string
	Type          TypeEngine
	Nullable      bool
	PrimaryKey    bool
	Unique        bool
	ForeignKey    *ForeignKeyRef
	ServerDefault *string
	Comment       string
}

// ColumnOption configures a Column in NewColumn.
type ColumnOption func(*columnBuilder)

type columnBuilder struct {
	col      Column
	nullable *bool
}

// NewColumn declares a column called name of type typ.
func NewColumn(name string, typ TypeEngine, opts ...ColumnOption) *Column {
	b := &columnBuilder{col: Column{Name: name, Type: typ}}
	for _, opt := range opts {
		opt(b)
	}

	if b.nullable != nil {
		b.col.Nullable = *b.nullable
	} else {
		b.col.Nullable = !b.col.PrimaryKey
	}
	return &b.col
}

func PrimaryKey() ColumnOption {
	return func(b *columnBuilder) { b.col.PrimaryKey = true }
}

func NotNull() ColumnOption {
	return func(b *columnBuilder) {
		v := false
		b.nullable = &v
	}
}

func Nullable() ColumnOption {
	return func(b *columnBuilder) {
		v := true
		b.nullable = &v
	}
}

func Unique() ColumnOption {
	return func(b *columnBuilder) { b.col.Unique = true }
}

// References declares a foreign key to table.column.
func References(table, column string) ColumnOption {
	return func(b *columnBuilder) {
		b.col.ForeignKey = &ForeignKeyRef{Table: table, Column: column}
	}
}

// ServerDefault records the SQL default expression; it does not make the
// column optional on the mapping side.
func ServerDefault(expr string) ColumnOption {
	return func(b *columnBuilder) { b.col.ServerDefault = &expr }
}

func Comment(text string) ColumnOption {
	return func(b *columnBuilder) { b.col.Comment = text }
}
