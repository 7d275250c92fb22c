package orm

import (
	"sync"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Table is an ordered set of columns under a name. It is not modified after
// NewTable returns.
type Table struct {
	name    string
	columns []*Column
	index   map[string]int
}

// NewTable builds a table from columns in declaration order.
func NewTable(name string, cols ...*Column) (*Table, error) {
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "table name is empty")
	}

	t := &Table{name: name, index: make(map[string]int, len(cols))}
	for _, col := range cols {
		if col == nil || col.Name == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "table %s: column without a name", name)
		}
		if col.Type == nil {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "table %s: column %s has no type", name, col.Name)
		}
		if _, dup := t.index[col.Name]; dup {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "table %s: duplicate column %s", name, col.Name)
		}
		t.index[col.Name] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	return t, nil
}

// MustTable is NewTable for static declarations; it panics on error.
func MustTable(name string, cols ...*Column) *Table {
	t, err := NewTable(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Name() string { return t.name }

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

func (t *Table) PrimaryKey() []string {
	var pk []string
	for _, col := range t.columns {
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	return pk
}

// ReferencedTables lists the distinct tables this table's foreign keys
// point to, in column order. Self references are included.
func (t *Table) ReferencedTables() []string {
	seen := make(map[string]bool)
	var refs []string
	for _, col := range t.columns {
		if col.ForeignKey == nil || seen[col.ForeignKey.Table] {
			continue
		}
		seen[col.ForeignKey.Table] = true
		refs = append(refs, col.ForeignKey.Table)
	}
	return refs
}

// MetaData is a registry of tables by name.
type MetaData struct {
	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
}

func NewMetaData() *MetaData {
	return &MetaData{tables: make(map[string]*Table)}
}

// Add registers t. Registering two tables with the same name fails.
func (m *MetaData) Add(t *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.tables[t.Name()]; dup {
		return errs.Newf(errs.ErrKindInvalidInput, "table %s is already defined", t.Name())
	}
	m.tables[t.Name()] = t
	m.order = append(m.order, t.Name())
	return nil
}

// Table looks up a registered table by name.
func (m *MetaData) Table(name string) (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[name]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %s is not defined", name)
	}
	return t, nil
}

// Tables returns the registered tables in registration order.
func (m *MetaData) Tables() []*Table {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Table, len(m.order))
	for i, name := range m.order {
		out[i] = m.tables[name]
	}
	return out
}
