// Package orm is rowmodel's table-mapping layer: tables, columns and their
// type engines, and the declarative Base that binds model names to tables.
//
// Tables come from Go declarations, YAML documents (LoadYAML) or a live
// database catalog (Reflect).
//
//	base := orm.NewBase()
//	user := base.MustDefine("User", orm.MustTable("users",
//	    orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
//	    orm.NewColumn("name", orm.String{}),
//	))
package orm

import (
	"sync"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Model is a mapped class: a name bound to a table registered in MetaData.
type Model interface {
	ModelName() string
	TableName() string
	Metadata() *MetaData
}

// Mapper is the Model produced by Base.Define.
type Mapper struct {
	name  string
	table string
	meta  *MetaData
}

func (m *Mapper) ModelName() string   { return m.name }
func (m *Mapper) TableName() string   { return m.table }
func (m *Mapper) Metadata() *MetaData { return m.meta }

// Base collects models that share one MetaData.
type Base struct {
	meta *MetaData

	mu     sync.RWMutex
	models []*Mapper
	byName map[string]*Mapper
}

func NewBase() *Base {
	return &Base{meta: NewMetaData(), byName: make(map[string]*Mapper)}
}

func (b *Base) Metadata() *MetaData { return b.meta }

// Define registers table and maps it under name.
func (b *Base) Define(name string, table *Table) (*Mapper, error) {
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "model name is empty")
	}
	if table == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "model %s has no table", name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.byName[name]; dup {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "model %s is already defined", name)
	}
	if err := b.meta.Add(table); err != nil {
		return nil, err
	}

	m := &Mapper{name: name, table: table.Name(), meta: b.meta}
	b.models = append(b.models, m)
	b.byName[name] = m
	return m, nil
}

// MustDefine is Define for static declarations; it panics on error.
func (b *Base) MustDefine(name string, table *Table) *Mapper {
	m, err := b.Define(name, table)
	if err != nil {
		panic(err)
	}
	return m
}

func (b *Base) Model(name string) (*Mapper, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.byName[name]
	return m, ok
}

// Models returns the models in definition order.
func (b *Base) Models() []*Mapper {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Mapper, len(b.models))
	copy(out, b.models)
	return out
}

// Merge defines every model of other in b, in other's definition order.
// A model or table name already present in b fails the merge; models
// defined before the failure stay in b.
func (b *Base) Merge(other *Base) error {
	for _, m := range other.Models() {
		table, err := other.Metadata().Table(m.TableName())
		if err != nil {
			return err
		}
		if _, err := b.Define(m.ModelName(), table); err != nil {
			return err
		}
	}
	return nil
}
