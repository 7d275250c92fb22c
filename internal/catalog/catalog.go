// Package catalog derives the schema of every model in an orm.Base and
// serves them by name. Models are ordered so that a model comes after the
// models its foreign keys reference.
package catalog

import (
	"sort"

	"github.com/yourbasic/graph"

	"github.com/koustreak/rowmodel/internal/derive"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/validation"
)

// Entry pairs a model with its derived schema.
type Entry struct {
	Model  orm.Model
	Schema *validation.Schema
}

// Catalog is read-only after Build and safe for concurrent use.
type Catalog struct {
	entries map[string]Entry
	order   []string
	acyclic bool
}

// Build derives every model of base with cfg. excludes lists, per model
// name, the columns to leave out. The first derivation error aborts the
// build.
func Build(base *orm.Base, cfg validation.Config, excludes map[string][]string) (*Catalog, error) {
	models := base.Models()
	c := &Catalog{entries: make(map[string]Entry, len(models))}

	for _, m := range models {
		schema, err := derive.Schema(m, derive.WithConfig(cfg), derive.Exclude(excludes[m.ModelName()]...))
		if err != nil {
			return nil, err
		}
		c.entries[m.ModelName()] = Entry{Model: m, Schema: schema}
	}

	c.order, c.acyclic = dependencyOrder(base.Metadata(), models)
	return c, nil
}

// dependencyOrder sorts models so referenced tables come first. When the
// references form a cycle the models are returned sorted by name and ok
// is false.
func dependencyOrder(meta *orm.MetaData, models []*orm.Mapper) (order []string, ok bool) {
	byTable := make(map[string]int, len(models))
	for i, m := range models {
		byTable[m.TableName()] = i
	}

	g := graph.New(len(models))
	for i, m := range models {
		table, err := meta.Table(m.TableName())
		if err != nil {
			continue
		}
		for _, ref := range table.ReferencedTables() {
			j, known := byTable[ref]
			if !known || j == i {
				continue
			}
			g.Add(j, i)
		}
	}

	sorted, ok := graph.TopSort(g)
	if !ok {
		names := make([]string, len(models))
		for i, m := range models {
			names[i] = m.ModelName()
		}
		sort.Strings(names)
		return names, false
	}

	order = make([]string, len(sorted))
	for i, v := range sorted {
		order[i] = models[v].ModelName()
	}
	return order, true
}

// Get returns the schema derived for the named model.
func (c *Catalog) Get(name string) (*validation.Schema, error) {
	e, err := c.Entry(name)
	if err != nil {
		return nil, err
	}
	return e.Schema, nil
}

// Entry returns the model and schema registered under name.
func (c *Catalog) Entry(name string) (Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, errs.Newf(errs.ErrKindNotFound, "model %s is not in the catalog", name)
	}
	return e, nil
}

// Names lists the model names in dependency order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Acyclic reports whether the foreign keys between models form no cycle.
// Names falls back to name order when they do.
func (c *Catalog) Acyclic() bool { return c.acyclic }

func (c *Catalog) Len() int { return len(c.entries) }

// Each calls fn for every entry in dependency order, stopping at the first
// error.
func (c *Catalog) Each(fn func(Entry) error) error {
	for _, name := range c.order {
		if err := fn(c.entries[name]); err != nil {
			return err
		}
	}
	return nil
}
