package orm

import (
	"errors"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/rowmodel/internal/errs"
)

// yamlDocument is the on-disk layout read by LoadYAML:
//
//	models:
//	  - name: User
//	    table: users
//	    columns:
//	      - {name: id, type: integer, primary_key: true}
//	      - {name: email_address, type: string, length: 255, nullable: false}
//	      - {name: created, type: datetime, decorator: UtcDateTime}
type yamlDocument struct {
	Models []yamlModel `yaml:"models"`
}

type yamlModel struct {
	Name    string       `yaml:"name"`
	Table   string       `yaml:"table"`
	Columns []yamlColumn `yaml:"columns"`
}

type yamlColumn struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Length     *int     `yaml:"length"`
	Precision  int      `yaml:"precision"`
	Scale      int      `yaml:"scale"`
	Timezone   bool     `yaml:"timezone"`
	Values     []string `yaml:"values"`
	Nullable   *bool    `yaml:"nullable"`
	PrimaryKey bool     `yaml:"primary_key"`
	Unique     bool     `yaml:"unique"`
	References string   `yaml:"references"`
	Default    *string  `yaml:"default"`
	Comment    string   `yaml:"comment"`
	Decorator  string   `yaml:"decorator"`
}

// LoadYAML reads model declarations. A model without a table maps to the
// lower-cased model name.
func LoadYAML(r io.Reader) (*Base, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decoding model declarations", err)
	}

	base := NewBase()
	for _, m := range doc.Models {
		tableName := m.Table
		if tableName == "" {
			tableName = strings.ToLower(m.Name)
		}

		cols := make([]*Column, 0, len(m.Columns))
		for _, yc := range m.Columns {
			col, err := yc.column()
			if err != nil {
				return nil, errs.Wrap(errs.ErrKindInvalidInput, "model "+m.Name, err)
			}
			cols = append(cols, col)
		}

		table, err := NewTable(tableName, cols...)
		if err != nil {
			return nil, err
		}
		if _, err := base.Define(m.Name, table); err != nil {
			return nil, err
		}
	}
	return base, nil
}

func (yc yamlColumn) column() (*Column, error) {
	if yc.Name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "column without a name")
	}
	if yc.Type == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "column %s has no type", yc.Name)
	}

	var opts []ColumnOption
	if yc.Nullable != nil {
		if *yc.Nullable {
			opts = append(opts, Nullable())
		} else {
			opts = append(opts, NotNull())
		}
	}
	if yc.PrimaryKey {
		opts = append(opts, PrimaryKey())
	}
	if yc.Unique {
		opts = append(opts, Unique())
	}
	if yc.References != "" {
		table, column, ok := strings.Cut(yc.References, ".")
		if !ok || table == "" || column == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput,
				"column %s: references must be table.column, got %q", yc.Name, yc.References)
		}
		opts = append(opts, References(table, column))
	}
	if yc.Default != nil {
		opts = append(opts, ServerDefault(*yc.Default))
	}
	if yc.Comment != "" {
		opts = append(opts, Comment(yc.Comment))
	}

	return NewColumn(yc.Name, yc.engine(), opts...), nil
}

func (yc yamlColumn) engine() TypeEngine {
	if strings.EqualFold(yc.Type, "utcdatetime") {
		return UtcDateTime()
	}

	typ := TypeFromSQL(yc.Type, "", yc.Length)
	switch t := typ.(type) {
	case Numeric:
		t.Precision, t.Scale = yc.Precision, yc.Scale
		typ = t
	case DateTime:
		t.Timezone = t.Timezone || yc.Timezone
		typ = t
	case Time:
		t.Timezone = t.Timezone || yc.Timezone
		typ = t
	case Enum:
		t.Values = yc.Values
		typ = t
	}

	if yc.Decorator != "" {
		return NewTypeDecorator(yc.Decorator, typ)
	}
	return typ
}
