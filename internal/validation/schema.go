// Package validation holds data-validation models built at runtime: an
// ordered list of typed fields under a name, able to validate input into
// an Instance, dump it back out and describe itself as JSON Schema.
//
// Schemas are immutable once constructed and safe for concurrent use.
package validation

import (
	"github.com/koustreak/rowmodel/internal/errs"
)

// Field describes one schema field. A field that is not Required takes
// Default when its key is absent from the input.
type Field struct {
	Name     string
	Type     Type
	Required bool
	Default  any
}

// Schema is a named, ordered set of fields with a Config.
type Schema struct {
	name   string
	config Config
	fields []Field
	keys   []string
	index  map[string]int
}

// Construct builds a schema called name. Field names must be unique and
// non-empty, and so must their aliases.
func Construct(name string, cfg Config, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "schema name is empty")
	}

	s := &Schema{
		name:   name,
		config: cfg,
		fields: make([]Field, 0, len(fields)),
		keys:   make([]string, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	seenKeys := make(map[string]string, len(fields))

	for _, f := range fields {
		if f.Name == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "schema %s: field without a name", name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "schema %s: duplicate field %s", name, f.Name)
		}
		if err := checkType(f.Type); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "schema "+name+": field "+f.Name, err)
		}

		key := f.Name
		if cfg.AliasGenerator != nil {
			key = cfg.AliasGenerator(f.Name)
		}
		if other, dup := seenKeys[key]; dup {
			return nil, errs.Newf(errs.ErrKindInvalidInput,
				"schema %s: fields %s and %s share the key %q", name, other, f.Name, key)
		}
		seenKeys[key] = f.Name

		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
		s.keys = append(s.keys, key)
	}
	return s, nil
}

func checkType(t Type) error {
	switch t.Kind {
	case KindInvalid:
		return errs.New(errs.ErrKindInvalidInput, "type has no kind")
	case KindList:
		if t.Elem == nil {
			return errs.New(errs.ErrKindInvalidInput, "list type has no item type")
		}
		return checkType(*t.Elem)
	case KindObject:
		if t.Schema == nil {
			return errs.New(errs.ErrKindInvalidInput, "object type has no schema")
		}
	}
	return nil
}

func (s *Schema) Name() string { return s.name }

func (s *Schema) Config() Config { return s.config }

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Alias returns the external key of the named field, or "" if the schema
// has no such field.
func (s *Schema) Alias(name string) string {
	i, ok := s.index[name]
	if !ok {
		return ""
	}
	return s.keys[i]
}

// Extend returns a new schema called name with s's fields followed by
// fields. A field named like an existing one replaces it in place. The
// config is inherited.
func (s *Schema) Extend(name string, fields ...Field) (*Schema, error) {
	merged := s.Fields()
	for _, f := range fields {
		if i, ok := s.index[f.Name]; ok {
			merged[i] = f
			continue
		}
		merged = append(merged, f)
	}
	return Construct(name, s.config, merged...)
}
