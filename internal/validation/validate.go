package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Attributer exposes named attributes of an object. Validate reads from it
// when the schema's Config has FromAttributes set.
type Attributer interface {
	Attr(name string) (any, bool)
}

// Validate checks obj against the schema and returns the validated values.
//
// Maps with string keys and *Instance values are always accepted; structs
// and Attributer values only with FromAttributes. Each field is looked up
// by its alias first, then by its name. A failure wraps a *ValidationError
// listing every problem found.
func (s *Schema) Validate(obj any) (*Instance, error) {
	inst, problems := s.validate(obj, nil)
	if len(problems) > 0 {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "validating "+s.name,
			&ValidationError{Model: s.name, Errors: problems})
	}
	return inst, nil
}

// ValidateJSON decodes a JSON document and validates it. Numbers are kept
// exact until a field's type decides how to read them.
func (s *Schema) ValidateJSON(data []byte) (*Instance, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decoding "+s.name+" JSON", err)
	}
	return s.Validate(v)
}

func (s *Schema) validate(obj any, loc []any) (*Instance, []FieldError) {
	src, ok := s.sourceOf(obj)
	if !ok {
		return nil, fieldErr(loc, "model_type",
			fmt.Sprintf("Input should be a valid dictionary or instance of %s", s.name))
	}

	values := make([]any, len(s.fields))
	var problems []FieldError
	for i, f := range s.fields {
		key := s.keys[i]
		v, found := src.lookup(key)
		if !found && key != f.Name {
			v, found = src.lookup(f.Name)
		}

		if !found {
			if f.Required {
				problems = append(problems, fieldErr(at(loc, key), "missing", "Field required")...)
				continue
			}
			values[i] = cloneValue(f.Default)
			continue
		}

		out, fe := coerce(f.Type, v, at(loc, key))
		if len(fe) > 0 {
			problems = append(problems, fe...)
			continue
		}
		values[i] = out
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return &Instance{schema: s, values: values}, nil
}

type source interface {
	lookup(key string) (any, bool)
}

func (s *Schema) sourceOf(obj any) (source, bool) {
	switch o := obj.(type) {
	case nil:
		return nil, false
	case *Instance:
		if o == nil {
			return nil, false
		}
		return instanceSource{o}, true
	case map[string]any:
		return mapSource(o), true
	case Attributer:
		if !s.config.FromAttributes {
			return nil, false
		}
		return attrSource{o}, true
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		return reflectMapSource{rv}, true
	case reflect.Struct:
		if !s.config.FromAttributes {
			return nil, false
		}
		return newStructSource(rv), true
	}
	return nil, false
}

type mapSource map[string]any

func (m mapSource) lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

type reflectMapSource struct {
	v reflect.Value
}

func (m reflectMapSource) lookup(key string) (any, bool) {
	k := reflect.ValueOf(key).Convert(m.v.Type().Key())
	v := m.v.MapIndex(k)
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

type attrSource struct {
	a Attributer
}

func (a attrSource) lookup(key string) (any, bool) {
	return a.a.Attr(key)
}

type instanceSource struct {
	inst *Instance
}

func (i instanceSource) lookup(key string) (any, bool) {
	if v, ok := i.inst.Get(key); ok {
		return v, true
	}
	for idx, k := range i.inst.schema.keys {
		if k == key {
			return i.inst.values[idx], true
		}
	}
	return nil, false
}

// structSource reads exported struct fields, promoted ones included. A key
// matches a `db` or `json` tag, then the Go field name, then the Go field
// name compared case-insensitively with underscores dropped.
type structSource struct {
	v      reflect.Value
	exact  map[string][]int
	folded map[string][]int
}

func newStructSource(v reflect.Value) structSource {
	s := structSource{v: v, exact: make(map[string][]int), folded: make(map[string][]int)}

	for _, sf := range reflect.VisibleFields(v.Type()) {
		if !sf.IsExported() || (sf.Anonymous && indirectType(sf.Type).Kind() == reflect.Struct) {
			continue
		}
		for _, tag := range []string{"db", "json"} {
			name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				if _, taken := s.exact[name]; !taken {
					s.exact[name] = sf.Index
				}
			}
		}
		if _, taken := s.exact[sf.Name]; !taken {
			s.exact[sf.Name] = sf.Index
		}
		if _, taken := s.folded[fold(sf.Name)]; !taken {
			s.folded[fold(sf.Name)] = sf.Index
		}
	}
	return s
}

func (s structSource) lookup(key string) (any, bool) {
	index, ok := s.exact[key]
	if !ok {
		index, ok = s.folded[fold(key)]
	}
	if !ok {
		return nil, false
	}

	fv, err := s.v.FieldByIndexErr(index)
	if err != nil {
		// Promoted through a nil embedded pointer.
		return nil, true
	}
	return fv.Interface(), true
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func fold(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// cloneValue copies list and map defaults so instances never share them.
func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), x...)
	default:
		return v
	}
}
