// Package derive builds validation schemas from table mappings: one field
// per column, in column order, required unless the column is nullable.
//
//	schema, err := derive.Schema(user, derive.Exclude("password_hash"))
//
// The package performs no I/O and keeps no state; it is safe for
// concurrent use.
package derive

import (
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/validation"
)

type options struct {
	config  validation.Config
	exclude map[string]struct{}
}

// Option adjusts a single derivation.
type Option func(*options)

// WithConfig sets the config carried by the derived schema. The default is
// validation.ORMConfig.
func WithConfig(cfg validation.Config) Option {
	return func(o *options) { o.config = cfg }
}

// Exclude leaves the named columns out of the schema. Names that match no
// column are ignored. Repeated Exclude options accumulate.
func Exclude(names ...string) Option {
	return func(o *options) {
		for _, name := range names {
			o.exclude[name] = struct{}{}
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		config:  validation.ORMConfig,
		exclude: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// nativeKinds maps each native type to the validation kind of its values.
var nativeKinds = map[orm.NativeType]validation.Kind{
	orm.NativeInt:       validation.KindInteger,
	orm.NativeFloat:     validation.KindFloat,
	orm.NativeDecimal:   validation.KindDecimal,
	orm.NativeString:    validation.KindString,
	orm.NativeBool:      validation.KindBoolean,
	orm.NativeDateTime:  validation.KindDateTime,
	orm.NativeDate:      validation.KindDate,
	orm.NativeTime:      validation.KindTime,
	orm.NativeTimeDelta: validation.KindDuration,
	orm.NativeBytes:     validation.KindBytes,
	orm.NativeUUID:      validation.KindUUID,
	orm.NativeDict:      validation.KindMap,
}

// Schema derives the validation schema of model. The schema is named after
// the model and carries the configured validation.Config unchanged.
//
// A column whose type has no native value type fails the whole derivation
// with a *TypeResolutionError; no partial schema is returned. Errors from
// looking up the model's table are returned as they are.
func Schema(model orm.Model, opts ...Option) (*validation.Schema, error) {
	o := newOptions(opts)

	specs, err := fields(model, o)
	if err != nil {
		return nil, err
	}
	return validation.Construct(model.ModelName(), o.config, specs...)
}

// Fields returns the field specifications Schema would build, without
// constructing the schema.
func Fields(model orm.Model, opts ...Option) ([]validation.Field, error) {
	return fields(model, newOptions(opts))
}

func fields(model orm.Model, o *options) ([]validation.Field, error) {
	table, err := model.Metadata().Table(model.TableName())
	if err != nil {
		return nil, err
	}

	columns := table.Columns()
	out := make([]validation.Field, 0, len(columns))
	for _, col := range columns {
		if _, skip := o.exclude[col.Name]; skip {
			continue
		}

		kind, ok := resolve(col.Type)
		if !ok {
			return nil, newTypeResolutionError(model, table.Name(), col)
		}

		typ := validation.Of(kind)
		if col.Nullable {
			out = append(out, validation.Field{Name: col.Name, Type: validation.Optional(typ), Default: nil})
		} else {
			out = append(out, validation.Field{Name: col.Name, Type: typ, Required: true})
		}
	}
	return out, nil
}

// resolve finds the validation kind of a column type. A decorator is
// unwrapped exactly one level and only its wrapped engine is consulted.
func resolve(typ orm.TypeEngine) (validation.Kind, bool) {
	if dec, ok := typ.(orm.Decorator); ok {
		typ = dec.Impl()
	}
	return nativeKind(typ)
}

func nativeKind(typ orm.TypeEngine) (validation.Kind, bool) {
	nt, ok := typ.(orm.NativeTyper)
	if !ok {
		return validation.KindInvalid, false
	}
	native, ok := nt.NativeType()
	if !ok {
		return validation.KindInvalid, false
	}
	kind, ok := nativeKinds[native]
	return kind, ok
}
