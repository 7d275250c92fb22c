package validation

import (
	"bytes"
	"encoding"
	"encoding/json"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Instance holds the values of one successful Validate call.
//
// Values are int64, float64, json.Number (decimals), string, bool,
// time.Time (datetimes and dates), time.Duration, []byte, uuid.UUID,
// map[string]any, *Instance (objects) and []any (lists). Times of day are
// stored as their canonical text.
type Instance struct {
	schema *Schema
	values []any
}

func (i *Instance) Schema() *Schema { return i.schema }

// Get returns the value of the named field.
func (i *Instance) Get(name string) (any, bool) {
	idx, ok := i.schema.index[name]
	if !ok {
		return nil, false
	}
	return i.values[idx], true
}

type dumpOptions struct {
	byAlias     bool
	excludeNone bool
}

// DumpOption adjusts Dump and DumpJSON.
type DumpOption func(*dumpOptions)

// ByAlias keys the output by field aliases instead of field names.
func ByAlias() DumpOption {
	return func(o *dumpOptions) { o.byAlias = true }
}

// ExcludeNone leaves out fields whose value is null.
func ExcludeNone() DumpOption {
	return func(o *dumpOptions) { o.excludeNone = true }
}

func newDumpOptions(opts []DumpOption) dumpOptions {
	var o dumpOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (i *Instance) key(idx int, o dumpOptions) string {
	if o.byAlias {
		return i.schema.keys[idx]
	}
	return i.schema.fields[idx].Name
}

// Dump returns the values as a map, nested objects included.
func (i *Instance) Dump(opts ...DumpOption) map[string]any {
	return i.dump(newDumpOptions(opts))
}

func (i *Instance) dump(o dumpOptions) map[string]any {
	out := make(map[string]any, len(i.values))
	for idx, v := range i.values {
		if v == nil && o.excludeNone {
			continue
		}
		out[i.key(idx, o)] = dumpValue(v, o)
	}
	return out
}

func dumpValue(v any, o dumpOptions) any {
	switch x := v.(type) {
	case *Instance:
		return x.dump(o)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = dumpValue(e, o)
		}
		return out
	default:
		return cloneValue(v)
	}
}

// DumpJSON encodes the instance as a JSON object with keys in field order.
// Dates are "YYYY-MM-DD", durations ISO 8601, decimals strings and bytes
// UTF-8 text.
func (i *Instance) DumpJSON(opts ...DumpOption) ([]byte, error) {
	data, err := json.Marshal(i.jsonObject(newDumpOptions(opts)))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encoding "+i.schema.name, err)
	}
	return data, nil
}

// MarshalJSON implements json.Marshaler using field names as keys.
func (i *Instance) MarshalJSON() ([]byte, error) {
	return i.DumpJSON()
}

func (i *Instance) jsonObject(o dumpOptions) orderedObject {
	obj := make(orderedObject, 0, len(i.values))
	for idx, v := range i.values {
		if v == nil && o.excludeNone {
			continue
		}
		obj = append(obj, member{
			Key:   i.key(idx, o),
			Value: jsonValue(i.schema.fields[idx].Type, v, o),
		})
	}
	return obj
}

func jsonValue(t Type, v any, o dumpOptions) any {
	if v == nil {
		return nil
	}
	switch x := v.(type) {
	case *Instance:
		return x.jsonObject(o)
	case []any:
		elem := Type{Kind: KindInvalid}
		if t.Elem != nil {
			elem = *t.Elem
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(elem, e, o)
		}
		return out
	case time.Time:
		if t.Kind == KindDate {
			return x.Format(time.DateOnly)
		}
		return x
	case time.Duration:
		return formatISODuration(x)
	case json.Number:
		return string(x)
	case []byte:
		return string(x)
	}
	return v
}

// member is one key of an orderedObject.
type member struct {
	Key   string
	Value any
}

// orderedObject is a JSON object that keeps its keys in insertion order.
type orderedObject []member

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode copies the instance into dst, a pointer to a struct or map.
// Struct fields are matched by their `json` tag, or by name ignoring case.
// Pass ByAlias when dst is tagged with aliases.
func (i *Instance) Decode(dst any, opts ...DumpOption) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     dst,
		DecodeHook: textHook,
	})
	if err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "decoding "+i.schema.name, err)
	}
	if err := dec.Decode(i.Dump(opts...)); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "decoding "+i.schema.name, err)
	}
	return nil
}

// textHook writes values such as uuid.UUID and time.Time into string
// fields through their text form.
func textHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() == reflect.String {
		return data, nil
	}
	if tm, ok := data.(encoding.TextMarshaler); ok {
		text, err := tm.MarshalText()
		if err != nil {
			return nil, err
		}
		return string(text), nil
	}
	return data, nil
}
