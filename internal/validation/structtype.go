package validation

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	int64Type    = reflect.TypeOf(int64(0))
	float64Type  = reflect.TypeOf(float64(0))
	numberType   = reflect.TypeOf(json.Number(""))
	stringType   = reflect.TypeOf("")
	boolType     = reflect.TypeOf(false)
	durationType = reflect.TypeOf(time.Duration(0))
	bytesType    = reflect.TypeOf([]byte(nil))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	mapType      = reflect.TypeOf(map[string]any(nil))
)

// StructType returns a Go struct type with one exported field per schema
// field, tagged `json:"<name>" db:"<name>"`. Nullable scalars are
// pointers and nested objects are pointers to their own struct types.
// Instance.Decode fills values of this type.
func (s *Schema) StructType() reflect.Type {
	fields := make([]reflect.StructField, 0, len(s.fields))
	used := make(map[string]bool, len(s.fields))

	for _, f := range s.fields {
		name := goFieldName(f.Name)
		for n := 2; used[name]; n++ {
			name = goFieldName(f.Name) + strconv.Itoa(n)
		}
		used[name] = true

		fields = append(fields, reflect.StructField{
			Name: name,
			Type: goType(f.Type),
			Tag:  reflect.StructTag(`json:"` + f.Name + `" db:"` + f.Name + `"`),
		})
	}
	return reflect.StructOf(fields)
}

// New returns a pointer to a zero value of StructType.
func (s *Schema) New() any {
	return reflect.New(s.StructType()).Interface()
}

func goType(t Type) reflect.Type {
	var rt reflect.Type
	switch t.Kind {
	case KindInteger:
		rt = int64Type
	case KindFloat:
		rt = float64Type
	case KindDecimal:
		rt = numberType
	case KindString, KindTime:
		rt = stringType
	case KindBoolean:
		rt = boolType
	case KindDateTime, KindDate:
		rt = timeType
	case KindDuration:
		rt = durationType
	case KindBytes:
		return bytesType
	case KindUUID:
		rt = uuidType
	case KindMap:
		return mapType
	case KindList:
		return reflect.SliceOf(goType(*t.Elem))
	case KindObject:
		return reflect.PointerTo(t.Schema.StructType())
	default:
		return reflect.TypeOf((*any)(nil)).Elem()
	}

	if t.Nullable {
		return reflect.PointerTo(rt)
	}
	return rt
}

// goFieldName turns a field name into an exported Go identifier.
func goFieldName(name string) string {
	var b strings.Builder
	for _, r := range ToPascal(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" || !unicode.IsUpper([]rune(out)[0]) {
		out = "F" + out
	}
	return out
}
