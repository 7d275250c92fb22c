package validation

// Kind is the semantic category a field's values are validated against.
type Kind int

const (
	KindInvalid Kind = iota
	KindInteger
	KindFloat
	KindDecimal
	KindString
	KindBoolean
	KindDateTime
	KindDate
	KindTime
	KindDuration
	KindBytes
	KindUUID
	KindMap
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "Decimal"
	case KindString:
		return "str"
	case KindBoolean:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDuration:
		return "timedelta"
	case KindBytes:
		return "bytes"
	case KindUUID:
		return "UUID"
	case KindMap:
		return "dict"
	case KindObject:
		return "object"
	case KindList:
		return "List"
	default:
		return "invalid"
	}
}

// Type is a field's value type. Nullable types also accept null.
type Type struct {
	Kind     Kind
	Nullable bool
	// Elem is the item type of a KindList.
	Elem *Type
	// Schema is the nested schema of a KindObject.
	Schema *Schema
}

// Of returns the non-nullable scalar type of kind k.
func Of(k Kind) Type {
	return Type{Kind: k}
}

// Optional returns t made nullable.
func Optional(t Type) Type {
	t.Nullable = true
	return t
}

// ListOf returns a list type with items of type elem.
func ListOf(elem Type) Type {
	return Type{Kind: KindList, Elem: &elem}
}

// ObjectOf returns a nested object type validated by s.
func ObjectOf(s *Schema) Type {
	return Type{Kind: KindObject, Schema: s}
}

// String renders t in annotation form, e.g. "Optional[List[Address]]".
func (t Type) String() string {
	var s string
	switch t.Kind {
	case KindList:
		elem := "Any"
		if t.Elem != nil {
			elem = t.Elem.String()
		}
		s = "List[" + elem + "]"
	case KindObject:
		s = "object"
		if t.Schema != nil {
			s = t.Schema.Name()
		}
	default:
		s = t.Kind.String()
	}
	if t.Nullable {
		return "Optional[" + s + "]"
	}
	return s
}
