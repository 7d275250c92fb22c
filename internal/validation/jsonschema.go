package validation

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/koustreak/rowmodel/internal/errs"
)

// JSONSchema describes the schema as a JSON Schema document. Properties
// are keyed by alias and listed in field order; nullable fields become
// anyOf [T, null] and non-required fields carry their default. Nested
// object schemas are emitted once under "$defs".
func (s *Schema) JSONSchema() ([]byte, error) {
	defs := make(map[string]any)
	root := s.jsonSchemaObject(defs)
	if len(defs) > 0 {
		root["$defs"] = defs
	}

	data, err := json.Marshal(root)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encoding JSON schema for "+s.name, err)
	}
	return data, nil
}

func (s *Schema) jsonSchemaObject(defs map[string]any) map[string]any {
	props := make(orderedObject, 0, len(s.fields))
	var required []string

	for i, f := range s.fields {
		key := s.keys[i]
		prop := typeSchema(f.Type, defs)
		prop["title"] = Title(key)
		if f.Required {
			required = append(required, key)
		} else {
			prop["default"] = jsonValue(f.Type, f.Default, dumpOptions{})
		}
		props = append(props, member{Key: key, Value: prop})
	}

	obj := map[string]any{
		"properties": props,
		"title":      s.name,
		"type":       "object",
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	return obj
}

func typeSchema(t Type, defs map[string]any) map[string]any {
	base := kindSchema(t, defs)
	if !t.Nullable {
		return base
	}

	var anyOf []any
	if inner, ok := base["anyOf"].([]any); ok && len(base) == 1 {
		anyOf = append(anyOf, inner...)
	} else {
		anyOf = append(anyOf, base)
	}
	anyOf = append(anyOf, map[string]any{"type": "null"})
	return map[string]any{"anyOf": anyOf}
}

func kindSchema(t Type, defs map[string]any) map[string]any {
	switch t.Kind {
	case KindInteger:
		return map[string]any{"type": "integer"}
	case KindFloat:
		return map[string]any{"type": "number"}
	case KindDecimal:
		return map[string]any{"anyOf": []any{
			map[string]any{"type": "number"},
			map[string]any{"type": "string"},
		}}
	case KindString:
		return map[string]any{"type": "string"}
	case KindBoolean:
		return map[string]any{"type": "boolean"}
	case KindDateTime:
		return stringFormat("date-time")
	case KindDate:
		return stringFormat("date")
	case KindTime:
		return stringFormat("time")
	case KindDuration:
		return stringFormat("duration")
	case KindBytes:
		return stringFormat("binary")
	case KindUUID:
		return stringFormat("uuid")
	case KindMap:
		return map[string]any{"additionalProperties": true, "type": "object"}
	case KindList:
		return map[string]any{"items": typeSchema(*t.Elem, defs), "type": "array"}
	case KindObject:
		name := t.Schema.Name()
		if _, done := defs[name]; !done {
			defs[name] = nil
			defs[name] = t.Schema.jsonSchemaObject(defs)
		}
		return map[string]any{"$ref": "#/$defs/" + name}
	}
	return map[string]any{}
}

func stringFormat(format string) map[string]any {
	return map[string]any{"format": format, "type": "string"}
}

// Title turns a field key into a display title: "email_address" becomes
// "Email Address". Letters following a letter are lower-cased, so
// "emailAddress" becomes "Emailaddress".
func Title(key string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range key {
		switch {
		case unicode.IsLetter(r) && prevLetter:
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return strings.TrimSpace(strings.ReplaceAll(b.String(), "_", " "))
}
