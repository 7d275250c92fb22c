package validation

import (
	"strings"
	"unicode"

	"github.com/koustreak/rowmodel/internal/errs"
)

// Config controls how a Schema reads and writes values. It is carried by
// the schema exactly as given to Construct.
type Config struct {
	// FromAttributes allows Validate to read fields from structs and
	// Attributer values, not only from maps.
	FromAttributes bool

	// AliasGenerator maps a field name to its external key. Nil means the
	// key is the field name.
	AliasGenerator func(string) string
}

// ORMConfig reads objects by attribute, the way rows loaded through a
// table mapping are presented.
var ORMConfig = Config{FromAttributes: true}

// ToCamel converts snake_case to camelCase: "email_address" becomes
// "emailAddress".
func ToCamel(name string) string {
	pascal := ToPascal(name)
	if pascal == "" {
		return pascal
	}
	r := []rune(pascal)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// ToPascal converts snake_case to PascalCase: "user_id" becomes "UserId".
func ToPascal(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word == "" {
			continue
		}
		r := []rune(strings.ToLower(word))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// AliasGeneratorByName resolves a configured alias style. The empty name
// and "none" mean no aliases.
func AliasGeneratorByName(name string) (func(string) string, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return nil, nil
	case "camel":
		return ToCamel, nil
	case "pascal":
		return ToPascal, nil
	default:
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown alias generator %q", name)
	}
}
