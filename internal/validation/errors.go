package validation

import (
	"fmt"
	"strings"
)

// FieldError is one failed check. Loc is the path to the value: keys for
// object fields and indexes for list items.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

func (e FieldError) location() string {
	parts := make([]string, len(e.Loc))
	for i, p := range e.Loc {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ".")
}

// ValidationError collects every FieldError from one Validate call.
type ValidationError struct {
	Model  string       `json:"model"`
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	noun := "errors"
	if len(e.Errors) == 1 {
		noun = "error"
	}
	fmt.Fprintf(&b, "%d validation %s for %s", len(e.Errors), noun, e.Model)
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "\n%s\n  %s [type=%s]", fe.location(), fe.Msg, fe.Type)
	}
	return b.String()
}

func fieldErr(loc []any, typ, msg string) []FieldError {
	return []FieldError{{Loc: loc, Type: typ, Msg: msg}}
}

// at returns a copy of loc with p appended.
func at(loc []any, p any) []any {
	out := make([]any, len(loc), len(loc)+1)
	copy(out, loc)
	return append(out, p)
}
