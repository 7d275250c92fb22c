package orm

import (
	"fmt"
	"strings"
)

// NativeType names the value type that rows of a column carry once loaded,
// independent of how the database stores it.
type NativeType string

const (
	NativeInt       NativeType = "int"
	NativeFloat     NativeType = "float"
	NativeDecimal   NativeType = "decimal"
	NativeString    NativeType = "str"
	NativeBool      NativeType = "bool"
	NativeDateTime  NativeType = "datetime"
	NativeDate      NativeType = "date"
	NativeTime      NativeType = "time"
	NativeTimeDelta NativeType = "timedelta"
	NativeBytes     NativeType = "bytes"
	NativeUUID      NativeType = "uuid"
	NativeDict      NativeType = "dict"
)

// TypeEngine is the declared type of a column.
type TypeEngine interface {
	// TypeName is the SQL spelling used in messages, e.g. "VARCHAR(255)".
	TypeName() string
}

// NativeTyper is implemented by engines that know their native value type.
// ok is false when the engine has no native representation.
type NativeTyper interface {
	NativeType() (native NativeType, ok bool)
}

// Decorator is implemented by engines that wrap another engine to customise
// storage while keeping the wrapped engine's values.
type Decorator interface {
	Impl() TypeEngine
}

type Integer struct{}

func (Integer) TypeName() string               { return "INTEGER" }
func (Integer) NativeType() (NativeType, bool) { return NativeInt, true }

type SmallInteger struct{}

func (SmallInteger) TypeName() string               { return "SMALLINT" }
func (SmallInteger) NativeType() (NativeType, bool) { return NativeInt, true }

type BigInteger struct{}

func (BigInteger) TypeName() string               { return "BIGINT" }
func (BigInteger) NativeType() (NativeType, bool) { return NativeInt, true }

type Float struct{}

func (Float) TypeName() string               { return "FLOAT" }
func (Float) NativeType() (NativeType, bool) { return NativeFloat, true }

// Numeric is a fixed-point number; zero Precision means unconstrained.
type Numeric struct {
	Precision int
	Scale     int
}

func (n Numeric) TypeName() string {
	if n.Precision > 0 {
		return fmt.Sprintf("NUMERIC(%d, %d)", n.Precision, n.Scale)
	}
	return "NUMERIC"
}

func (Numeric) NativeType() (NativeType, bool) { return NativeDecimal, true }

// String is a bounded character type; zero Length means unbounded.
type String struct {
	Length int
}

func (s String) TypeName() string {
	if s.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", s.Length)
	}
	return "VARCHAR"
}

func (String) NativeType() (NativeType, bool) { return NativeString, true }

type Text struct{}

func (Text) TypeName() string               { return "TEXT" }
func (Text) NativeType() (NativeType, bool) { return NativeString, true }

type Enum struct {
	Values []string
}

func (e Enum) TypeName() string {
	quoted := make([]string, len(e.Values))
	for i, v := range e.Values {
		quoted[i] = "'" + v + "'"
	}
	return "ENUM(" + strings.Join(quoted, ", ") + ")"
}

func (Enum) NativeType() (NativeType, bool) { return NativeString, true }

type Boolean struct{}

func (Boolean) TypeName() string               { return "BOOLEAN" }
func (Boolean) NativeType() (NativeType, bool) { return NativeBool, true }

type DateTime struct {
	Timezone bool
}

func (d DateTime) TypeName() string {
	if d.Timezone {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return "DATETIME"
}

func (DateTime) NativeType() (NativeType, bool) { return NativeDateTime, true }

type Date struct{}

func (Date) TypeName() string               { return "DATE" }
func (Date) NativeType() (NativeType, bool) { return NativeDate, true }

type Time struct {
	Timezone bool
}

func (t Time) TypeName() string {
	if t.Timezone {
		return "TIME WITH TIME ZONE"
	}
	return "TIME"
}

func (Time) NativeType() (NativeType, bool) { return NativeTime, true }

type Interval struct{}

func (Interval) TypeName() string               { return "INTERVAL" }
func (Interval) NativeType() (NativeType, bool) { return NativeTimeDelta, true }

type LargeBinary struct{}

func (LargeBinary) TypeName() string               { return "BLOB" }
func (LargeBinary) NativeType() (NativeType, bool) { return NativeBytes, true }

type UUID struct{}

func (UUID) TypeName() string               { return "UUID" }
func (UUID) NativeType() (NativeType, bool) { return NativeUUID, true }

type JSON struct{}

func (JSON) TypeName() string               { return "JSON" }
func (JSON) NativeType() (NativeType, bool) { return NativeDict, true }

// NullType stands in for a type the mapper does not understand, such as an
// engine-specific type reflected from a live database. It has no native type.
type NullType struct {
	Name string
}

func (n NullType) TypeName() string {
	if n.Name != "" {
		return n.Name
	}
	return "NULL"
}

func (NullType) NativeType() (NativeType, bool) { return "", false }

// TypeDecorator wraps an engine under a new name. Its values are those of
// the wrapped engine, reachable through Impl.
type TypeDecorator struct {
	Name string
	Base TypeEngine
}

// NewTypeDecorator returns a decorator called name around impl.
func NewTypeDecorator(name string, impl TypeEngine) *TypeDecorator {
	return &TypeDecorator{Name: name, Base: impl}
}

// TypeName is "TypeDecorator" on a nil decorator.
func (t *TypeDecorator) TypeName() string {
	if t == nil {
		return "TypeDecorator"
	}
	return t.Name
}

// Impl is nil on a nil decorator, which leaves nothing to resolve.
func (t *TypeDecorator) Impl() TypeEngine {
	if t == nil {
		return nil
	}
	return t.Base
}

// UtcDateTime stores timestamps with a time zone and always loads them in UTC.
func UtcDateTime() *TypeDecorator {
	return NewTypeDecorator("UtcDateTime", DateTime{Timezone: true})
}
