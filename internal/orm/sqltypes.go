package orm

import (
	"strings"
)

// TypeFromSQL maps a catalog type name to an engine. dataType is the
// information_schema data_type (or a declaration keyword such as "varchar");
// columnType is the engine's full declaration when it has one (MySQL
// column_type, Postgres udt_name) and may be empty.
//
// Unknown names become NullType so that the failure surfaces when the
// column's native type is needed, not while reading the catalog.
func TypeFromSQL(dataType, columnType string, maxLen *int) TypeEngine {
	base := baseTypeName(dataType)
	full := strings.ToLower(strings.TrimSpace(columnType))

	switch base {
	case "smallint", "int2", "smallserial", "serial2", "smallinteger":
		return SmallInteger{}
	case "tinyint":
		if full == "tinyint(1)" {
			return Boolean{}
		}
		return SmallInteger{}
	case "integer", "int", "int4", "mediumint", "serial", "serial4":
		return Integer{}
	case "bigint", "int8", "bigserial", "serial8", "biginteger":
		return BigInteger{}
	case "real", "float4", "float", "double", "double precision", "float8":
		return Float{}
	case "numeric", "decimal":
		return Numeric{}
	case "character varying", "varchar", "character", "char", "bpchar", "nvarchar", "nchar", "citext", "string":
		s := String{}
		if maxLen != nil {
			s.Length = *maxLen
		}
		return s
	case "text", "tinytext", "mediumtext", "longtext":
		return Text{}
	case "enum":
		return Enum{Values: enumValues(full)}
	case "boolean", "bool":
		return Boolean{}
	case "timestamp with time zone", "timestamptz":
		return DateTime{Timezone: true}
	case "timestamp", "timestamp without time zone", "datetime":
		return DateTime{}
	case "date":
		return Date{}
	case "time", "time without time zone":
		return Time{}
	case "time with time zone", "timetz":
		return Time{Timezone: true}
	case "interval":
		return Interval{}
	case "bytea", "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bytes", "largebinary":
		return LargeBinary{}
	case "uuid":
		return UUID{}
	case "json", "jsonb":
		return JSON{}
	}

	if base == "user-defined" && full != "" {
		return NullType{Name: full}
	}
	return NullType{Name: dataType}
}

// baseTypeName lower-cases a type name and drops any "(…)" modifier.
func baseTypeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// enumValues extracts the labels of a MySQL "enum('a','b')" declaration.
func enumValues(columnType string) []string {
	open := strings.IndexByte(columnType, '(')
	end := strings.LastIndexByte(columnType, ')')
	if open < 0 || end <= open {
		return nil
	}

	var values []string
	for _, part := range strings.Split(columnType[open+1:end], ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "'")
		part = strings.TrimSuffix(part, "'")
		values = append(values, strings.ReplaceAll(part, "''", "'"))
	}
	return values
}
