package validation

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// coerce reads v as a value of type t. Conversions are lax: numeric
// strings are numbers, 0 and 1 are booleans, unix timestamps are
// datetimes. Values coming straight from a database driver are unwrapped
// through driver.Valuer first.
func coerce(t Type, v any, loc []any) (any, []FieldError) {
	v = unwrap(v)
	if v == nil {
		if t.Nullable {
			return nil, nil
		}
		return nil, typeErr(t, loc)
	}

	switch t.Kind {
	case KindInteger:
		return toInt(t, v, loc)
	case KindFloat:
		return toFloat(t, v, loc)
	case KindDecimal:
		return toDecimal(t, v, loc)
	case KindString:
		return toString(t, v, loc)
	case KindBoolean:
		return toBool(t, v, loc)
	case KindDateTime:
		return toDateTime(t, v, loc)
	case KindDate:
		return toDate(t, v, loc)
	case KindTime:
		return toTime(t, v, loc)
	case KindDuration:
		return toDuration(t, v, loc)
	case KindBytes:
		return toBytes(t, v, loc)
	case KindUUID:
		return toUUID(t, v, loc)
	case KindMap:
		return toMap(t, v, loc)
	case KindObject:
		return t.Schema.validate(v, loc)
	case KindList:
		return toList(t, v, loc)
	}
	return nil, typeErr(t, loc)
}

func unwrap(v any) any {
	for range 8 {
		if v == nil {
			return nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		if _, ok := v.(*Instance); ok {
			return v
		}
		if valuer, ok := v.(driver.Valuer); ok {
			if _, isUUID := v.(uuid.UUID); isUUID {
				return v
			}
			dv, err := valuer.Value()
			if err != nil {
				return v
			}
			v = dv
			continue
		}
		if rv.Kind() == reflect.Pointer {
			v = rv.Elem().Interface()
			continue
		}
		return v
	}
	return v
}

func typeErr(t Type, loc []any) []FieldError {
	switch t.Kind {
	case KindInteger:
		return fieldErr(loc, "int_type", "Input should be a valid integer")
	case KindFloat:
		return fieldErr(loc, "float_type", "Input should be a valid number")
	case KindDecimal:
		return fieldErr(loc, "decimal_type", "Decimal input should be an integer, float, string or Decimal object")
	case KindString:
		return fieldErr(loc, "string_type", "Input should be a valid string")
	case KindBoolean:
		return fieldErr(loc, "bool_type", "Input should be a valid boolean")
	case KindDateTime:
		return fieldErr(loc, "datetime_type", "Input should be a valid datetime")
	case KindDate:
		return fieldErr(loc, "date_type", "Input should be a valid date")
	case KindTime:
		return fieldErr(loc, "time_type", "Input should be a valid time")
	case KindDuration:
		return fieldErr(loc, "time_delta_type", "Input should be a valid timedelta")
	case KindBytes:
		return fieldErr(loc, "bytes_type", "Input should be a valid bytes")
	case KindUUID:
		return fieldErr(loc, "uuid_type", "UUID input should be a string, bytes or UUID object")
	case KindMap:
		return fieldErr(loc, "dict_type", "Input should be a valid dictionary")
	case KindList:
		return fieldErr(loc, "list_type", "Input should be a valid list")
	case KindObject:
		return fieldErr(loc, "model_type", "Input should be a valid dictionary or instance of "+t.String())
	}
	return fieldErr(loc, "type_error", "Input has an unsupported type")
}

func toInt(t Type, v any, loc []any) (any, []FieldError) {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		if f, err := x.Float64(); err == nil {
			return floatToInt(f, loc)
		}
		return nil, fieldErr(loc, "int_parsing", "Input should be a valid integer, unable to parse string as an integer")
	case []byte:
		return parseInt(string(x), loc)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fieldErr(loc, "int_parsing_size", "Unable to parse input string as an integer, exceeded maximum size")
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return floatToInt(rv.Float(), loc)
	case reflect.String:
		return parseInt(rv.String(), loc)
	}
	return nil, typeErr(t, loc)
}

func parseInt(s string, loc []any) (any, []FieldError) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fieldErr(loc, "int_parsing", "Input should be a valid integer, unable to parse string as an integer")
	}
	return i, nil
}

func floatToInt(f float64, loc []any) (any, []FieldError) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return nil, fieldErr(loc, "finite_number", "Input should be a finite number")
	case f != math.Trunc(f):
		return nil, fieldErr(loc, "int_from_float", "Input should be a valid integer, got a number with a fractional part")
	case f < math.MinInt64 || f >= math.MaxInt64:
		return nil, fieldErr(loc, "int_parsing_size", "Unable to parse input string as an integer, exceeded maximum size")
	}
	return int64(f), nil
}

func toFloat(t Type, v any, loc []any) (any, []FieldError) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case json.Number:
		return parseFloat(string(x), loc)
	case []byte:
		return parseFloat(string(x), loc)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return parseFloat(rv.String(), loc)
	}
	return nil, typeErr(t, loc)
}

func parseFloat(s string, loc []any) (any, []FieldError) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fieldErr(loc, "float_parsing", "Input should be a valid number, unable to parse string as a number")
	}
	return f, nil
}

func toDecimal(t Type, v any, loc []any) (any, []FieldError) {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = string(x)
	case []byte:
		s = string(x)
	case bool:
		return nil, typeErr(t, loc)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			s = strconv.FormatInt(rv.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			s = strconv.FormatUint(rv.Uint(), 10)
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fieldErr(loc, "finite_number", "Input should be a finite number")
			}
			s = strconv.FormatFloat(f, 'f', -1, 64)
		case reflect.String:
			s = rv.String()
		default:
			return nil, typeErr(t, loc)
		}
	}

	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '/') {
		return nil, fieldErr(loc, "decimal_parsing", "Input should be a valid decimal")
	}
	if _, ok := new(big.Rat).SetString(s); !ok {
		return nil, fieldErr(loc, "decimal_parsing", "Input should be a valid decimal")
	}
	return json.Number(s), nil
}

func toString(t Type, v any, loc []any) (any, []FieldError) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		if !utf8.Valid(x) {
			return nil, fieldErr(loc, "string_unicode", "Input should be a valid string, unable to parse raw data as a unicode string")
		}
		return string(x), nil
	case json.Number:
		return nil, typeErr(t, loc)
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, typeErr(t, loc)
}

var (
	trueStrings  = map[string]bool{"1": true, "on": true, "t": true, "true": true, "y": true, "yes": true}
	falseStrings = map[string]bool{"0": true, "off": true, "f": true, "false": true, "n": true, "no": true}
)

func toBool(t Type, v any, loc []any) (any, []FieldError) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		return parseBool(string(x), loc)
	case []byte:
		return parseBool(string(x), loc)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intBool(float64(rv.Int()), loc)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return intBool(float64(rv.Uint()), loc)
	case reflect.Float32, reflect.Float64:
		return intBool(rv.Float(), loc)
	case reflect.String:
		return parseBool(rv.String(), loc)
	}
	return nil, typeErr(t, loc)
}

func parseBool(s string, loc []any) (any, []FieldError) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case trueStrings[s]:
		return true, nil
	case falseStrings[s]:
		return false, nil
	}
	return nil, fieldErr(loc, "bool_parsing", "Input should be a valid boolean, unable to interpret input")
}

func intBool(f float64, loc []any) (any, []FieldError) {
	switch f {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, fieldErr(loc, "bool_parsing", "Input should be a valid boolean, unable to interpret input")
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// unixMillisThreshold separates unix seconds from unix milliseconds.
const unixMillisThreshold = 2e10

// Unix seconds of 0001-01-01T00:00:00Z and 9999-12-31T23:59:59Z.
const (
	minUnixSeconds = -62135596800
	maxUnixSeconds = 253402300799
)

func toDateTime(t Type, v any, loc []any) (any, []FieldError) {
	if ts, ok := asTime(v); ok {
		return ts, nil
	}
	if s, ok := asText(v); ok {
		if ts, ok := parseDateTime(s); ok {
			return ts, nil
		}
		return nil, fieldErr(loc, "datetime_parsing", "Input should be a valid datetime")
	}
	if f, ok := asNumber(v); ok {
		if ts, ok := unixTime(f); ok {
			return ts, nil
		}
		return nil, fieldErr(loc, "datetime_parsing", "Input should be a valid datetime")
	}
	return nil, typeErr(t, loc)
}

func parseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return unixTime(f)
	}
	return time.Time{}, false
}

// unixTime reads f as unix seconds, or milliseconds past the threshold.
// Instants outside years 1 through 9999 are rejected.
func unixTime(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	if math.Abs(f) > unixMillisThreshold {
		f /= 1000
	}
	if f < minUnixSeconds || f >= maxUnixSeconds+1 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), true
}

func toDate(t Type, v any, loc []any) (any, []FieldError) {
	var ts time.Time
	switch {
	case isTime(v):
		ts, _ = asTime(v)
	case isText(v):
		s, _ := asText(v)
		parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
		if err != nil {
			var ok bool
			if parsed, ok = parseDateTime(s); !ok {
				return nil, fieldErr(loc, "date_parsing", "Input should be a valid date in the format YYYY-MM-DD")
			}
		}
		ts = parsed
	default:
		f, ok := asNumber(v)
		if !ok {
			return nil, typeErr(t, loc)
		}
		if ts, ok = unixTime(f); !ok {
			return nil, fieldErr(loc, "date_parsing", "Input should be a valid date in the format YYYY-MM-DD")
		}
	}

	if ts.Hour() != 0 || ts.Minute() != 0 || ts.Second() != 0 || ts.Nanosecond() != 0 {
		return nil, fieldErr(loc, "date_from_datetime_inexact",
			"Datetimes provided to dates should have zero time - e.g. be exact dates")
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

var timeLayouts = []struct {
	layout string
	zoned  bool
}{
	{"15:04:05.999999999Z07:00", true},
	{"15:04:05.999999999", false},
	{"15:04", false},
}

// toTime stores a time of day as its canonical text, e.g. "09:30:00" or
// "09:30:00.5+02:00" when a zone was given.
func toTime(t Type, v any, loc []any) (any, []FieldError) {
	if ts, ok := asTime(v); ok {
		return ts.Format("15:04:05.999999999"), nil
	}
	s, ok := asText(v)
	if !ok {
		return nil, typeErr(t, loc)
	}

	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		ts, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.zoned {
			return ts.Format("15:04:05.999999999Z07:00"), nil
		}
		return ts.Format("15:04:05.999999999"), nil
	}
	return nil, fieldErr(loc, "time_parsing", "Input should be in a valid time format")
}

var isoDuration = regexp.MustCompile(`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

func toDuration(t Type, v any, loc []any) (any, []FieldError) {
	if d, ok := v.(time.Duration); ok {
		return d, nil
	}
	if s, ok := asText(v); ok {
		if d, ok := parseDuration(strings.TrimSpace(s)); ok {
			return d, nil
		}
		return nil, fieldErr(loc, "time_delta_parsing", "Input should be a valid timedelta")
	}
	if f, ok := asNumber(v); ok {
		if d, ok := secondsDuration(f); ok {
			return d, nil
		}
		return nil, fieldErr(loc, "time_delta_parsing", "Input should be a valid timedelta")
	}
	return nil, typeErr(t, loc)
}

func parseDuration(s string) (time.Duration, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return secondsDuration(f)
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, true
	}

	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || strings.HasSuffix(s, "T") {
		return 0, false
	}
	var (
		d  time.Duration
		ok bool
	)
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, unit := range units {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+2], 10, 64)
		if err != nil || n > math.MaxInt64/int64(unit) {
			return 0, false
		}
		if d, ok = addDuration(d, time.Duration(n)*unit); !ok {
			return 0, false
		}
	}
	if m[5] != "" {
		f, err := strconv.ParseFloat(m[5], 64)
		if err != nil {
			return 0, false
		}
		secs, ok := secondsDuration(f)
		if !ok {
			return 0, false
		}
		if d, ok = addDuration(d, secs); !ok {
			return 0, false
		}
	}
	if m[1] == "-" {
		d = -d
	}
	return d, true
}

// secondsDuration converts f seconds, failing when the result does not fit
// a time.Duration.
func secondsDuration(f float64) (time.Duration, bool) {
	ns := math.Round(f * float64(time.Second))
	if math.IsNaN(ns) || math.Abs(ns) >= math.MaxInt64 {
		return 0, false
	}
	return time.Duration(ns), true
}

func addDuration(a, b time.Duration) (time.Duration, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// formatISODuration renders d as an ISO 8601 duration such as "P1DT2H30M".
func formatISODuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if d == 0 {
		return b.String()
	}

	b.WriteByte('T')
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if d > 0 {
		b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
		b.WriteByte('S')
	}
	return b.String()
}

func toBytes(t Type, v any, loc []any) (any, []FieldError) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return bytes.Clone(rv.Bytes()), nil
	}
	if rv.Kind() == reflect.String {
		return []byte(rv.String()), nil
	}
	return nil, typeErr(t, loc)
}

func toUUID(t Type, v any, loc []any) (any, []FieldError) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case []byte:
		if len(x) == 16 {
			id, err := uuid.FromBytes(x)
			if err == nil {
				return id, nil
			}
		}
		id, err := uuid.ParseBytes(x)
		if err != nil {
			return nil, fieldErr(loc, "uuid_parsing", "Input should be a valid UUID")
		}
		return id, nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(x))
		if err != nil {
			return nil, fieldErr(loc, "uuid_parsing", "Input should be a valid UUID")
		}
		return id, nil
	}
	return nil, typeErr(t, loc)
}

func toMap(t Type, v any, loc []any) (any, []FieldError) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out, nil
	case json.RawMessage:
		return decodeObject(t, x, loc)
	case []byte:
		return decodeObject(t, x, loc)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, typeErr(t, loc)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

// decodeObject reads a JSON object held as raw bytes, as MySQL drivers
// return JSON columns.
func decodeObject(t Type, data []byte, loc []any) (any, []FieldError) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, typeErr(t, loc)
	}
	return out, nil
}

func toList(t Type, v any, loc []any) (any, []FieldError) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, typeErr(t, loc)
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, typeErr(t, loc)
	}

	out := make([]any, rv.Len())
	var problems []FieldError
	for i := range rv.Len() {
		item, fe := coerce(*t.Elem, rv.Index(i).Interface(), at(loc, i))
		if len(fe) > 0 {
			problems = append(problems, fe...)
			continue
		}
		out[i] = item
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return out, nil
}

var timeType = reflect.TypeOf(time.Time{})

func isTime(v any) bool {
	_, ok := asTime(v)
	return ok
}

func asTime(v any) (time.Time, bool) {
	if ts, ok := v.(time.Time); ok {
		return ts, true
	}
	rv := reflect.ValueOf(v)
	if rv.Type().ConvertibleTo(timeType) && rv.Kind() == reflect.Struct {
		return rv.Convert(timeType).Interface().(time.Time), true
	}
	return time.Time{}, false
}

func isText(v any) bool {
	_, ok := asText(v)
	return ok
}

// asText returns v as a string when it holds text: a string kind or raw
// bytes. json.Number is numeric, not text.
func asText(v any) (string, bool) {
	switch x := v.(type) {
	case json.Number:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func asNumber(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
