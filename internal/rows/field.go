package rows

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// FieldKind identifies which variant a Field holds
type FieldKind int

const (
	KindMissing FieldKind = iota
	KindNull
	KindNumber
	KindString
	KindBool
	KindOther
)

// Field is a loosely-typed input value. It is the only place where
// untyped input is tolerated; everything downstream works on Row.
type Field struct {
	kind FieldKind
	num  float64
	str  string
	b    bool
}

// NumberField wraps a numeric value
func NumberField(v float64) Field { return Field{kind: KindNumber, num: v} }

// StringField wraps a string value
func StringField(v string) Field { return Field{kind: KindString, str: v} }

// BoolField wraps a boolean value
func BoolField(v bool) Field { return Field{kind: KindBool, b: v} }

// NullField is an explicit null
func NullField() Field { return Field{kind: KindNull} }

// FieldFromAny converts a decoded JSON value into a Field.
func FieldFromAny(v any) Field {
	switch val := v.(type) {
	case nil:
		return NullField()
	case float64:
		return NumberField(val)
	case float32:
		return NumberField(float64(val))
	case int:
		return NumberField(float64(val))
	case int64:
		return NumberField(float64(val))
	case uint:
		return NumberField(float64(val))
	case uint64:
		return NumberField(float64(val))
	case string:
		return StringField(val)
	case bool:
		return BoolField(val)
	case interface{ String() string }:
		// json.Number and friends
		if f, err := strconv.ParseFloat(val.String(), 64); err == nil {
			return NumberField(f)
		}
		return StringField(val.String())
	default:
		return Field{kind: KindOther}
	}
}

// Kind returns the variant held by the field
func (f Field) Kind() FieldKind { return f.kind }

// IsMissing reports whether the field was absent from the record
func (f Field) IsMissing() bool { return f.kind == KindMissing }

// Number coerces the field to a finite number. Numbers pass through,
// strings are trimmed and parsed (empty string is 0), true is 1, false
// and null are 0. Anything that does not coerce to a finite value is 0.
func (f Field) Number() float64 {
	var v float64
	switch f.kind {
	case KindNumber:
		v = f.num
	case KindString:
		s := strings.TrimSpace(f.str)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		v = parsed
	case KindBool:
		if f.b {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Text returns the string form of the field and whether it was a string.
func (f Field) Text() (string, bool) {
	if f.kind != KindString {
		return "", false
	}
	return f.str, true
}

// String renders the field the way a loose string conversion would.
func (f Field) String() string {
	switch f.kind {
	case KindString:
		return f.str
	case KindNumber:
		return strconv.FormatFloat(f.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(f.b)
	case KindNull:
		return "null"
	case KindMissing:
		return ""
	default:
		return ""
	}
}

// Record is an untyped input row keyed by lower-case field name.
type Record map[string]Field

// RecordFromMap builds a Record from a decoded JSON object. Keys are
// lower-cased. When several keys fold to the same name the exact lower-case
// key wins, otherwise the first key in byte order.
func RecordFromMap(m map[string]any) Record {
	rec := make(Record, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		lower := strings.ToLower(k)
		if _, taken := rec[lower]; taken && lower != k {
			continue
		}
		rec[lower] = FieldFromAny(m[k])
	}
	return rec
}

// Get returns the field stored under key, or a missing field.
func (r Record) Get(key string) Field {
	if f, ok := r[key]; ok {
		return f
	}
	return Field{kind: KindMissing}
}
