package helios

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind selects the codec specialization for a parameter.
type Kind int

const (
	KindInvalid Kind = iota
	KindBoolean
	KindInteger
	KindDouble
	KindDateTime
	KindTimeSpan
	KindString
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindDateTime:
		return "datetime"
	case KindTimeSpan:
		return "timespan"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	default:
		return "invalid"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// EnumType names the members of an enumerated parameter by ordinal.
type EnumType struct {
	Name    string
	Members []string
}

// MemberName returns the member name for ordinal, or the number itself when it is
// outside the known members.
func (e *EnumType) MemberName(ordinal int) string {
	if e != nil && ordinal >= 0 && ordinal < len(e.Members) {
		return e.Members[ordinal]
	}
	return strconv.Itoa(ordinal)
}

// Ordinal resolves a member name.
func (e *EnumType) Ordinal(name string) (int, bool) {
	if e == nil {
		return 0, false
	}
	for i, member := range e.Members {
		if member == name {
			return i, true
		}
	}
	return 0, false
}

// Value is a tagged device parameter value. The zero Value is "absent".
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	t    time.Time
	d    time.Duration
	s    string
	enum *EnumType
}

func Bool(v bool) Value               { return Value{kind: KindBoolean, b: v} }
func Int(v int64) Value               { return Value{kind: KindInteger, i: v} }
func Double(v float64) Value          { return Value{kind: KindDouble, f: v} }
func DateTime(v time.Time) Value      { return Value{kind: KindDateTime, t: v} }
func TimeSpan(v time.Duration) Value  { return Value{kind: KindTimeSpan, d: v} }
func String(v string) Value           { return Value{kind: KindString, s: v} }
func Enum(t *EnumType, ord int) Value { return Value{kind: KindEnum, i: int64(ord), enum: t} }

// Zero returns the default value of a kind.
func Zero(kind Kind, enum *EnumType) Value {
	switch kind {
	case KindEnum:
		return Enum(enum, 0)
	case KindInvalid:
		return Value{}
	default:
		return Value{kind: kind}
	}
}

func (v Value) Kind() Kind              { return v.kind }
func (v Value) IsValid() bool           { return v.kind != KindInvalid }
func (v Value) Bool() bool              { return v.b }
func (v Value) Int() int64              { return v.i }
func (v Value) Double() float64         { return v.f }
func (v Value) DateTime() time.Time     { return v.t }
func (v Value) TimeSpan() time.Duration { return v.d }
func (v Value) Str() string             { return v.s }
func (v Value) Ordinal() int            { return int(v.i) }
func (v Value) EnumType() *EnumType     { return v.enum }

// Equal compares kind and payload. DateTime values compare as instants.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindDateTime:
		return v.t.Equal(o.t)
	case KindTimeSpan:
		return v.d == o.d
	case KindString:
		return v.s == o.s
	case KindEnum:
		return v.i == o.i && v.enum == o.enum
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDateTime:
		return v.t.Format(dateLayout)
	case KindTimeSpan:
		return formatTimeSpan(v.d)
	case KindString:
		return v.s
	case KindEnum:
		return v.enum.MemberName(int(v.i))
	default:
		return ""
	}
}

// Interface returns the payload as a plain Go value for JSON and RPC responses.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInteger:
		return v.i
	case KindDouble:
		return v.f
	case KindDateTime:
		return v.t.Format("2006-01-02")
	case KindTimeSpan, KindString, KindEnum:
		return v.String()
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) GoString() string {
	return fmt.Sprintf("helios.Value{%s:%s}", v.kind, v.String())
}
