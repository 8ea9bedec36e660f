// internal/domain/snapshot/value.go

// Package snapshot models an entity's top-level fields as a typed mapping so
// that before/after states can be compared exhaustively. Each field holds a
// Value, a closed sum of the kinds the stores actually persist.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindAbsent marks a key that was not present in the snapshot at all.
	// It is distinct from KindNull, which is an explicit "cleared" value.
	KindAbsent Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindTime
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindStringList:
		return "string_list"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is one field value. The zero Value is Absent.
type Value struct {
	kind  Kind
	str   string
	num   float64
	i     int64
	isInt bool
	b     bool
	t     time.Time
	list  []string
}

// Absent returns the value used for keys missing from a snapshot.
func Absent() Value { return Value{} }

// Null returns an explicit null.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integral number. It is stored as a BSON int64.
func Int(n int64) Value { return Value{kind: KindNumber, i: n, num: float64(n), isInt: true} }

// Float returns a floating-point number. It is stored as a BSON double.
func Float(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a point in time, normalized to UTC at millisecond precision
// (the resolution of a BSON datetime) so that a value read back from the
// store compares equal to the one that was written.
func Time(t time.Time) Value {
	return Value{kind: KindTime, t: t.UTC().Truncate(time.Millisecond)}
}

// StringList returns a list-of-strings value. The slice is copied.
func StringList(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindStringList, list: cp}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is Absent. The bson and json encoders use it for
// omitempty/omitzero, so an absent old value is simply not written.
func (v Value) IsZero() bool { return v.kind == KindAbsent }

// IsNull reports whether v is an explicit null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Number returns the numeric payload as float64 and whether v is a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// IntValue returns the integral payload and whether v is an integral number.
func (v Value) IntValue() (int64, bool) { return v.i, v.kind == KindNumber && v.isInt }

// BoolValue returns the boolean payload and whether v is a bool.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// TimeValue returns the time payload and whether v is a time.
func (v Value) TimeValue() (time.Time, bool) { return v.t, v.kind == KindTime }

// List returns a copy of the list payload and whether v is a string list.
func (v Value) List() ([]string, bool) {
	if v.kind != KindStringList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Equal reports structural equality. Numbers compare by numeric value
// (int64 1 equals double 1.0), times compare as instants, and lists compare
// element by element.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		if v.isInt && o.isInt {
			return v.i == o.i
		}
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	case KindStringList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Interface returns the native Go value (nil for absent and null).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.isInt {
			return v.i
		}
		return v.num
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindStringList:
		l, _ := v.List()
		return l
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindNull:
		return "null"
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v.Interface())
}

// MarshalBSONValue stores the payload as its native BSON type so the
// field_versions collection holds values verbatim.
func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch v.kind {
	case KindAbsent, KindNull:
		return bson.TypeNull, nil, nil
	case KindStringList:
		l := v.list
		if l == nil {
			l = []string{}
		}
		return bson.MarshalValue(l)
	}
	return bson.MarshalValue(v.Interface())
}

// UnmarshalBSONValue is the inverse of MarshalBSONValue.
func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*v = Null()
	case bson.TypeString:
		*v = String(raw.StringValue())
	case bson.TypeInt32:
		*v = Int(int64(raw.Int32()))
	case bson.TypeInt64:
		*v = Int(raw.Int64())
	case bson.TypeDouble:
		*v = Float(raw.Double())
	case bson.TypeBoolean:
		*v = Bool(raw.Boolean())
	case bson.TypeDateTime:
		*v = Time(raw.Time())
	case bson.TypeArray:
		vals, err := raw.Array().Values()
		if err != nil {
			return err
		}
		items := make([]string, 0, len(vals))
		for _, el := range vals {
			s, ok := el.StringValueOK()
			if !ok {
				return fmt.Errorf("snapshot: array element of type %s is not a string", el.Type)
			}
			items = append(items, s)
		}
		*v = StringList(items)
	default:
		return fmt.Errorf("snapshot: unsupported bson type %s", t)
	}
	return nil
}

// MarshalJSON renders absent and null as JSON null and times as RFC 3339.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindAbsent, KindNull:
		return []byte("null"), nil
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindStringList:
		l := v.list
		if l == nil {
			l = []string{}
		}
		return json.Marshal(l)
	}
	return json.Marshal(v.Interface())
}
