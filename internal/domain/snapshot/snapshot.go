// internal/domain/snapshot/snapshot.go
package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is the set of top-level fields of one entity at one moment.
// A key missing from the map is Absent.
type Snapshot map[string]Value

// Get returns the value for key, or Absent.
func (s Snapshot) Get(key string) Value {
	if s == nil {
		return Absent()
	}
	return s[key]
}

// Keys returns the snapshot's keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromMap converts an untyped document into a Snapshot. ObjectIDs become
// their hex string; nil becomes Null. Unsupported types (nested documents,
// non-string arrays, binary) are rejected with InvalidArgument.
func FromMap(m map[string]any) (Snapshot, error) {
	out := make(Snapshot, len(m))
	for k, raw := range m {
		v, err := valueOf(raw)
		if err != nil {
			return nil, apperr.E(apperr.KindInvalidArgument, "snapshot.FromMap",
				fmt.Sprintf("field %q: %v", k, err), nil)
		}
		out[k] = v
	}
	return out, nil
}

func valueOf(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case time.Time:
		return Time(x), nil
	case *time.Time:
		if x == nil {
			return Null(), nil
		}
		return Time(*x), nil
	case primitive.DateTime:
		return Time(x.Time()), nil
	case primitive.ObjectID:
		return String(x.Hex()), nil
	case *primitive.ObjectID:
		if x == nil {
			return Null(), nil
		}
		return String(x.Hex()), nil
	case []string:
		return StringList(x), nil
	case []any:
		return listOf(x)
	case primitive.A:
		return listOf([]any(x))
	}
	return Value{}, fmt.Errorf("unsupported type %T", raw)
}

func listOf(items []any) (Value, error) {
	out := make([]string, 0, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return Value{}, fmt.Errorf("list element %d has type %T, want string", i, it)
		}
		out = append(out, s)
	}
	return StringList(out), nil
}

// Change is one field whose value differs between two snapshots.
type Change struct {
	Path string
	Old  Value
	New  Value
}

// identityKeys never produce a change.
var identityKeys = map[string]bool{"_id": true, "id": true}

// Diff compares next against prev. Only keys present in next are considered,
// so a key dropped from next is not reported. Changes are sorted by path.
func Diff(prev, next Snapshot) []Change {
	var out []Change
	for _, k := range next.Keys() {
		if identityKeys[k] {
			continue
		}
		nv := next[k]
		ov := prev.Get(k)
		if ov.Equal(nv) {
			continue
		}
		out = append(out, Change{Path: k, Old: ov, New: nv})
	}
	return out
}
