package snapshot_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDiff_OnlyChangedFields(t *testing.T) {
	prev := snapshot.Snapshot{
		"title":  snapshot.String("A"),
		"status": snapshot.String("draft"),
	}
	next := snapshot.Snapshot{
		"title":  snapshot.String("B"),
		"status": snapshot.String("draft"),
	}

	changes := snapshot.Diff(prev, next)
	if len(changes) != 1 {
		t.Fatalf("len(changes): got %d, want 1", len(changes))
	}
	c := changes[0]
	if c.Path != "title" {
		t.Errorf("Path: got %q, want %q", c.Path, "title")
	}
	if s, _ := c.Old.Str(); s != "A" {
		t.Errorf("Old: got %q, want %q", s, "A")
	}
	if s, _ := c.New.Str(); s != "B" {
		t.Errorf("New: got %q, want %q", s, "B")
	}
}

func TestDiff_IdenticalSnapshotsProduceNothing(t *testing.T) {
	now := time.Now()
	s := snapshot.Snapshot{
		"title":   snapshot.String("X"),
		"tags":    snapshot.StringList([]string{"a", "b"}),
		"due":     snapshot.Time(now),
		"budget":  snapshot.Float(12.5),
		"visible": snapshot.Bool(true),
		"note":    snapshot.Null(),
	}
	if changes := snapshot.Diff(s, s); len(changes) != 0 {
		t.Errorf("Diff(s, s): got %d changes, want 0", len(changes))
	}
}

func TestDiff_NewKeyHasAbsentOldValue(t *testing.T) {
	changes := snapshot.Diff(snapshot.Snapshot{}, snapshot.Snapshot{"note": snapshot.String("x")})
	if len(changes) != 1 {
		t.Fatalf("len(changes): got %d, want 1", len(changes))
	}
	if changes[0].Old.Kind() != snapshot.KindAbsent {
		t.Errorf("Old kind: got %s, want absent", changes[0].Old.Kind())
	}
}

func TestDiff_KeyOnlyInPrevIsIgnored(t *testing.T) {
	prev := snapshot.Snapshot{"note": snapshot.String("x"), "title": snapshot.String("T")}
	next := snapshot.Snapshot{"title": snapshot.String("T")}
	if changes := snapshot.Diff(prev, next); len(changes) != 0 {
		t.Errorf("got %d changes, want 0", len(changes))
	}
}

func TestDiff_SkipsIdentityKeys(t *testing.T) {
	prev := snapshot.Snapshot{"_id": snapshot.String("1"), "id": snapshot.String("1")}
	next := snapshot.Snapshot{"_id": snapshot.String("2"), "id": snapshot.String("2")}
	if changes := snapshot.Diff(prev, next); len(changes) != 0 {
		t.Errorf("got %d changes, want 0", len(changes))
	}
}

func TestDiff_NullToValueAndBack(t *testing.T) {
	changes := snapshot.Diff(
		snapshot.Snapshot{"archived_at": snapshot.Null()},
		snapshot.Snapshot{"archived_at": snapshot.Time(time.Now())},
	)
	if len(changes) != 1 {
		t.Fatalf("null -> time: got %d changes, want 1", len(changes))
	}
	changes = snapshot.Diff(
		snapshot.Snapshot{"archived_at": snapshot.Time(time.Now())},
		snapshot.Snapshot{"archived_at": snapshot.Null()},
	)
	if len(changes) != 1 {
		t.Fatalf("time -> null: got %d changes, want 1", len(changes))
	}
}

func TestDiff_SortedByPath(t *testing.T) {
	next := snapshot.Snapshot{
		"zeta":  snapshot.Int(1),
		"alpha": snapshot.Int(1),
		"mid":   snapshot.Int(1),
	}
	changes := snapshot.Diff(nil, next)
	want := []string{"alpha", "mid", "zeta"}
	if len(changes) != len(want) {
		t.Fatalf("len(changes): got %d, want %d", len(changes), len(want))
	}
	for i, w := range want {
		if changes[i].Path != w {
			t.Errorf("changes[%d].Path: got %q, want %q", i, changes[i].Path, w)
		}
	}
}

func TestValueEqual(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	kyiv := time.FixedZone("EEST", 3*3600)

	tests := []struct {
		name string
		a, b snapshot.Value
		want bool
	}{
		{"int equals float by value", snapshot.Int(1), snapshot.Float(1.0), true},
		{"ints differ", snapshot.Int(1), snapshot.Int(2), false},
		{"time same instant different zone", snapshot.Time(t0), snapshot.Time(t0.In(kyiv)), true},
		{"time sub-millisecond difference", snapshot.Time(t0), snapshot.Time(t0.Add(300 * time.Microsecond)), true},
		{"list order matters", snapshot.StringList([]string{"a", "b"}), snapshot.StringList([]string{"b", "a"}), false},
		{"empty lists", snapshot.StringList(nil), snapshot.StringList([]string{}), true},
		{"null vs absent", snapshot.Null(), snapshot.Absent(), false},
		{"string vs number", snapshot.String("1"), snapshot.Int(1), false},
		{"bools", snapshot.Bool(false), snapshot.Bool(false), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFromMap(t *testing.T) {
	oid := primitive.NewObjectID()
	s, err := snapshot.FromMap(map[string]any{
		"owner_id": oid,
		"title":    "T",
		"count":    3,
		"ratio":    0.5,
		"tags":     []any{"x", "y"},
		"cleared":  nil,
	})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	if got, _ := s["owner_id"].Str(); got != oid.Hex() {
		t.Errorf("owner_id: got %q, want %q", got, oid.Hex())
	}
	if got, ok := s["count"].IntValue(); !ok || got != 3 {
		t.Errorf("count: got %d (ok=%v), want 3", got, ok)
	}
	if l, ok := s["tags"].List(); !ok || len(l) != 2 {
		t.Errorf("tags: got %v (ok=%v), want [x y]", l, ok)
	}
	if !s["cleared"].IsNull() {
		t.Errorf("cleared: got %s, want null", s["cleared"].Kind())
	}
}

func TestFromMap_RejectsUnsupported(t *testing.T) {
	_, err := snapshot.FromMap(map[string]any{"nested": map[string]any{"a": 1}})
	if !errors.Is(err, apperr.InvalidArgument) {
		t.Errorf("nested doc: got %v, want InvalidArgument", err)
	}
	_, err = snapshot.FromMap(map[string]any{"mixed": []any{"a", 1}})
	if !errors.Is(err, apperr.InvalidArgument) {
		t.Errorf("mixed list: got %v, want InvalidArgument", err)
	}
}

type holder struct {
	Old snapshot.Value `bson:"old,omitempty"`
	New snapshot.Value `bson:"new"`
}

func TestValue_BSONRoundTripKeepsKind(t *testing.T) {
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	values := []snapshot.Value{
		snapshot.Null(),
		snapshot.String("hello"),
		snapshot.Int(42),
		snapshot.Float(2.5),
		snapshot.Bool(true),
		snapshot.Time(t0),
		snapshot.StringList([]string{"a", "b"}),
		snapshot.StringList(nil),
	}
	for _, v := range values {
		raw, err := bson.Marshal(holder{New: v})
		if err != nil {
			t.Fatalf("marshal %s: %v", v.Kind(), err)
		}
		var out holder
		if err := bson.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", v.Kind(), err)
		}
		if !out.New.Equal(v) {
			t.Errorf("round trip %s: got %s, want %s", v.Kind(), out.New, v)
		}
		if out.Old.Kind() != snapshot.KindAbsent {
			t.Errorf("omitted old: got %s, want absent", out.Old.Kind())
		}
	}
}

func TestValue_BSONStoresNativeTypes(t *testing.T) {
	raw, err := bson.Marshal(holder{New: snapshot.Int(7)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rv := bson.Raw(raw).Lookup("new")
	if rv.Type != bson.TypeInt64 {
		t.Errorf("int type: got %s, want int64", rv.Type)
	}
	if _, err := bson.Raw(raw).LookupErr("old"); err == nil {
		t.Errorf("absent old value should be omitted")
	}
}

func TestValue_JSON(t *testing.T) {
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		v    snapshot.Value
		want string
	}{
		{snapshot.Null(), `null`},
		{snapshot.String("a"), `"a"`},
		{snapshot.Int(3), `3`},
		{snapshot.Bool(true), `true`},
		{snapshot.Time(t0), `"2025-01-02T03:04:05Z"`},
		{snapshot.StringList(nil), `[]`},
	}
	for _, tc := range tests {
		b, err := json.Marshal(tc.v)
		if err != nil {
			t.Fatalf("marshal %s: %v", tc.v.Kind(), err)
		}
		if string(b) != tc.want {
			t.Errorf("json %s: got %s, want %s", tc.v.Kind(), b, tc.want)
		}
	}
}
