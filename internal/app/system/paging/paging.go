// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize is used when the caller does not ask for a size.
const DefaultPageSize = 25

// MaxPageSize caps the per_page query parameter.
const MaxPageSize = 100

// ParseSize reads "per_page", clamped to [1, MaxPageSize].
func ParseSize(r *http.Request) int {
	s := query.Get(r, "per_page")
	if s == "" {
		return DefaultPageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Result holds the output of TrimPage for keyset pagination.
type Result struct {
	HasPrev bool
	HasNext bool
}

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // Default: sort ascending, use "gt" for cursor
	Backward                  // Sort descending, use "lt" for cursor
)

// Keyset holds the result of configuring keyset pagination.
type Keyset struct {
	Direction Direction
	SortOrder int // 1 for ascending, -1 for descending
	Cursor    *wafflemongo.Cursor
	Size      int
	before    string
	after     string
}

// ConfigureKeyset determines pagination direction and decodes the cursor.
// before takes precedence over after. An undecodable cursor starts from
// the first page.
func ConfigureKeyset(before, after string, size int) Keyset {
	if size < 1 {
		size = DefaultPageSize
	}
	k := Keyset{Direction: Forward, SortOrder: 1, Size: size, before: before, after: after}

	if before != "" {
		k.Direction = Backward
		k.SortOrder = -1
		k.after = ""
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			k.Cursor = &c
		}
	} else if after != "" {
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			k.Cursor = &c
		}
	}
	return k
}

// FromRequest reads before/after/per_page from the query string.
func FromRequest(r *http.Request) Keyset {
	return ConfigureKeyset(query.Get(r, "before"), query.Get(r, "after"), ParseSize(r))
}

// ApplyToFind sorts by sortField then _id and fetches one extra row to
// detect whether another page exists.
func (k Keyset) ApplyToFind(find *options.FindOptions, sortField string) {
	find.SetSort(bson.D{
		{Key: sortField, Value: k.SortOrder},
		{Key: "_id", Value: k.SortOrder},
	}).SetLimit(int64(k.Size + 1))
}

// Window returns the cursor condition for the query filter, or nil on the
// first page.
func (k Keyset) Window(sortField string) bson.M {
	if k.Cursor == nil {
		return nil
	}
	dir := "gt"
	if k.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, k.Cursor.CI, k.Cursor.ID)
}

// TrimPage trims rows fetched with ApplyToFind, restores ascending order
// when paging backwards, and reports neighbours.
func TrimPage[T any](rows *[]T, k Keyset) Result {
	var res Result
	if k.Direction == Backward {
		if len(*rows) > k.Size {
			*rows = (*rows)[:k.Size]
			res.HasPrev = true
		}
		Reverse(*rows)
		res.HasNext = true
		return res
	}
	if len(*rows) > k.Size {
		*rows = (*rows)[:k.Size]
		res.HasNext = true
	}
	res.HasPrev = k.after != ""
	return res
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors creates prev/next cursor strings from the first and last elements.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first := rows[0]
	last := rows[len(rows)-1]
	prev = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
	next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	return prev, next
}
