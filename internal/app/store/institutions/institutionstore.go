// internal/app/store/institutions/institutionstore.go
package institutionstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/yovalentych/research-os-sub002/internal/app/system/paging"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrExternalIDRequired is returned when a batch item has no external id.
var ErrExternalIDRequired = errors.New("institution external_id is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("institutions")}
}

// BatchResult summarizes one UpsertBatch call.
type BatchResult struct {
	Inserted  int64
	Matched   int64
	Modified  int64
	Conflicts int // items rejected by a unique index (usually national_code)
}

// Written is the number of items that landed in the mirror.
func (r BatchResult) Written() int64 { return r.Inserted + r.Matched }

// UpsertBatch writes items keyed by their immutable ExternalID. Existing
// records keep their _id and created_at. Items that collide with another
// record on a unique key are counted as conflicts and skipped; the rest of
// the batch still lands.
func (s *Store) UpsertBatch(ctx context.Context, sourceKey string, items []models.Institution, at time.Time) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, nil
	}
	at = at.UTC()

	writes := make([]mongo.WriteModel, 0, len(items))
	for _, it := range items {
		extID := strings.TrimSpace(it.ExternalID)
		if extID == "" {
			return BatchResult{}, ErrExternalIDRequired
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"external_id": extID}).
			SetUpdate(upsertDoc(sourceKey, it, at)).
			SetUpsert(true))
	}

	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	var out BatchResult
	if res != nil {
		out.Inserted = res.UpsertedCount
		out.Matched = res.MatchedCount
		out.Modified = res.ModifiedCount
	}
	if err == nil {
		return out, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return out, err
	}
	for _, we := range bwe.WriteErrors {
		if !isDupCode(we.Code) {
			return out, err
		}
		out.Conflicts++
	}
	return out, nil
}

func upsertDoc(sourceKey string, it models.Institution, at time.Time) bson.M {
	set := bson.M{
		"name":       it.Name,
		"name_ci":    text.Fold(it.Name),
		"source_key": sourceKey,
		"synced_at":  at,
		"updated_at": at,
	}
	unset := bson.M{}
	optional := []struct {
		field, value string
	}{
		{"national_code", it.NationalCode},
		{"short_name", it.ShortName},
		{"kind", it.Kind},
		{"city", it.City},
		{"region", it.Region},
		{"country", it.Country},
		{"website", it.Website},
		{"parent_external_id", it.ParentExternalID},
		{"status", it.Status},
	}
	for _, f := range optional {
		if v := strings.TrimSpace(f.value); v != "" {
			set[f.field] = v
		} else {
			unset[f.field] = ""
		}
	}

	doc := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": at,
		},
	}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}

func isDupCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

// GetByExternalID returns mongo.ErrNoDocuments when the record is not mirrored.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (models.Institution, error) {
	var inst models.Institution
	if err := s.c.FindOne(ctx, bson.M{"external_id": strings.TrimSpace(externalID)}).Decode(&inst); err != nil {
		return models.Institution{}, err
	}
	return inst, nil
}

// Count returns the number of mirrored records for sourceKey, or all
// records when sourceKey is empty.
func (s *Store) Count(ctx context.Context, sourceKey string) (int64, error) {
	filter := bson.M{}
	if sourceKey != "" {
		filter["source_key"] = sourceKey
	}
	return s.c.CountDocuments(ctx, filter)
}

// Page is one keyset page of Search results, ordered by name.
type Page struct {
	Items      []models.Institution
	HasPrev    bool
	HasNext    bool
	PrevCursor string
	NextCursor string
}

// Search matches q as a case-folded name prefix. An empty q lists everything.
func (s *Store) Search(ctx context.Context, q string, ks paging.Keyset) (Page, error) {
	conds := []bson.M{}
	if folded := text.Fold(strings.TrimSpace(q)); folded != "" {
		conds = append(conds, bson.M{"name_ci": bson.M{"$regex": "^" + regexp.QuoteMeta(folded)}})
	}
	if w := ks.Window("name_ci"); w != nil {
		conds = append(conds, w)
	}
	filter := bson.M{}
	switch len(conds) {
	case 0:
	case 1:
		filter = conds[0]
	default:
		filter = bson.M{"$and": conds}
	}

	find := options.Find()
	ks.ApplyToFind(find, "name_ci")

	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Institution
	if err := cur.All(ctx, &rows); err != nil {
		return Page{}, err
	}
	if rows == nil {
		rows = []models.Institution{}
	}

	res := paging.TrimPage(&rows, ks)
	prev, next := paging.BuildCursors(rows,
		func(i models.Institution) string { return i.NameCI },
		func(i models.Institution) primitive.ObjectID { return i.ID })

	page := Page{Items: rows, HasPrev: res.HasPrev, HasNext: res.HasNext}
	if res.HasPrev {
		page.PrevCursor = prev
	}
	if res.HasNext {
		page.NextCursor = next
	}
	return page, nil
}
