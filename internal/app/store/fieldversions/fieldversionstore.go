// internal/app/store/fieldversions/fieldversionstore.go
package fieldversionstore

import (
	"context"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit bounds ListForEntity when the caller gives no limit.
const DefaultLimit = 50

// MaxLimit is the hard upper bound on ListForEntity.
const MaxLimit = 500

// Version records one field changing value in one update.
// OldValue is omitted when the field did not exist before.
type Version struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	EntityType string              `bson:"entity_type" json:"entity_type"`
	EntityID   string              `bson:"entity_id" json:"entity_id"`
	FieldPath  string              `bson:"field_path" json:"field_path"`
	OldValue   snapshot.Value      `bson:"old_value,omitempty" json:"old_value,omitzero"`
	NewValue   snapshot.Value      `bson:"new_value" json:"new_value"`
	ChangedBy  primitive.ObjectID  `bson:"changed_by" json:"changed_by"`
	ChangedAt  time.Time           `bson:"changed_at" json:"changed_at"`
	AuditID    *primitive.ObjectID `bson:"audit_id,omitempty" json:"audit_id,omitempty"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("field_versions")}
}

// InsertMany writes all versions in one round trip. IDs are assigned in
// place so callers can return the stored records.
func (s *Store) InsertMany(ctx context.Context, versions []Version) error {
	if len(versions) == 0 {
		return nil
	}
	docs := make([]interface{}, len(versions))
	for i := range versions {
		if versions[i].ID.IsZero() {
			versions[i].ID = primitive.NewObjectID()
		}
		docs[i] = versions[i]
	}
	_, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// ListForEntity returns the newest versions for one entity, optionally
// restricted to a single field.
func (s *Store) ListForEntity(ctx context.Context, entityType, entityID, fieldPath string, limit int64) ([]Version, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	filter := bson.M{"entity_type": entityType, "entity_id": entityID}
	if fieldPath != "" {
		filter["field_path"] = fieldPath
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "changed_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Version
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
