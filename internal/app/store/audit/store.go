// internal/app/store/audit/store.go
package audit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// DefaultLimit bounds Query when the caller gives no limit.
const DefaultLimit = 100

// MaxLimit is the hard upper bound on a single Query.
const MaxLimit = 1000

var ErrBadAction = errors.New(`action must be "create", "update" or "delete"`)

// Entry is one immutable mutation record. Store has no update or delete.
type Entry struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ActorID    primitive.ObjectID  `bson:"actor_id" json:"actor_id"`
	Action     string              `bson:"action" json:"action"`
	EntityType string              `bson:"entity_type" json:"entity_type"`
	EntityID   string              `bson:"entity_id" json:"entity_id"`
	ProjectID  *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Timestamp  time.Time           `bson:"timestamp" json:"timestamp"`
	Metadata   map[string]string   `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// QueryFilter defines filters for querying entries.
type QueryFilter struct {
	ProjectID  *primitive.ObjectID
	ActorID    *primitive.ObjectID
	EntityType string
	EntityID   string
	Action     string
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64
}

// Store manages audit log entries.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_log")}
}

// Append inserts an entry and returns it with its ID and timestamp filled in.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	switch e.Action {
	case ActionCreate, ActionUpdate, ActionDelete:
	default:
		return Entry{}, ErrBadAction
	}
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func buildQuery(f QueryFilter) bson.M {
	query := bson.M{}
	if f.ProjectID != nil {
		query["project_id"] = *f.ProjectID
	}
	if f.ActorID != nil {
		query["actor_id"] = *f.ActorID
	}
	if f.EntityType != "" {
		query["entity_type"] = f.EntityType
	}
	if f.EntityID != "" {
		query["entity_id"] = f.EntityID
	}
	if f.Action != "" {
		query["action"] = f.Action
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query returns entries matching the filter, newest first.
// Ties on timestamp fall back to _id so the order is stable.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(f.Offset)

	cur, err := s.c.Find(ctx, buildQuery(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of entries matching the filter.
func (s *Store) Count(ctx context.Context, f QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(f))
}

// ForEntity returns the newest entries for one entity.
func (s *Store) ForEntity(ctx context.Context, entityType, entityID string, limit int64) ([]Entry, error) {
	return s.Query(ctx, QueryFilter{EntityType: entityType, EntityID: entityID, Limit: limit})
}
