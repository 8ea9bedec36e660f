// internal/app/store/registrysources/registrysourcestore.go
package registrysourcestore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrLockLost is returned by the run-scoped writes when the state row no
// longer belongs to the given run (another instance took over a stale sync).
var ErrLockLost = errors.New("registry sync lock no longer held by this run")

// Store provides access to the registry_sources collection.
// Exactly one document exists per source key.
type Store struct {
	c *mongo.Collection
}

// New creates a new registry source store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("registry_sources")}
}

// Get returns the state for key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (models.RegistrySource, bool, error) {
	var rs models.RegistrySource
	err := s.c.FindOne(ctx, bson.M{"key": key}).Decode(&rs)
	if err == mongo.ErrNoDocuments {
		return models.RegistrySource{Key: key}, false, nil
	}
	if err != nil {
		return models.RegistrySource{}, false, err
	}
	return rs, true, nil
}

// List returns every known source, ordered by key.
func (s *Store) List(ctx context.Context) ([]models.RegistrySource, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RegistrySource
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetInterval stores the refresh policy for key.
// Uses upsert so it works whether the source exists or not.
func (s *Store) SetInterval(ctx context.Context, key string, days int) error {
	update := bson.M{
		"$set": bson.M{
			"interval_days": days,
			"updated_at":    time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"_id":              primitive.NewObjectID(),
			"sync_in_progress": false,
			"sync_total":       0,
			"sync_processed":   0,
		},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"key": key}, update, options.Update().SetUpsert(true))
	if err != nil && wafflemongo.IsDup(err) {
		// Concurrent first write for the same key; the other upsert created
		// the row, so retry as a plain update.
		_, err = s.c.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": update["$set"]})
	}
	return err
}

// Acquire atomically marks key as syncing under runID. It succeeds only if
// no sync is in progress, or (when staleBefore is non-nil) the in-progress
// sync started before staleBefore. A missing row is created with
// defaultInterval. It reports whether this call obtained the lock.
func (s *Store) Acquire(ctx context.Context, key, runID string, now time.Time, staleBefore *time.Time, defaultInterval int) (bool, error) {
	now = now.UTC()
	free := bson.M{"sync_in_progress": bson.M{"$ne": true}}
	filter := bson.M{"key": key}
	if staleBefore != nil {
		filter["$or"] = bson.A{
			free,
			bson.M{"sync_started_at": bson.M{"$lt": staleBefore.UTC()}},
		}
	} else {
		filter["sync_in_progress"] = free["sync_in_progress"]
	}

	update := bson.M{
		"$set": bson.M{
			"sync_in_progress": true,
			"sync_started_at":  now,
			"sync_run_id":      runID,
			"sync_total":       0,
			"sync_processed":   0,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{
			"_id":           primitive.NewObjectID(),
			"interval_days": defaultInterval,
		},
	}

	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Err()
	switch {
	case err == nil:
		return true, nil
	case wafflemongo.IsDup(err):
		// The row exists but the filter did not match: someone holds the lock.
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) runUpdate(ctx context.Context, key, runID string, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"key": key, "sync_run_id": runID, "sync_in_progress": true}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrLockLost
	}
	return nil
}

// SetTotal records the total reported by the first upstream page.
func (s *Store) SetTotal(ctx context.Context, key, runID string, total int) error {
	return s.runUpdate(ctx, key, runID, bson.M{"$set": bson.M{
		"sync_total": total,
		"updated_at": time.Now().UTC(),
	}})
}

// AddProcessed advances the progress counter by n.
func (s *Store) AddProcessed(ctx context.Context, key, runID string, n int) error {
	return s.runUpdate(ctx, key, runID, bson.M{
		"$inc": bson.M{"sync_processed": n},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

// Complete ends the run successfully: synced_at is stamped and the last
// failure message cleared.
func (s *Store) Complete(ctx context.Context, key, runID string, at time.Time) error {
	at = at.UTC()
	return s.runUpdate(ctx, key, runID, bson.M{
		"$set": bson.M{
			"sync_in_progress": false,
			"synced_at":        at,
			"updated_at":       at,
		},
		"$unset": bson.M{"sync_message": ""},
	})
}

// Fail ends the run with msg. synced_at is left unchanged.
func (s *Store) Fail(ctx context.Context, key, runID, msg string) error {
	return s.runUpdate(ctx, key, runID, bson.M{"$set": bson.M{
		"sync_in_progress": false,
		"sync_message":     msg,
		"updated_at":       time.Now().UTC(),
	}})
}
