// internal/app/system/versioning/tracker.go
package versioning

import (
	"context"
	"time"

	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/metrics"
	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Writer persists computed versions.
type Writer interface {
	InsertMany(ctx context.Context, versions []fieldversionstore.Version) error
}

// Tracker turns a before/after pair of snapshots into field versions.
type Tracker struct {
	store   Writer
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewTracker(store Writer, m *metrics.Metrics) *Tracker {
	return &Tracker{store: store, metrics: m, now: time.Now}
}

type options struct {
	auditID *primitive.ObjectID
	at      time.Time
}

// Option adjusts one DiffAndRecord call.
type Option func(*options)

// WithAuditID links every version to the audit entry of the same update.
func WithAuditID(id primitive.ObjectID) Option {
	return func(o *options) {
		if !id.IsZero() {
			o.auditID = &id
		}
	}
}

// At stamps versions with t instead of the current time.
func At(t time.Time) Option {
	return func(o *options) { o.at = t }
}

// Diff builds one version per changed key of next, ordered by field path.
// Keys present only in previous are ignored; a caller clearing a field must
// pass it in next explicitly.
func Diff(entityType, entityID string, changedBy primitive.ObjectID, previous, next snapshot.Snapshot, at time.Time) []fieldversionstore.Version {
	changes := snapshot.Diff(previous, next)
	if len(changes) == 0 {
		return nil
	}
	at = at.UTC().Truncate(time.Millisecond)
	out := make([]fieldversionstore.Version, 0, len(changes))
	for _, c := range changes {
		out = append(out, fieldversionstore.Version{
			EntityType: entityType,
			EntityID:   entityID,
			FieldPath:  c.Path,
			OldValue:   c.Old,
			NewValue:   c.New,
			ChangedBy:  changedBy,
			ChangedAt:  at,
		})
	}
	return out
}

// DiffAndRecord writes the versions Diff produces. The computed versions
// are returned even when the write fails, alongside a StorageFailure.
func (t *Tracker) DiffAndRecord(ctx context.Context, entityType, entityID string, changedBy primitive.ObjectID, previous, next snapshot.Snapshot, opts ...Option) ([]fieldversionstore.Version, error) {
	const op = "versioning.DiffAndRecord"
	if entityType == "" || entityID == "" {
		return nil, apperr.E(apperr.KindInvalidArgument, op, "entity type and id are required", nil)
	}

	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.at.IsZero() {
		o.at = t.now()
	}

	versions := Diff(entityType, entityID, changedBy, previous, next, o.at)
	if len(versions) == 0 {
		return nil, nil
	}
	for i := range versions {
		versions[i].AuditID = o.auditID
	}

	err := t.store.InsertMany(ctx, versions)
	t.metrics.AuditWrite("field_versions", err)
	if err != nil {
		return versions, apperr.Storage(op, err)
	}
	t.metrics.FieldVersionsWritten(len(versions))
	return versions, nil
}
