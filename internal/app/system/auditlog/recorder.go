// internal/app/system/auditlog/recorder.go
package auditlog

import (
	"context"
	"strings"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/metrics"
	"github.com/yovalentych/research-os-sub002/internal/app/system/versioning"
	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config holds audit recording configuration.
type Config struct {
	// MirrorToLog also writes every recorded event to the structured log.
	MirrorToLog bool
}

// Target identifies the entity a mutation touched.
type Target struct {
	EntityType string
	EntityID   string
	ProjectID  *primitive.ObjectID
	Metadata   map[string]string
}

// EntryWriter appends audit entries.
type EntryWriter interface {
	Append(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// VersionTracker records field-level deltas for an update.
type VersionTracker interface {
	DiffAndRecord(ctx context.Context, entityType, entityID string, changedBy primitive.ObjectID,
		previous, next snapshot.Snapshot, opts ...versioning.Option) ([]fieldversionstore.Version, error)
}

// UpdateResult is what RecordUpdate managed to write.
type UpdateResult struct {
	Entry    audit.Entry
	Versions []fieldversionstore.Version
}

// Recorder appends one audit entry per mutation and, for updates, hands the
// snapshots to the field version tracker.
type Recorder struct {
	entries  EntryWriter
	versions VersionTracker
	zapLog   *zap.Logger
	config   Config
	metrics  *metrics.Metrics
	clock    *Clock
}

// RecorderOption adjusts a Recorder.
type RecorderOption func(*Recorder)

// WithClock replaces the process-wide clock (tests).
func WithClock(c *Clock) RecorderOption {
	return func(r *Recorder) { r.clock = c }
}

// WithMetrics counts audit writes.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// New creates a Recorder.
func New(entries EntryWriter, versions VersionTracker, zapLog *zap.Logger, config Config, opts ...RecorderOption) *Recorder {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	r := &Recorder{
		entries:  entries,
		versions: versions,
		zapLog:   zapLog,
		config:   config,
		clock:    processClock,
	}
	for _, fn := range opts {
		fn(r)
	}
	return r
}

// RecordCreate appends a create entry.
func (r *Recorder) RecordCreate(ctx context.Context, actor authz.Actor, t Target) error {
	_, err := r.append(ctx, "auditlog.RecordCreate", audit.ActionCreate, actor, t)
	return err
}

// RecordDelete appends a delete entry.
func (r *Recorder) RecordDelete(ctx context.Context, actor authz.Actor, t Target) error {
	_, err := r.append(ctx, "auditlog.RecordDelete", audit.ActionDelete, actor, t)
	return err
}

// RecordUpdate appends an update entry and records field versions for every
// key of next that differs from previous. Both writes are always attempted;
// any failures come back combined as one StorageFailure. The caller's
// mutation has already happened and is never rolled back.
func (r *Recorder) RecordUpdate(ctx context.Context, actor authz.Actor, t Target, previous, next snapshot.Snapshot) (UpdateResult, error) {
	const op = "auditlog.RecordUpdate"
	if err := validate(op, t); err != nil {
		return UpdateResult{}, err
	}
	at := r.clock.Now()

	var res UpdateResult
	var errs error

	entry, err := r.write(ctx, audit.ActionUpdate, actor, t, at)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else {
		res.Entry = entry
	}

	opts := []versioning.Option{versioning.At(at)}
	if !entry.ID.IsZero() {
		opts = append(opts, versioning.WithAuditID(entry.ID))
	}
	versions, err := r.versions.DiffAndRecord(ctx, t.EntityType, t.EntityID, actor.ID, previous, next, opts...)
	res.Versions = versions
	if err != nil {
		errs = multierr.Append(errs, err)
		r.zapLog.Error("failed to store field versions",
			zap.String("entity_type", t.EntityType),
			zap.String("entity_id", t.EntityID),
			zap.Int("versions", len(versions)),
			zap.Error(err))
	}

	if errs != nil {
		return res, apperr.E(apperr.KindStorageFailure, op, "audit trail incomplete", errs)
	}
	return res, nil
}

func (r *Recorder) append(ctx context.Context, op, action string, actor authz.Actor, t Target) (audit.Entry, error) {
	if err := validate(op, t); err != nil {
		return audit.Entry{}, err
	}
	e, err := r.write(ctx, action, actor, t, r.clock.Now())
	if err != nil {
		return audit.Entry{}, apperr.E(apperr.KindStorageFailure, op, "audit trail incomplete", err)
	}
	return e, nil
}

func (r *Recorder) write(ctx context.Context, action string, actor authz.Actor, t Target, at time.Time) (audit.Entry, error) {
	e := audit.Entry{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: t.EntityType,
		EntityID:   t.EntityID,
		ProjectID:  t.ProjectID,
		Timestamp:  at,
		Metadata:   t.Metadata,
	}
	if r.config.MirrorToLog {
		r.logToZap(actor, e)
	}

	stored, err := r.entries.Append(ctx, e)
	r.metrics.AuditWrite("audit_log", err)
	if err != nil {
		r.zapLog.Error("failed to store audit entry",
			zap.String("action", action),
			zap.String("entity_type", t.EntityType),
			zap.String("entity_id", t.EntityID),
			zap.Error(err))
		return audit.Entry{}, err
	}
	return stored, nil
}

// logToZap logs the event with consistent structure.
func (r *Recorder) logToZap(actor authz.Actor, e audit.Entry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("entity_type", e.EntityType),
		zap.String("entity_id", e.EntityID),
		zap.String("actor_id", actor.ID.Hex()),
		zap.String("actor_role", actor.Role),
		zap.Time("timestamp", e.Timestamp),
	}
	if e.ProjectID != nil {
		fields = append(fields, zap.String("project_id", e.ProjectID.Hex()))
	}
	for k, v := range e.Metadata {
		fields = append(fields, zap.String("meta_"+k, v))
	}
	r.zapLog.Info("audit event", fields...)
}

func validate(op string, t Target) error {
	if strings.TrimSpace(t.EntityType) == "" || strings.TrimSpace(t.EntityID) == "" {
		return apperr.E(apperr.KindInvalidArgument, op, "entity type and id are required", nil)
	}
	return nil
}
