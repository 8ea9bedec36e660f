// internal/app/system/registrysync/controller.go
package registrysync

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	institutionstore "github.com/yovalentych/research-os-sub002/internal/app/store/institutions"
	registrysourcestore "github.com/yovalentych/research-os-sub002/internal/app/store/registrysources"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/metrics"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/registryclient"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.uber.org/zap"
)

// StateStore persists RegistrySource rows and the sync lock they carry.
type StateStore interface {
	Get(ctx context.Context, key string) (models.RegistrySource, bool, error)
	SetInterval(ctx context.Context, key string, days int) error
	Acquire(ctx context.Context, key, runID string, now time.Time, staleBefore *time.Time, defaultInterval int) (bool, error)
	SetTotal(ctx context.Context, key, runID string, total int) error
	AddProcessed(ctx context.Context, key, runID string, n int) error
	Complete(ctx context.Context, key, runID string, at time.Time) error
	Fail(ctx context.Context, key, runID, msg string) error
}

// Mirror stores upstream records keyed by their external id.
type Mirror interface {
	UpsertBatch(ctx context.Context, sourceKey string, items []models.Institution, at time.Time) (institutionstore.BatchResult, error)
}

// Fetcher reads one upstream page.
type Fetcher interface {
	FetchPage(ctx context.Context, key string, page int) (registryclient.Page, error)
}

// Outcome of a TriggerSync call.
type Outcome string

const (
	OutcomeSynced     Outcome = "synced"
	OutcomeNotDue     Outcome = "not_due"
	OutcomeInProgress Outcome = "in_progress"
	OutcomeFailed     Outcome = "failed"
)

// Info is the externally visible state of one source.
type Info struct {
	Key            string     `json:"key"`
	SyncedAt       *time.Time `json:"synced_at"`
	IntervalDays   int        `json:"interval_days"`
	SyncInProgress bool       `json:"sync_in_progress"`
	DueForSync     bool       `json:"due_for_sync"`
	SyncStartedAt  *time.Time `json:"sync_started_at,omitempty"`
	SyncTotal      int        `json:"sync_total"`
	SyncProcessed  int        `json:"sync_processed"`
	SyncMessage    string     `json:"sync_message,omitempty"`
	Stale          bool       `json:"stale"`
}

// Result reports what TriggerSync did. SyncedAt is the source's last
// successful sync after the call.
type Result struct {
	Outcome   Outcome    `json:"outcome"`
	SyncedAt  *time.Time `json:"synced_at"`
	RunID     string     `json:"run_id,omitempty"`
	Processed int        `json:"processed"`
	Conflicts int        `json:"conflicts"`
	Message   string     `json:"message,omitempty"`
}

// Config tunes the controller.
type Config struct {
	DefaultIntervalDays int
	// StaleAfter is how long a sync may stay in progress before a forced
	// trigger may take it over. Zero disables takeover.
	StaleAfter time.Duration
	// MaxPages guards against an upstream that never reports a last page.
	MaxPages int
}

const defaultMaxPages = 10000

// Controller serializes registry pulls per key, both inside this process
// and across instances through the state row lock.
type Controller struct {
	state   StateStore
	mirror  Mirror
	fetcher Fetcher
	log     *zap.Logger
	metrics *metrics.Metrics
	cfg     Config

	now      func() time.Time
	newRunID func() string

	mu      sync.Mutex
	running map[string]struct{}
}

// New creates a Controller. m may be nil.
func New(state StateStore, mirror Mirror, fetcher Fetcher, log *zap.Logger, m *metrics.Metrics, cfg Config) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultIntervalDays != models.RegistryIntervalDaily && cfg.DefaultIntervalDays != models.RegistryIntervalWeekly {
		cfg.DefaultIntervalDays = models.DefaultRegistryIntervalDays
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Controller{
		state:    state,
		mirror:   mirror,
		fetcher:  fetcher,
		log:      log,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		newRunID: uuid.NewString,
		running:  map[string]struct{}{},
	}
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

func checkKey(op, raw string) (string, error) {
	key := normalize.RegistryKey(raw)
	if !keyPattern.MatchString(key) {
		return "", apperr.Errorf(apperr.KindInvalidArgument, op, "invalid registry key %q", raw)
	}
	return key, nil
}

// ValidInterval reports whether days is an allowed refresh interval.
func ValidInterval(days int) bool {
	return days == models.RegistryIntervalDaily || days == models.RegistryIntervalWeekly
}

// SyncInfo reports the state of key. A source never seen before is due.
func (c *Controller) SyncInfo(ctx context.Context, key string) (Info, error) {
	const op = "registrysync.SyncInfo"
	key, err := checkKey(op, key)
	if err != nil {
		return Info{}, err
	}
	rs, exists, err := c.state.Get(ctx, key)
	if err != nil {
		return Info{}, apperr.Storage(op, err)
	}
	return c.info(key, rs, exists, c.now()), nil
}

func (c *Controller) info(key string, rs models.RegistrySource, exists bool, now time.Time) Info {
	interval := rs.IntervalDays
	if !exists || !ValidInterval(interval) {
		interval = c.cfg.DefaultIntervalDays
	}
	in := Info{
		Key:            key,
		SyncedAt:       rs.SyncedAt,
		IntervalDays:   interval,
		SyncInProgress: rs.SyncInProgress,
		SyncStartedAt:  rs.SyncStartedAt,
		SyncTotal:      rs.SyncTotal,
		SyncProcessed:  rs.SyncProcessed,
		SyncMessage:    rs.SyncMessage,
	}
	in.DueForSync = !exists || rs.SyncedAt == nil ||
		now.Sub(*rs.SyncedAt) >= time.Duration(interval)*24*time.Hour
	in.Stale = rs.SyncInProgress && c.cfg.StaleAfter > 0 &&
		(rs.SyncStartedAt == nil || now.Sub(*rs.SyncStartedAt) > c.cfg.StaleAfter)
	return in
}

// SetInterval stores the refresh policy. Only 1 and 7 days are accepted.
func (c *Controller) SetInterval(ctx context.Context, key string, days int) error {
	const op = "registrysync.SetInterval"
	key, err := checkKey(op, key)
	if err != nil {
		return err
	}
	if !ValidInterval(days) {
		return apperr.Errorf(apperr.KindInvalidArgument, op, "interval must be %d or %d days, got %d",
			models.RegistryIntervalDaily, models.RegistryIntervalWeekly, days)
	}
	if err := c.state.SetInterval(ctx, key, days); err != nil {
		return apperr.Storage(op, err)
	}
	c.log.Info("registry interval updated", zap.String("key", key), zap.Int("interval_days", days))
	return nil
}

// TriggerSync pulls key when it is due, or unconditionally with force. A
// sync already running for key, here or on another instance, is never
// joined or restarted: the call returns OutcomeInProgress. With force, a
// sync in progress longer than StaleAfter is taken over.
//
// Upstream and mirror failures are recorded on the source and reported as
// OutcomeFailed; the returned error is reserved for invalid input and
// failures to read or lock the state row.
func (c *Controller) TriggerSync(ctx context.Context, key string, force bool) (Result, error) {
	const op = "registrysync.TriggerSync"
	key, err := checkKey(op, key)
	if err != nil {
		return Result{}, err
	}

	if !c.enter(key) {
		rs, _, err := c.state.Get(ctx, key)
		if err != nil {
			c.log.Warn("could not read state of running registry sync",
				zap.String("key", key), zap.Error(err))
		}
		c.metrics.SyncRun(key, string(OutcomeInProgress), 0)
		return Result{Outcome: OutcomeInProgress, SyncedAt: rs.SyncedAt}, nil
	}
	defer c.leave(key)

	now := c.now()
	rs, exists, err := c.state.Get(ctx, key)
	if err != nil {
		return Result{}, apperr.Storage(op, err)
	}
	in := c.info(key, rs, exists, now)

	if !force && !in.DueForSync {
		c.metrics.SyncRun(key, string(OutcomeNotDue), 0)
		return Result{Outcome: OutcomeNotDue, SyncedAt: in.SyncedAt}, nil
	}
	takeover := force && in.Stale
	if in.SyncInProgress && !takeover {
		c.metrics.SyncRun(key, string(OutcomeInProgress), 0)
		return Result{Outcome: OutcomeInProgress, SyncedAt: in.SyncedAt}, nil
	}

	runID := c.newRunID()
	var staleBefore *time.Time
	if takeover {
		t := now.Add(-c.cfg.StaleAfter)
		staleBefore = &t
	}
	ok, err := c.state.Acquire(ctx, key, runID, now, staleBefore, c.cfg.DefaultIntervalDays)
	if err != nil {
		return Result{}, apperr.Storage(op, err)
	}
	if !ok {
		c.metrics.SyncRun(key, string(OutcomeInProgress), 0)
		return Result{Outcome: OutcomeInProgress, SyncedAt: in.SyncedAt}, nil
	}

	log := c.log.With(zap.String("key", key), zap.String("run_id", runID))
	if takeover {
		log.Warn("taking over stale registry sync", zap.Timep("previous_started_at", in.SyncStartedAt))
	}
	log.Info("registry sync started", zap.Bool("force", force))

	res := c.run(ctx, log, key, runID)
	res.RunID = runID
	if res.Outcome == OutcomeFailed {
		res.SyncedAt = in.SyncedAt
	}
	c.metrics.SyncRun(key, string(res.Outcome), c.now().Sub(now))
	return res, nil
}

func (c *Controller) enter(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.running[key]; busy {
		return false
	}
	c.running[key] = struct{}{}
	return true
}

func (c *Controller) leave(key string) {
	c.mu.Lock()
	delete(c.running, key)
	c.mu.Unlock()
}

// run streams every upstream page into the mirror and closes the run.
func (c *Controller) run(parent context.Context, log *zap.Logger, key, runID string) Result {
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Sync(), log, "registry sync")
	defer cancel()

	var res Result
	err := c.pull(ctx, log, key, runID, &res)
	if err == nil {
		at := c.now().UTC().Truncate(time.Millisecond)
		err = c.state.Complete(ctx, key, runID, at)
		if err == nil {
			res.Outcome = OutcomeSynced
			res.SyncedAt = &at
			log.Info("registry sync finished",
				zap.Int("processed", res.Processed),
				zap.Int("conflicts", res.Conflicts))
			return res
		}
	}

	res.Outcome = OutcomeFailed
	res.Message = summarize(err)
	log.Error("registry sync failed", zap.Int("processed", res.Processed), zap.Error(err))

	if errors.Is(err, registrysourcestore.ErrLockLost) {
		// Another run owns the row now; it will write its own outcome.
		return res
	}
	// The run context may be what failed, so close the run on a fresh one.
	fctx, fcancel := context.WithTimeout(context.WithoutCancel(parent), timeouts.Short())
	defer fcancel()
	if ferr := c.state.Fail(fctx, key, runID, res.Message); ferr != nil {
		log.Error("failed to record registry sync failure", zap.Error(ferr))
	}
	return res
}

func (c *Controller) pull(ctx context.Context, log *zap.Logger, key, runID string, res *Result) error {
	page := 1
	for n := 0; n < c.cfg.MaxPages; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := c.fetcher.FetchPage(ctx, key, page)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		if n == 0 {
			if err := c.state.SetTotal(ctx, key, runID, p.Total); err != nil {
				return fmt.Errorf("record total: %w", err)
			}
		}

		batch, err := c.mirror.UpsertBatch(ctx, key, p.Items, c.now())
		if err != nil {
			return fmt.Errorf("upsert page %d: %w", page, err)
		}
		if err := c.state.AddProcessed(ctx, key, runID, len(p.Items)); err != nil {
			return fmt.Errorf("record progress: %w", err)
		}
		res.Processed += len(p.Items)
		res.Conflicts += batch.Conflicts
		c.metrics.SyncRecords(key, len(p.Items), batch.Conflicts)
		if batch.Conflicts > 0 {
			log.Warn("registry records skipped on unique conflict",
				zap.Int("page", page), zap.Int("conflicts", batch.Conflicts))
		}

		if p.Next == 0 {
			return nil
		}
		page = p.Next
	}
	return fmt.Errorf("upstream did not finish within %d pages", c.cfg.MaxPages)
}

// summarize keeps sync_message short enough to show in a status view.
func summarize(err error) string {
	if err == nil {
		return "unknown error"
	}
	return truncate(err.Error(), maxMessageBytes)
}

const maxMessageBytes = 500

// truncate cuts msg to at most limit bytes on a rune boundary.
func truncate(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "…"
}
