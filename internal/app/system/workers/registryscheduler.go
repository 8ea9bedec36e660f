// internal/app/system/workers/registryscheduler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/registrysync"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Syncer is the part of the registry sync controller the scheduler drives.
type Syncer interface {
	TriggerSync(ctx context.Context, key string, force bool) (registrysync.Result, error)
}

// RegistryScheduler is a background worker that periodically asks the sync
// controller to refresh every configured source. The controller decides
// whether a source is due; the scheduler never forces.
type RegistryScheduler struct {
	syncer   Syncer
	log      *zap.Logger
	keys     []string
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewRegistryScheduler creates a new scheduler.
//
// Parameters:
//   - syncer: the registry sync controller
//   - logger: zap logger for logging
//   - keys: registry source keys to check
//   - interval: how often to check (e.g., 1 hour)
func NewRegistryScheduler(syncer Syncer, logger *zap.Logger, keys []string, interval time.Duration) *RegistryScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RegistryScheduler{
		syncer:   syncer,
		log:      logger,
		keys:     keys,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one check immediately and then one per interval.
func (w *RegistryScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("registry scheduler started",
		zap.Duration("interval", w.interval),
		zap.Strings("keys", w.keys))
}

// Stop signals the worker to stop, cancels an in-flight check, and waits
// for it to finish. It is safe to call more than once.
func (w *RegistryScheduler) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		w.log.Info("registry scheduler stopped")
	})
}

func (w *RegistryScheduler) run(ctx context.Context) {
	defer w.wg.Done()

	w.CheckAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.CheckAll(ctx)
		}
	}
}

// CheckAll triggers every key concurrently and waits for all of them.
// Failures are logged; one key failing never stops the others.
func (w *RegistryScheduler) CheckAll(ctx context.Context) {
	var g errgroup.Group
	for _, key := range w.keys {
		g.Go(func() error {
			res, err := w.syncer.TriggerSync(ctx, key, false)
			if err != nil {
				w.log.Error("registry check failed", zap.String("key", key), zap.Error(err))
				return nil
			}
			switch res.Outcome {
			case registrysync.OutcomeSynced:
				w.log.Info("registry source refreshed",
					zap.String("key", key),
					zap.String("run_id", res.RunID),
					zap.Int("processed", res.Processed))
			case registrysync.OutcomeFailed:
				w.log.Warn("registry source refresh failed",
					zap.String("key", key),
					zap.String("run_id", res.RunID),
					zap.String("message", res.Message))
			default:
				w.log.Debug("registry source skipped",
					zap.String("key", key),
					zap.String("outcome", string(res.Outcome)))
			}
			return nil
		})
	}
	_ = g.Wait()
}
