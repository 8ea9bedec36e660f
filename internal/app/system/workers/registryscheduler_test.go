package workers_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/registrysync"
	"github.com/yovalentych/research-os-sub002/internal/app/system/workers"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSyncer struct {
	mu     sync.Mutex
	keys   []string
	forced bool
	fail   map[string]bool
}

func (s *recordingSyncer) TriggerSync(_ context.Context, key string, force bool) (registrysync.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	s.forced = s.forced || force
	if s.fail[key] {
		return registrysync.Result{}, errors.New("state row unavailable")
	}
	return registrysync.Result{Outcome: registrysync.OutcomeSynced}, nil
}

func (s *recordingSyncer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.keys...)
	sort.Strings(out)
	return out
}

func TestCheckAll_TriggersEveryKeyWithoutForce(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := &recordingSyncer{fail: map[string]bool{"grants": true}}
	w := workers.NewRegistryScheduler(s, zap.New(core), []string{"institutions", "grants", "journals"}, time.Hour)

	w.CheckAll(context.Background())

	got := s.seen()
	want := []string{"grants", "institutions", "journals"}
	if len(got) != len(want) {
		t.Fatalf("keys: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys: got %v, want %v", got, want)
			break
		}
	}
	if s.forced {
		t.Error("scheduled checks must not force")
	}
	if logs.FilterMessage("registry check failed").Len() != 1 {
		t.Errorf("expected one failure log, got %d", logs.FilterMessage("registry check failed").Len())
	}
}

func TestRegistryScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := &recordingSyncer{}
	w := workers.NewRegistryScheduler(s, zap.NewNop(), []string{"institutions"}, time.Hour)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.seen()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()
	w.Stop() // idempotent

	if len(s.seen()) != 1 {
		t.Errorf("checks: got %d, want 1", len(s.seen()))
	}
}
