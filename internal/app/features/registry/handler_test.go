package registry_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/registry"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/app/system/registrysync"
	"github.com/yovalentych/research-os-sub002/internal/testutil"
	"go.uber.org/zap"
)

type fakeController struct {
	intervals map[string]int
	triggers  []bool
	keys      []string
	result    registrysync.Result
	ctxErr    error
}

func newFake() *fakeController {
	return &fakeController{intervals: map[string]int{}}
}

func (f *fakeController) SyncInfo(_ context.Context, key string) (registrysync.Info, error) {
	days := f.intervals[key]
	if days == 0 {
		days = 7
	}
	return registrysync.Info{Key: key, IntervalDays: days, DueForSync: true}, nil
}

func (f *fakeController) SetInterval(_ context.Context, key string, days int) error {
	if !registrysync.ValidInterval(days) {
		return apperr.E(apperr.KindInvalidArgument, "fake", "bad interval", nil)
	}
	f.intervals[key] = days
	return nil
}

func (f *fakeController) TriggerSync(ctx context.Context, key string, force bool) (registrysync.Result, error) {
	f.keys = append(f.keys, key)
	f.triggers = append(f.triggers, force)
	f.ctxErr = ctx.Err()
	return f.result, nil
}

func router(t *testing.T, fc *fakeController) chi.Router {
	t.Helper()
	sm, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return registry.Routes(registry.NewHandler(fc, []string{"edbo", "ror"}, zap.NewNop()), sm)
}

func serve(r http.Handler, req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_ElevatedOnly(t *testing.T) {
	r := router(t, newFake())

	tests := []struct {
		name string
		user *testutil.TestUser
		want int
	}{
		{"signed out", nil, http.StatusUnauthorized},
		{"collaborator", ptr(testutil.CollaboratorUser()), http.StatusForbidden},
		{"viewer", ptr(testutil.ViewerUser()), http.StatusForbidden},
		{"supervisor", ptr(testutil.SupervisorUser()), http.StatusOK},
		{"owner", ptr(testutil.OwnerUser()), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, "/edbo")
			if tc.user != nil {
				req = testutil.WithUser(req, *tc.user)
			}
			serve(r, req).AssertStatus(t, tc.want)
		})
	}
}

func TestServeList(t *testing.T) {
	r := router(t, newFake())
	rec := serve(r, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.OwnerUser()))
	rec.AssertStatus(t, http.StatusOK)

	var got []registrysync.Info
	rec.DecodeJSON(t, &got)
	if len(got) != 2 || got[0].Key != "edbo" || got[1].Key != "ror" {
		t.Errorf("sources: got %+v, want edbo and ror", got)
	}
}

func TestHandleSync(t *testing.T) {
	fc := newFake()
	fc.result = registrysync.Result{Outcome: registrysync.OutcomeFailed, RunID: "r1", Message: "upstream error"}
	r := router(t, fc)

	rec := serve(r, testutil.NewAuthenticatedRequest(http.MethodPost, "/edbo/sync?force=true", testutil.OwnerUser()))
	rec.AssertStatus(t, http.StatusOK)
	var res registrysync.Result
	rec.DecodeJSON(t, &res)
	if res.Outcome != registrysync.OutcomeFailed {
		t.Errorf("outcome: got %q, want %q", res.Outcome, registrysync.OutcomeFailed)
	}

	serve(r, testutil.NewAuthenticatedRequest(http.MethodPost, "/edbo/sync", testutil.OwnerUser())).
		AssertStatus(t, http.StatusOK)
	if len(fc.triggers) != 2 || !fc.triggers[0] || fc.triggers[1] {
		t.Errorf("force flags: got %v, want [true false]", fc.triggers)
	}

	serve(r, testutil.NewAuthenticatedRequest(http.MethodPost, "/edbo/sync?force=maybe", testutil.OwnerUser())).
		AssertStatus(t, http.StatusBadRequest)
	if len(fc.triggers) != 2 {
		t.Errorf("a bad force flag must not trigger a sync")
	}
}

func TestHandleSync_DetachedFromClient(t *testing.T) {
	fc := newFake()
	fc.result = registrysync.Result{Outcome: registrysync.OutcomeSynced}
	r := router(t, fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/edbo/sync", testutil.OwnerUser()).WithContext(ctx)
	req = testutil.WithUser(req, testutil.OwnerUser())
	serve(r, req)

	if fc.ctxErr != nil {
		t.Errorf("sync context: got %v, want it detached from the request", fc.ctxErr)
	}
}

func TestHandleInterval(t *testing.T) {
	fc := newFake()
	r := router(t, fc)

	rec := serve(r, testutil.NewJSONRequest(http.MethodPut, "/edbo/interval", map[string]int{"interval_days": 1}, testutil.OwnerUser()))
	rec.AssertStatus(t, http.StatusOK)
	var in registrysync.Info
	rec.DecodeJSON(t, &in)
	if in.IntervalDays != 1 {
		t.Errorf("interval: got %d, want 1", in.IntervalDays)
	}

	serve(r, testutil.NewJSONRequest(http.MethodPut, "/edbo/interval", map[string]int{"interval_days": 3}, testutil.OwnerUser())).
		AssertStatus(t, http.StatusBadRequest)
	if fc.intervals["edbo"] != 1 {
		t.Errorf("rejected interval changed the stored value to %d", fc.intervals["edbo"])
	}
}

func TestRoutes_UnconfiguredSourceIsNotFound(t *testing.T) {
	fc := newFake()
	r := router(t, fc)

	owner := testutil.OwnerUser()
	serve(r, testutil.NewAuthenticatedRequest(http.MethodGet, "/crossref", owner)).
		AssertStatus(t, http.StatusNotFound)
	serve(r, testutil.NewAuthenticatedRequest(http.MethodPost, "/crossref/sync?force=true", owner)).
		AssertStatus(t, http.StatusNotFound)
	serve(r, testutil.NewJSONRequest(http.MethodPut, "/crossref/interval", map[string]int{"interval_days": 1}, owner)).
		AssertStatus(t, http.StatusNotFound)

	if len(fc.triggers) != 0 || len(fc.intervals) != 0 {
		t.Errorf("unconfigured source reached the controller: triggers=%v intervals=%v", fc.triggers, fc.intervals)
	}

	serve(r, testutil.NewAuthenticatedRequest(http.MethodPost, "/EDBO/sync", owner)).
		AssertStatus(t, http.StatusOK)
	if len(fc.keys) != 1 || fc.keys[0] != "edbo" {
		t.Errorf("keys: got %v, want [edbo]", fc.keys)
	}
}

func ptr[T any](v T) *T { return &v }
