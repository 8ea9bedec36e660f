package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "", "", time.Hour, true, zap.NewNop()); err == nil {
		t.Error("secure mode with empty key should fail")
	}
	if _, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop()); err != nil {
		t.Errorf("dev mode with empty key should generate one: %v", err)
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)
	req := withTestUser(httptest.NewRequest(http.MethodGet, "/projects", nil), "viewer")
	rec := httptest.NewRecorder()
	sm.RequireSignedIn(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestSessionManager(t)
	mw := sm.RequireRole("owner", "Supervisor")

	tests := []struct {
		name string
		role string
		want int
	}{
		{"no user", "", http.StatusUnauthorized},
		{"wrong role", "viewer", http.StatusForbidden},
		{"allowed role", "owner", http.StatusOK},
		{"case insensitive", "SUPERVISOR", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/registry/x", nil)
			if tc.role != "" {
				req = withTestUser(req, tc.role)
			}
			rec := httptest.NewRecorder()
			mw(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	if _, ok := auth.CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Error("expected no user")
	}
}

type stubFetcher struct {
	user *auth.SessionUser
	seen string
}

func (f *stubFetcher) FetchUser(_ context.Context, id string) *auth.SessionUser {
	f.seen = id
	return f.user
}

func TestSignIn_RoundTripRefreshesRole(t *testing.T) {
	sm := newTestSessionManager(t)
	id := primitive.NewObjectID().Hex()

	rec := httptest.NewRecorder()
	if err := sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/", nil), auth.SessionUser{
		ID: id, Name: "Iryna", Email: "iryna@example.com", Role: "viewer",
	}); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	// The stored role is "viewer"; the fetcher reports a promotion.
	fetcher := &stubFetcher{user: &auth.SessionUser{ID: id, Name: "Iryna", Role: "supervisor"}}
	sm.SetUserFetcher(fetcher)

	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)

	if fetcher.seen != id {
		t.Errorf("fetcher saw %q, want %q", fetcher.seen, id)
	}
	if got == nil || got.Role != "supervisor" {
		t.Errorf("role after refresh: got %+v, want supervisor", got)
	}
}

func TestLoadSessionUser_FetcherRejectsUser(t *testing.T) {
	sm := newTestSessionManager(t)
	rec := httptest.NewRecorder()
	_ = sm.SignIn(rec, httptest.NewRequest(http.MethodPost, "/", nil), auth.SessionUser{ID: "x", Role: "owner"})
	sm.SetUserFetcher(&stubFetcher{user: nil})

	signedIn := true
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	if signedIn {
		t.Error("a user the fetcher rejects must not be signed in")
	}
}

func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:   primitive.NewObjectID().Hex(),
		Name: "Test User",
		Role: role,
	})
}
