package members_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/members"
	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
	membershipstore "github.com/yovalentych/research-os-sub002/internal/app/store/memberships"
	projectstore "github.com/yovalentych/research-os-sub002/internal/app/store/projects"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auth"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/versioning"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"github.com/yovalentych/research-os-sub002/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	router      chi.Router
	fixtures    *testutil.Fixtures
	memberships *membershipstore.Store
	audit       *audit.Store
	versions    *fieldversionstore.Store
	ctx         context.Context

	owner   models.User
	project models.Project
}

func setup(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	ps := projectstore.New(db)
	ms := membershipstore.New(db)
	as := audit.New(db)
	fvs := fieldversionstore.New(db)
	resolver := authz.NewResolver(ps, ms, authz.Participants(ps, ms), nil)
	recorder := auditlog.New(as, versioning.NewTracker(fvs, nil), zap.NewNop(), auditlog.Config{})
	sm, err := auth.NewSessionManager("", "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	// Mounted the way bootstrap mounts it, so {projectID} comes from the parent.
	r := chi.NewRouter()
	r.Mount("/projects/{projectID}/members", members.Routes(members.NewHandler(ms, resolver, recorder, zap.NewNop()), sm))

	fx := testutil.NewFixtures(t, db)
	owner := fx.CreateCollaborator(ctx, "Owner", "owner@example.com")
	return &env{
		router:      r,
		fixtures:    fx,
		memberships: ms,
		audit:       as,
		versions:    fvs,
		ctx:         ctx,
		owner:       owner,
		project:     fx.CreateProject(ctx, "Pollinator census", owner.ID, models.VisibilityPrivate),
	}
}

func (e *env) path(suffix string) string {
	return "/projects/" + e.project.ID.Hex() + "/members" + suffix
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleAdd_OwnerAddsMember(t *testing.T) {
	e := setup(t)
	u := e.fixtures.CreateViewer(e.ctx, "Petro", "petro@example.com")

	rec := e.do(testutil.NewJSONRequest(http.MethodPost, e.path(""), map[string]string{
		"user_id": u.ID.Hex(),
		"role":    "Collaborator",
	}, testutil.FromModel(e.owner)))
	rec.AssertStatus(t, http.StatusCreated)

	var m models.ProjectMembership
	rec.DecodeJSON(t, &m)
	if m.Role != models.ProjectRoleCollaborator {
		t.Errorf("role: got %q, want %q", m.Role, models.ProjectRoleCollaborator)
	}
	if m.InvitedBy != e.owner.ID {
		t.Errorf("invited_by: got %s, want %s", m.InvitedBy.Hex(), e.owner.ID.Hex())
	}

	entries, err := e.audit.ForEntity(e.ctx, members.EntityType, m.ID.Hex(), 0)
	if err != nil {
		t.Fatalf("ForEntity: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionCreate {
		t.Fatalf("audit: got %+v, want one create", entries)
	}
	if entries[0].Metadata["user_id"] != u.ID.Hex() {
		t.Errorf("metadata user_id: got %q, want %q", entries[0].Metadata["user_id"], u.ID.Hex())
	}
}

func TestHandleAdd_Validation(t *testing.T) {
	e := setup(t)
	u := e.fixtures.CreateViewer(e.ctx, "Petro", "petro@example.com")
	e.fixtures.CreateMembership(e.ctx, e.project.ID, u.ID, models.ProjectRoleViewer)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"malformed user id", map[string]string{"user_id": "x", "role": "viewer"}, http.StatusBadRequest},
		{"bad role", map[string]string{"user_id": u.ID.Hex(), "role": "owner"}, http.StatusBadRequest},
		{"duplicate", map[string]string{"user_id": u.ID.Hex(), "role": "collaborator"}, http.StatusBadRequest},
		{"owner", map[string]string{"user_id": e.owner.ID.Hex(), "role": "viewer"}, http.StatusBadRequest},
		{"unknown user", map[string]string{"user_id": primitive.NewObjectID().Hex(), "role": "viewer"}, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(testutil.NewJSONRequest(http.MethodPost, e.path(""), tc.body, testutil.FromModel(e.owner)))
			rec.AssertStatus(t, tc.want)
		})
	}

	m, err := e.memberships.Get(e.ctx, e.project.ID, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Role != models.ProjectRoleViewer {
		t.Errorf("duplicate add overwrote role: got %q", m.Role)
	}
}

func TestManageMembers_Permissions(t *testing.T) {
	e := setup(t)
	collab := e.fixtures.CreateCollaborator(e.ctx, "Collab", "collab@example.com")
	target := e.fixtures.CreateViewer(e.ctx, "Target", "target@example.com")
	e.fixtures.CreateMembership(e.ctx, e.project.ID, collab.ID, models.ProjectRoleCollaborator)

	body := map[string]string{"user_id": target.ID.Hex(), "role": "viewer"}
	tests := []struct {
		name string
		user testutil.TestUser
		want int
	}{
		{"collaborator cannot manage", testutil.FromModel(collab), http.StatusForbidden},
		{"stranger cannot see project", testutil.ViewerUser(), http.StatusForbidden},
		{"mentor is elevated", testutil.TestUser{ID: primitive.NewObjectID().Hex(), Role: models.RoleMentor}, http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(testutil.NewJSONRequest(http.MethodPost, e.path(""), body, tc.user))
			rec.AssertStatus(t, tc.want)
		})
	}
}

func TestHandleSetRole_RecordsVersion(t *testing.T) {
	e := setup(t)
	u := e.fixtures.CreateViewer(e.ctx, "Petro", "petro@example.com")
	m := e.fixtures.CreateMembership(e.ctx, e.project.ID, u.ID, models.ProjectRoleViewer)

	rec := e.do(testutil.NewJSONRequest(http.MethodPut, e.path("/"+u.ID.Hex()),
		map[string]string{"role": "collaborator"}, testutil.FromModel(e.owner)))
	rec.AssertStatus(t, http.StatusOK)

	versions, err := e.versions.ListForEntity(e.ctx, members.EntityType, m.ID.Hex(), "", 0)
	if err != nil {
		t.Fatalf("ListForEntity: %v", err)
	}
	if len(versions) != 1 || versions[0].FieldPath != "role" {
		t.Fatalf("versions: got %+v, want one role change", versions)
	}
	if v, _ := versions[0].NewValue.Str(); v != models.ProjectRoleCollaborator {
		t.Errorf("new role: got %q, want %q", v, models.ProjectRoleCollaborator)
	}

	rec = e.do(testutil.NewJSONRequest(http.MethodPut, e.path("/"+primitive.NewObjectID().Hex()),
		map[string]string{"role": "viewer"}, testutil.FromModel(e.owner)))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleRemove(t *testing.T) {
	e := setup(t)
	u := e.fixtures.CreateViewer(e.ctx, "Petro", "petro@example.com")
	m := e.fixtures.CreateMembership(e.ctx, e.project.ID, u.ID, models.ProjectRoleViewer)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, e.path("/"+u.ID.Hex()), testutil.FromModel(e.owner)))
	rec.AssertStatus(t, http.StatusNoContent)

	if _, err := e.memberships.Get(e.ctx, e.project.ID, u.ID); err != mongo.ErrNoDocuments {
		t.Errorf("membership after remove: got %v, want mongo.ErrNoDocuments", err)
	}
	entries, err := e.audit.ForEntity(e.ctx, members.EntityType, m.ID.Hex(), 0)
	if err != nil {
		t.Fatalf("ForEntity: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionDelete {
		t.Errorf("audit: got %+v, want one delete", entries)
	}

	// The removed member loses access immediately.
	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodGet, e.path(""), testutil.FromModel(u)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, e.path("/"+u.ID.Hex()), testutil.FromModel(e.owner)))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList(t *testing.T) {
	e := setup(t)
	a := e.fixtures.CreateViewer(e.ctx, "A", "a@example.com")
	b := e.fixtures.CreateViewer(e.ctx, "B", "b@example.com")
	e.fixtures.CreateMembership(e.ctx, e.project.ID, a.ID, models.ProjectRoleViewer)
	e.fixtures.CreateMembership(e.ctx, e.project.ID, b.ID, models.ProjectRoleCollaborator)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, e.path(""), testutil.FromModel(a)))
	rec.AssertStatus(t, http.StatusOK)

	var resp members.ListResponse
	rec.DecodeJSON(t, &resp)
	if len(resp.Members) != 2 {
		t.Errorf("members: got %d, want 2", len(resp.Members))
	}
	if resp.OwnerID != e.owner.ID {
		t.Errorf("owner: got %s, want %s", resp.OwnerID.Hex(), e.owner.ID.Hex())
	}
}
