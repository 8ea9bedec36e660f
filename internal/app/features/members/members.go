// internal/app/features/members/members.go
package members

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/shared/projectscope"
	membershipstore "github.com/yovalentych/research-os-sub002/internal/app/store/memberships"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type addRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// ListResponse is the body of GET /projects/{projectID}/members.
type ListResponse struct {
	ProjectID primitive.ObjectID         `json:"project_id"`
	OwnerID   primitive.ObjectID         `json:"owner_id"`
	Members   []models.ProjectMembership `json:"members"`
}

// ServeList lists the members of a project the caller can view.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list members")
	defer cancel()

	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.View)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	list, err := h.Memberships.ListByProject(ctx, scope.Project.ID, "")
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Storage("members.List", err))
		return
	}
	if list == nil {
		list = []models.ProjectMembership{}
	}
	respond.OK(w, ListResponse{ProjectID: scope.Project.ID, OwnerID: scope.Project.OwnerID, Members: list})
}

// HandleAdd grants a user a project role.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "members.Add"
	var req addRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "invalid user id", err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add member")
	defer cancel()

	scope, err := h.manageScope(ctx, r, op)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if userID == scope.Project.OwnerID {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "the owner already has full access", nil))
		return
	}

	m, err := h.Memberships.Add(ctx, scope.Project.ID, userID, scope.Actor.ID, normalize.Role(req.Role))
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}

	err = h.Audit.RecordCreate(ctx, scope.Actor, target(m))
	projectscope.WarnAudit(w, h.Log, err, zap.String("membership_id", m.ID.Hex()))
	respond.Created(w, m)
}

// HandleSetRole changes an existing member's project role.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	const op = "members.SetRole"
	var req roleRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "invalid user id", err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set member role")
	defer cancel()

	scope, err := h.manageScope(ctx, r, op)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	before, err := h.Memberships.Get(ctx, scope.Project.ID, userID)
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	after, err := h.Memberships.SetRole(ctx, scope.Project.ID, userID, normalize.Role(req.Role))
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}

	_, err = h.Audit.RecordUpdate(ctx, scope.Actor, target(after), Snapshot(before), Snapshot(after))
	projectscope.WarnAudit(w, h.Log, err, zap.String("membership_id", after.ID.Hex()))
	respond.OK(w, after)
}

// HandleRemove revokes a user's membership.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	const op = "members.Remove"
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "invalid user id", err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove member")
	defer cancel()

	scope, err := h.manageScope(ctx, r, op)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	m, err := h.Memberships.Get(ctx, scope.Project.ID, userID)
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	removed, err := h.Memberships.Remove(ctx, scope.Project.ID, userID)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Storage(op, err))
		return
	}
	if !removed {
		// Removed concurrently; the other request recorded it.
		respond.NoContent(w)
		return
	}

	err = h.Audit.RecordDelete(ctx, scope.Actor, target(m))
	projectscope.WarnAudit(w, h.Log, err, zap.String("membership_id", m.ID.Hex()))
	respond.NoContent(w)
}

// manageScope loads the project and requires the caller to be allowed to
// change its member list.
func (h *Handler) manageScope(ctx context.Context, r *http.Request, op string) (projectscope.Scope, error) {
	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.View)
	if err != nil {
		return projectscope.Scope{}, err
	}
	if !authz.CanManageMembers(scope.Actor, scope.Project) {
		return projectscope.Scope{}, apperr.E(apperr.KindForbidden, op, "only the owner can manage members", nil)
	}
	return scope, nil
}

// Snapshot captures the mutable fields of a membership.
func Snapshot(m models.ProjectMembership) snapshot.Snapshot {
	return snapshot.Snapshot{
		"role":    snapshot.String(m.Role),
		"user_id": snapshot.String(m.UserID.Hex()),
	}
}

func target(m models.ProjectMembership) auditlog.Target {
	pid := m.ProjectID
	return auditlog.Target{
		EntityType: EntityType,
		EntityID:   m.ID.Hex(),
		ProjectID:  &pid,
		Metadata: map[string]string{
			"user_id": m.UserID.Hex(),
			"role":    m.Role,
		},
	}
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, membershipstore.ErrBadRole),
		errors.Is(err, membershipstore.ErrDuplicateMembership):
		return apperr.E(apperr.KindInvalidArgument, op, err.Error(), err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.E(apperr.KindNotFound, op, "user or membership not found", err)
	default:
		return apperr.Storage(op, err)
	}
}
