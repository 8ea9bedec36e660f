// internal/app/features/systemusers/users.go
package systemusers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/shared/projectscope"
	userstore "github.com/yovalentych/research-os-sub002/internal/app/store/users"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/snapshot"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type roleRequest struct {
	Role string `json:"role"`
}

// ServeUser handles GET /users/{userID}.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	const op = "systemusers.Get"
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "invalid user id", err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get user")
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	respond.OK(w, u)
}

// HandleSetRole handles PUT /users/{userID}/role. Only an owner may change
// a global role, and never their own.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	const op = "systemusers.SetRole"
	actor, err := authz.ActorFromRequest(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "invalid user id", err))
		return
	}
	if !authz.CanChangeGlobalRole(actor, id) {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindForbidden, op, "only an owner may change another user's role", nil))
		return
	}
	var req roleRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	role := normalize.Role(req.Role)
	if !userstore.ValidRole(role) {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, userstore.ErrBadRole.Error(), nil))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set user role")
	defer cancel()

	before, err := h.Users.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	if err := h.Users.SetRole(ctx, id, role); err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	after := *before
	after.Role = role

	_, err = h.Audit.RecordUpdate(ctx, actor, auditlog.Target{
		EntityType: EntityType,
		EntityID:   id.Hex(),
		Metadata:   map[string]string{"operation": "set_role"},
	},
		snapshot.Snapshot{"role": snapshot.String(before.Role)},
		snapshot.Snapshot{"role": snapshot.String(after.Role)})
	projectscope.WarnAudit(w, h.Log, err, zap.String("user_id", id.Hex()))

	respond.OK(w, after)
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, userstore.ErrBadRole):
		return apperr.E(apperr.KindInvalidArgument, op, err.Error(), err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.E(apperr.KindNotFound, op, "user not found", err)
	default:
		return apperr.Storage(op, err)
	}
}
