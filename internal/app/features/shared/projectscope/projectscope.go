// internal/app/features/shared/projectscope/projectscope.go

// Package projectscope turns the {projectID} URL parameter and the session
// user into a resolved project plus the caller's access to it. Every
// project-scoped feature starts its handlers with Load.
package projectscope

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Param is the chi URL parameter carrying the project id.
const Param = "projectID"

// Need is the capability a handler requires.
type Need int

const (
	View Need = iota
	Edit
)

// Resolver decides access and loads the project in one pass.
type Resolver interface {
	ResolveProject(ctx context.Context, actor authz.Actor, projectID primitive.ObjectID) (authz.Access, *models.Project, error)
}

// Scope is a project the caller may act on.
type Scope struct {
	Actor   authz.Actor
	Access  authz.Access
	Project models.Project
}

// Load resolves the project named in the URL for the signed-in actor.
//
//   - no session user: Unauthorized
//   - malformed id: InvalidArgument
//   - missing project: NotFound
//   - no view access, or no edit access when need is Edit: Forbidden
func Load(ctx context.Context, r *http.Request, res Resolver, need Need) (Scope, error) {
	const op = "projectscope.Load"
	actor, err := authz.ActorFromRequest(r)
	if err != nil {
		return Scope{}, err
	}
	pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, Param))
	if err != nil {
		return Scope{}, apperr.E(apperr.KindInvalidArgument, op, "invalid project id", err)
	}

	access, p, err := res.ResolveProject(ctx, actor, pid)
	if err != nil {
		return Scope{}, err
	}
	if p == nil {
		return Scope{}, apperr.E(apperr.KindNotFound, op, "project not found", nil)
	}
	if !access.CanView {
		return Scope{}, apperr.E(apperr.KindForbidden, op, "no access to this project", nil)
	}
	if need == Edit && !access.CanEdit {
		return Scope{}, apperr.E(apperr.KindForbidden, op, "project is read-only for you", nil)
	}
	return Scope{Actor: actor, Access: access, Project: *p}, nil
}

// AuditWarningHeader is set when a mutation succeeded but its audit trail
// could not be fully written.
const AuditWarningHeader = "X-Audit-Warning"

// WarnAudit reports an incomplete audit trail without failing the request.
// The mutation has already been applied and is not rolled back.
func WarnAudit(w http.ResponseWriter, log *zap.Logger, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	log.Warn("mutation recorded without complete audit trail", append(fields, zap.Error(err))...)
	w.Header().Set(AuditWarningHeader, "audit trail incomplete")
}
