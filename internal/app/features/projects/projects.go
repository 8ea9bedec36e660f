// internal/app/features/projects/projects.go
package projects

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/shared/projectscope"
	projectstore "github.com/yovalentych/research-os-sub002/internal/app/store/projects"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/auditlog"
	"github.com/yovalentych/research-os-sub002/internal/app/system/authz"
	"github.com/yovalentych/research-os-sub002/internal/app/system/htmlsanitize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
}

// ProjectResponse pairs a project with the caller's access to it.
type ProjectResponse struct {
	Project models.Project `json:"project"`
	Access  authz.Access   `json:"access"`
}

// HandleCreate handles POST /projects. Any signed-in actor may create a
// project and becomes its owner.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "projects.Create"
	actor, err := authz.ActorFromRequest(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req createRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create project")
	defer cancel()

	p, err := h.Projects.Create(ctx, models.Project{
		Title:       htmlsanitize.PlainText(req.Title),
		Description: htmlsanitize.PlainText(req.Description),
		Visibility:  req.Visibility,
		OwnerID:     actor.ID,
	})
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}

	err = h.Audit.RecordCreate(ctx, actor, auditlog.Target{
		EntityType: EntityType,
		EntityID:   p.ID.Hex(),
		ProjectID:  &p.ID,
		Metadata:   map[string]string{"title": p.Title},
	})
	projectscope.WarnAudit(w, h.Log, err, zap.String("project_id", p.ID.Hex()))

	owner := models.RoleOwner
	respond.Created(w, ProjectResponse{
		Project: p,
		Access:  authz.Access{CanView: true, CanEdit: true, Role: &owner, Rule: authz.RuleOwner},
	})
}

// ServeProject handles GET /projects/{projectID}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get project")
	defer cancel()

	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.View)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, ProjectResponse{Project: scope.Project, Access: scope.Access})
}

// ServeAccess handles GET /projects/{projectID}/access. It reports the
// decision itself, so "no access" is a 200 with can_view=false.
func (h *Handler) ServeAccess(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.ActorFromRequest(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "resolve access")
	defer cancel()

	access, err := h.Resolver.ResolveAccess(ctx, actor, chi.URLParam(r, projectscope.Param))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, access)
}

// HandleUpdate handles PATCH /projects/{projectID}. Only the fields present
// in the body change; every field that actually changed gets a version.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "projects.Update"
	var req updateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	upd := projectstore.Update{
		Title:       plain(req.Title),
		Description: plain(req.Description),
		Visibility:  req.Visibility,
	}
	if upd.Empty() {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "nothing to update", nil))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update project")
	defer cancel()

	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.Edit)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	p, err := h.Projects.Update(ctx, scope.Project.ID, upd)
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	h.recordUpdate(ctx, w, scope, p, nil)
	respond.OK(w, ProjectResponse{Project: p, Access: scope.Access})
}

// HandleArchive handles POST /projects/{projectID}/archive.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	const op = "projects.Archive"
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "archive project")
	defer cancel()

	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.Edit)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	p, err := h.Projects.Archive(ctx, scope.Project.ID, time.Now())
	if err != nil {
		respond.Error(w, r, h.Log, storeError(op, err))
		return
	}
	h.recordUpdate(ctx, w, scope, p, map[string]string{"operation": "archive"})
	respond.OK(w, ProjectResponse{Project: p, Access: scope.Access})
}

func (h *Handler) recordUpdate(ctx context.Context, w http.ResponseWriter, scope projectscope.Scope, after models.Project, meta map[string]string) {
	_, err := h.Audit.RecordUpdate(ctx, scope.Actor, auditlog.Target{
		EntityType: EntityType,
		EntityID:   after.ID.Hex(),
		ProjectID:  &after.ID,
		Metadata:   meta,
	}, Snapshot(scope.Project), Snapshot(after))
	projectscope.WarnAudit(w, h.Log, err, zap.String("project_id", after.ID.Hex()))
}

func storeError(op string, err error) error {
	switch {
	case errors.Is(err, projectstore.ErrTitleRequired),
		errors.Is(err, projectstore.ErrBadVisibility),
		errors.Is(err, projectstore.ErrAlreadyArchived):
		return apperr.E(apperr.KindInvalidArgument, op, err.Error(), err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.E(apperr.KindNotFound, op, "project not found", err)
	default:
		return apperr.Storage(op, err)
	}
}

// plain strips markup from an optional text field, keeping nil as "unchanged".
func plain(s *string) *string {
	if s == nil {
		return nil
	}
	v := htmlsanitize.PlainText(*s)
	return &v
}
