// internal/app/features/auditlog/versions.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/features/shared/projectscope"
	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	fieldversionstore "github.com/yovalentych/research-os-sub002/internal/app/store/fieldversions"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
)

// projectEntity is the entity type of the project row itself.
const projectEntity = "project"

// ServeVersions handles GET /projects/{projectID}/versions/{entityType}/{entityID}.
// Optional query parameters: field (one field path), limit.
//
// Versions are not stored with a project id, so an entity is accepted only
// when it is the project itself or the project's audit trail mentions it.
func (h *Handler) ServeVersions(w http.ResponseWriter, r *http.Request) {
	const op = "auditlog.Versions"
	entityType := strings.TrimSpace(chi.URLParam(r, "entityType"))
	entityID := strings.TrimSpace(chi.URLParam(r, "entityID"))
	field := strings.TrimSpace(r.URL.Query().Get("field"))
	if entityType == "" || entityID == "" {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "entity type and id are required", nil))
		return
	}
	var limit int64
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "limit must be a positive integer", err))
			return
		}
		limit = min(n, fieldversionstore.MaxLimit)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "field versions")
	defer cancel()

	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.View)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	belongs := entityType == projectEntity && entityID == scope.Project.ID.Hex()
	if entityType != projectEntity {
		pid := scope.Project.ID
		n, err := h.Entries.Count(ctx, audit.QueryFilter{ProjectID: &pid, EntityType: entityType, EntityID: entityID})
		if err != nil {
			respond.Error(w, r, h.Log, apperr.Storage(op, err))
			return
		}
		belongs = n > 0
	}
	if !belongs {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindNotFound, op, "entity not found in this project", nil))
		return
	}

	items, err := h.Versions.ListForEntity(ctx, entityType, entityID, field, limit)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Storage(op, err))
		return
	}
	if items == nil {
		items = []fieldversionstore.Version{}
	}
	respond.OK(w, VersionsResponse{EntityType: entityType, EntityID: entityID, Field: field, Items: items})
}
