// internal/app/features/institutions/institutions.go
package institutions

import (
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/paging"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// SearchResponse is one page of name-ordered matches.
type SearchResponse struct {
	Query      string               `json:"query"`
	Items      []models.Institution `json:"items"`
	HasPrev    bool                 `json:"has_prev"`
	HasNext    bool                 `json:"has_next"`
	PrevCursor string               `json:"prev_cursor,omitempty"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// ServeSearch handles GET /institutions?q=&after=&before=&per_page=.
// q is a case- and accent-insensitive name prefix.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "institution search")
	defer cancel()

	q := query.Get(r, "q")
	page, err := h.Store.Search(ctx, q, paging.FromRequest(r))
	if err != nil {
		respond.Error(w, r, h.Log, apperr.Storage("institutions.Search", err))
		return
	}
	respond.OK(w, SearchResponse{
		Query:      q,
		Items:      page.Items,
		HasPrev:    page.HasPrev,
		HasNext:    page.HasNext,
		PrevCursor: page.PrevCursor,
		NextCursor: page.NextCursor,
	})
}

// ServeInstitution handles GET /institutions/{externalID}.
func (h *Handler) ServeInstitution(w http.ResponseWriter, r *http.Request) {
	const op = "institutions.Get"
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "institution get")
	defer cancel()

	inst, err := h.Store.GetByExternalID(ctx, chi.URLParam(r, "externalID"))
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		respond.Error(w, r, h.Log, apperr.E(apperr.KindNotFound, op, "institution not found", err))
		return
	case err != nil:
		respond.Error(w, r, h.Log, apperr.Storage(op, err))
		return
	}
	respond.OK(w, inst)
}
