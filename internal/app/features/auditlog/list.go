// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/features/shared/projectscope"
	"github.com/yovalentych/research-os-sub002/internal/app/store/audit"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// ServeList handles GET /projects/{projectID}/audit.
//
// Query parameters: entity_type, entity_id, action, actor_id,
// since and until (RFC 3339), limit, offset.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	const op = "auditlog.List"
	filter, err := h.parseFilter(r)
	if err != nil {
		respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, err.Error(), err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	scope, err := projectscope.Load(ctx, r, h.Resolver, projectscope.View)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	pid := scope.Project.ID
	filter.ProjectID = &pid

	var (
		items []audit.Entry
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = h.Entries.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = h.Entries.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		respond.Error(w, r, h.Log, apperr.Storage(op, err))
		return
	}
	if items == nil {
		items = []audit.Entry{}
	}

	respond.OK(w, ListResponse{
		Items:   items,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: filter.Offset+int64(len(items)) < total,
	})
}

type paramError string

func (e paramError) Error() string { return string(e) }

func (h *Handler) parseFilter(r *http.Request) (audit.QueryFilter, error) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		EntityType: strings.TrimSpace(q.Get("entity_type")),
		EntityID:   strings.TrimSpace(q.Get("entity_id")),
		Action:     strings.ToLower(strings.TrimSpace(q.Get("action"))),
		Limit:      audit.DefaultLimit,
	}
	if f.Limit > h.MaxLimit {
		f.Limit = h.MaxLimit
	}
	switch f.Action {
	case "", audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete:
	default:
		return f, paramError("action must be create, update or delete")
	}

	if s := q.Get("actor_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, paramError("invalid actor_id")
		}
		f.ActorID = &id
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return f, paramError("limit must be a positive integer")
		}
		f.Limit = min(n, h.MaxLimit)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return f, paramError("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	for _, tp := range []struct {
		key string
		dst **time.Time
	}{{"since", &f.StartTime}, {"until", &f.EndTime}} {
		s := q.Get(tp.key)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, paramError(tp.key + " must be an RFC 3339 timestamp")
		}
		t = t.UTC()
		*tp.dst = &t
	}
	return f, nil
}
