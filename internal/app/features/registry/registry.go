// internal/app/features/registry/registry.go
package registry

import (
	"context"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/normalize"
	"github.com/yovalentych/research-os-sub002/internal/app/system/registrysync"
	"github.com/yovalentych/research-os-sub002/internal/app/system/respond"
	"github.com/yovalentych/research-os-sub002/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type intervalRequest struct {
	IntervalDays int `json:"interval_days"`
}

// sourceKey returns the {key} URL parameter if it names a configured
// source. Other keys are NotFound, so no state row or upstream pull can be
// started for them.
func (h *Handler) sourceKey(r *http.Request, op string) (string, error) {
	key := normalize.RegistryKey(chi.URLParam(r, "key"))
	if slices.Contains(h.Keys, key) {
		return key, nil
	}
	return "", apperr.Errorf(apperr.KindNotFound, op, "registry source %q is not configured", key)
}

// ServeList reports the state of every configured source.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "registry list")
	defer cancel()

	out := make([]registrysync.Info, 0, len(h.Keys))
	for _, key := range h.Keys {
		in, err := h.Sync.SyncInfo(ctx, key)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		out = append(out, in)
	}
	respond.OK(w, out)
}

// ServeInfo handles GET /registry/{key}.
func (h *Handler) ServeInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "registry info")
	defer cancel()

	key, err := h.sourceKey(r, "registry.Info")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in, err := h.Sync.SyncInfo(ctx, key)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, in)
}

// HandleSync handles POST /registry/{key}/sync[?force=true].
//
// The pull runs to completion even if the caller disconnects; every
// outcome, including a failed pull, is reported with 200 and the Result.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	const op = "registry.Sync"
	key, err := h.sourceKey(r, op)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	force := false
	if s := r.URL.Query().Get("force"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			respond.Error(w, r, h.Log, apperr.E(apperr.KindInvalidArgument, op, "force must be a boolean", err))
			return
		}
		force = b
	}

	res, err := h.Sync.TriggerSync(context.WithoutCancel(r.Context()), key, force)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if res.Outcome == registrysync.OutcomeFailed {
		h.Log.Warn("registry sync requested over HTTP failed",
			zap.String("key", key),
			zap.String("run_id", res.RunID),
			zap.String("message", res.Message))
	}
	respond.OK(w, res)
}

// HandleInterval handles PUT /registry/{key}/interval.
func (h *Handler) HandleInterval(w http.ResponseWriter, r *http.Request) {
	key, err := h.sourceKey(r, "registry.Interval")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req intervalRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "registry interval")
	defer cancel()

	if err := h.Sync.SetInterval(ctx, key, req.IntervalDays); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	in, err := h.Sync.SyncInfo(ctx, key)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, in)
}
