// internal/app/system/respond/respond.go

// Package respond writes JSON responses and maps apperr kinds onto HTTP
// status codes so every feature reports failures the same way.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds request bodies accepted by Decode.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with status 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Error maps err to a status and writes an ErrorBody. Storage and unknown
// failures are logged with the request id and reported generically.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 && log != nil {
		log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	JSON(w, status, ErrorBody{
		Error:   apperr.KindOf(err).String(),
		Message: apperr.PublicMessage(err),
	})
}

// Decode reads a JSON body into v. Unknown fields, trailing data, and
// oversized bodies are rejected with InvalidArgument.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "respond.Decode"
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.E(apperr.KindInvalidArgument, op, "request body is empty", err)
		}
		return apperr.E(apperr.KindInvalidArgument, op, "malformed JSON body: "+err.Error(), err)
	}
	if dec.More() {
		return apperr.E(apperr.KindInvalidArgument, op, "request body must contain a single JSON object", nil)
	}
	return nil
}
