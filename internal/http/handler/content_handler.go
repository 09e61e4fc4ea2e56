package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/escuelalink/parent-gateway/internal/directus"
	"github.com/escuelalink/parent-gateway/internal/http/middleware"
	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/service"
)

const maxListLimit = 100

// ContentHandler proxies announcement, event, conversation and student
// listings through the gateway using the server-held backend token.
type ContentHandler struct {
	contentSvc service.ContentProvider
}

func NewContentHandler(contentSvc service.ContentProvider) *ContentHandler {
	return &ContentHandler{contentSvc: contentSvc}
}

func (h *ContentHandler) Students(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	students, err := h.contentSvc.Students(r.Context(), claims.Subject)
	if err != nil {
		writeContentError(w, r, "students", err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"data": students})
}

func (h *ContentHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "announcements", func(userID string, opts directus.ListOptions) (any, error) {
		return h.contentSvc.Announcements(r.Context(), userID, opts)
	})
}

func (h *ContentHandler) Events(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "events", func(userID string, opts directus.ListOptions) (any, error) {
		return h.contentSvc.Events(r.Context(), userID, opts)
	})
}

func (h *ContentHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "conversations", func(userID string, opts directus.ListOptions) (any, error) {
		return h.contentSvc.Conversations(r.Context(), userID, opts)
	})
}

func (h *ContentHandler) list(w http.ResponseWriter, r *http.Request, resource string, fetch func(userID string, opts directus.ListOptions) (any, error)) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	data, err := fetch(claims.Subject, opts)
	if err != nil {
		writeContentError(w, r, resource, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"data": data})
}

func listOptionsFromQuery(r *http.Request) (directus.ListOptions, error) {
	opts := directus.ListOptions{
		Sort:      r.URL.Query().Get("sort"),
		StudentID: r.URL.Query().Get("student"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, errors.New("limit must be a positive integer")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		opts.Limit = limit
	}
	return opts, nil
}

func writeContentError(w http.ResponseWriter, r *http.Request, resource string, err error) {
	if errors.Is(err, service.ErrSessionExpired) {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired", nil)
		return
	}
	observability.RecordUpstreamError(r.Context(), resource)
	response.Error(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "backend unavailable", nil)
}
