package handler

import (
	"encoding/json"
	"net/http"

	"github.com/escuelalink/parent-gateway/internal/deeplink"
	"github.com/escuelalink/parent-gateway/internal/http/middleware"
	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/observability"
)

// DeepLinkHandler validates navigation links for clients and stores
// links that arrived before the user was authenticated.
type DeepLinkHandler struct {
	resolver *deeplink.Resolver
	pending  deeplink.PendingStore
}

func NewDeepLinkHandler(resolver *deeplink.Resolver, pending deeplink.PendingStore) *DeepLinkHandler {
	return &DeepLinkHandler{resolver: resolver, pending: pending}
}

type resolveLinkRequest struct {
	URL     string               `json:"url,omitempty"`
	Payload *deeplink.PushPayload `json:"payload,omitempty"`
}

func (h *DeepLinkHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	link := req.URL
	if link == "" && req.Payload != nil {
		derived, ok := req.Payload.Link()
		if !ok {
			observability.RecordDeepLinkDecision(r.Context(), "unknown", "empty_payload")
			response.JSON(w, r, http.StatusOK, map[string]any{"resolved": false})
			return
		}
		link = derived
	}
	if link == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "url or payload is required", nil)
		return
	}

	target, err := h.resolver.Resolve(link)
	if err != nil {
		observability.RecordDeepLinkDecision(r.Context(), "unknown", "rejected")
		response.JSON(w, r, http.StatusOK, map[string]any{"resolved": false})
		return
	}
	observability.RecordDeepLinkDecision(r.Context(), target.Route, "resolved")
	response.JSON(w, r, http.StatusOK, map[string]any{"resolved": true, "target": target})
}

type pendingLinkRequest struct {
	URL string `json:"url"`
}

// StorePending records a link that could not be navigated yet because the
// client had no valid session. Only links that pass validation are kept.
func (h *DeepLinkHandler) StorePending(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req pendingLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "url is required", nil)
		return
	}
	target, err := h.resolver.Resolve(req.URL)
	if err != nil {
		observability.RecordDeepLinkDecision(r.Context(), "unknown", "pending_rejected")
		response.JSON(w, r, http.StatusOK, map[string]any{"stored": false})
		return
	}
	if err := h.pending.Put(r.Context(), claims.Subject, target.Path); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not store link", nil)
		return
	}
	observability.RecordDeepLinkDecision(r.Context(), target.Route, "pending_stored")
	response.JSON(w, r, http.StatusOK, map[string]any{"stored": true})
}

// ConsumePending hands the stored link to the client exactly once. The
// link is revalidated on the way out in case the allow-list changed.
func (h *DeepLinkHandler) ConsumePending(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	link, found, err := h.pending.Consume(r.Context(), claims.Subject)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not read pending link", nil)
		return
	}
	if !found {
		response.JSON(w, r, http.StatusOK, map[string]any{"found": false})
		return
	}
	target, err := h.resolver.Resolve(link)
	if err != nil {
		observability.RecordDeepLinkDecision(r.Context(), "unknown", "pending_stale")
		response.JSON(w, r, http.StatusOK, map[string]any{"found": false})
		return
	}
	observability.RecordDeepLinkDecision(r.Context(), target.Route, "pending_consumed")
	response.JSON(w, r, http.StatusOK, map[string]any{"found": true, "target": target})
}

func (h *DeepLinkHandler) ClearPending(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	if err := h.pending.Clear(r.Context(), claims.Subject); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not clear pending link", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "cleared"})
}
