package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/escuelalink/parent-gateway/internal/http/middleware"
	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/security"
	"github.com/escuelalink/parent-gateway/internal/service"
)

// SessionHandler serves the authenticated user's session view and the
// per-session child selection. The selection lives on the gateway session
// row, so each device can point at a different student.
type SessionHandler struct {
	authSvc    service.AuthProvider
	tokenSvc   service.SessionStore
	contentSvc service.ContentProvider
	resolver   service.SnapshotResolver
}

func NewSessionHandler(authSvc service.AuthProvider, tokenSvc service.SessionStore, contentSvc service.ContentProvider, resolver service.SnapshotResolver) *SessionHandler {
	return &SessionHandler{authSvc: authSvc, tokenSvc: tokenSvc, contentSvc: contentSvc, resolver: resolver}
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	selected, platform := h.sessionStateFor(r)
	view, err := h.authSvc.SessionViewFor(r.Context(), claims.Subject, selected, platform)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired", nil)
			return
		}
		response.Error(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "could not load session", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

type selectChildRequest struct {
	ChildID string `json:"child_id"`
}

func (h *SessionHandler) SelectChild(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var req selectChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChildID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "child_id is required", nil)
		return
	}

	students, err := h.contentSvc.Students(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired", nil)
			return
		}
		response.Error(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "could not verify child", nil)
		return
	}
	found := false
	for _, st := range students {
		if st.ID == req.ChildID {
			found = true
			break
		}
	}
	if !found {
		observability.Audit(r, "session.select_child.rejected", "user_id", claims.Subject, "child_id", req.ChildID)
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "child is not linked to this account", nil)
		return
	}

	refresh := refreshTokenForSession(r)
	if refresh == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "no session token present", nil)
		return
	}
	session, err := h.tokenSvc.SessionByRefreshToken(refresh)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired", nil)
		return
	}
	if session.UserID != claims.Subject {
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "session does not belong to this user", nil)
		return
	}
	if err := h.tokenSvc.UpdateSelectedChild(session.ID, req.ChildID); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not persist selection", nil)
		return
	}
	observability.Audit(r, "session.select_child", "user_id", claims.Subject, "child_id", req.ChildID)
	observability.RecordSessionManagement(r.Context(), "select_child", "success")

	view, err := h.authSvc.SessionViewFor(r.Context(), claims.Subject, req.ChildID, session.Platform)
	if err != nil {
		response.JSON(w, r, http.StatusOK, map[string]string{"selected_child_id": req.ChildID})
		return
	}
	response.JSON(w, r, http.StatusOK, view)
}

func (h *SessionHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	snap := h.resolver.Resolve(r.Context(), claims.Subject)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"collections": snap.AccessibleCollections(),
		"entries":     snap.Entries(),
	})
}

// sessionStateFor resolves the current session's child selection and
// platform. Requests without a refresh token fall back to the default
// selection and infer the platform from how the access token arrived.
func (h *SessionHandler) sessionStateFor(r *http.Request) (string, string) {
	refresh := refreshTokenForSession(r)
	if refresh == "" {
		return "", inferPlatform(r)
	}
	session, err := h.tokenSvc.SessionByRefreshToken(refresh)
	if err != nil {
		return "", inferPlatform(r)
	}
	return session.SelectedChildID, session.Platform
}

// inferPlatform falls back on the auth transport: cookie-less clients
// carry a bearer header and are mobile.
func inferPlatform(r *http.Request) string {
	if r.Header.Get("Authorization") != "" {
		return "mobile"
	}
	return "web"
}

// refreshTokenForSession reads the session identity from the refresh cookie
// (web) or the X-Refresh-Token header (mobile, which has no cookies).
func refreshTokenForSession(r *http.Request) string {
	if v := security.GetCookie(r, security.RefreshTokenCookie); v != "" {
		return v
	}
	return r.Header.Get("X-Refresh-Token")
}
