package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/escuelalink/parent-gateway/internal/http/middleware"
	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/security"
	"github.com/escuelalink/parent-gateway/internal/service"
)

type AuthHandler struct {
	authSvc    service.AuthProvider
	cookieMgr  *security.CookieManager
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthProvider, cookieMgr *security.CookieManager, accessTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookieMgr: cookieMgr, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Platform string `json:"platform"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		status = "failure"
		observability.RecordAuthLogin(r.Context(), req.Platform, "failure")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}
	platform := normalizePlatform(req.Platform)

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password, r.UserAgent(), clientIP(r), platform)
	if err != nil {
		status = "failure"
		observability.RecordAuthLogin(r.Context(), platform, "failure")
		var locked *service.LockedError
		if errors.As(err, &locked) {
			observability.Audit(r, "auth.login.locked", "retry_after", locked.RetryAfter.String())
			w.Header().Set("Retry-After", retryAfterSeconds(locked.RetryAfter))
			response.Error(w, r, http.StatusTooManyRequests, "ACCOUNT_LOCKED", "too many failed attempts", map[string]string{
				"retry_after": locked.RetryAfter.Round(time.Second).String(),
			})
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			observability.Audit(r, "auth.login.failed", "reason", "invalid_credentials")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		observability.Audit(r, "auth.login.failed", "reason", "upstream_error")
		response.Error(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "login unavailable", nil)
		return
	}

	if platform == "web" {
		h.cookieMgr.SetTokenCookies(w, result.AccessToken, result.RefreshToken, result.CSRFToken, h.accessTTL, h.refreshTTL)
	}
	observability.Audit(r, "auth.login.success", "user_id", result.View.UserID, "platform", platform)
	observability.RecordAuthLogin(r.Context(), platform, "success")
	payload := map[string]any{"session": result.View, "csrf_token": result.CSRFToken, "expires_at": result.ExpiresAt}
	if platform != "web" {
		payload["access_token"] = result.AccessToken
		payload["refresh_token"] = result.RefreshToken
	}
	response.JSON(w, r, http.StatusOK, payload)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "refresh", status, time.Since(start))
	}()

	refresh, fromCookie := refreshTokenFromRequest(r)
	if refresh == "" {
		status = "failure"
		observability.Audit(r, "auth.refresh.failed", "reason", "missing_refresh_token")
		observability.RecordAuthRefresh(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
		return
	}
	result, err := h.authSvc.Refresh(r.Context(), refresh, r.UserAgent(), clientIP(r))
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.refresh.failed", "reason", "invalid_refresh")
		observability.RecordAuthRefresh(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
		return
	}
	if fromCookie {
		h.cookieMgr.SetTokenCookies(w, result.AccessToken, result.RefreshToken, result.CSRFToken, h.accessTTL, h.refreshTTL)
	}
	observability.Audit(r, "auth.refresh.success", "user_id", result.View.UserID)
	observability.RecordAuthRefresh(r.Context(), "success")
	payload := map[string]any{"session": result.View, "csrf_token": result.CSRFToken, "expires_at": result.ExpiresAt}
	if !fromCookie {
		payload["access_token"] = result.AccessToken
		payload["refresh_token"] = result.RefreshToken
	}
	response.JSON(w, r, http.StatusOK, payload)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", status, time.Since(start))
	}()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		status = "failure"
		observability.Audit(r, "auth.logout.failed", "reason", "missing_auth_context")
		observability.RecordAuthLogout(r.Context(), "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	refresh, _ := refreshTokenFromRequest(r)
	if err := h.authSvc.Logout(r.Context(), refresh, claims.Subject); err != nil {
		status = "failure"
		observability.Audit(r, "auth.logout.failed", "user_id", claims.Subject, "reason", "revoke_error")
		observability.RecordAuthLogout(r.Context(), "failure")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	h.cookieMgr.ClearTokenCookies(w)
	observability.Audit(r, "auth.logout.success", "user_id", claims.Subject)
	observability.RecordAuthLogout(r.Context(), "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func refreshTokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	if v := security.GetCookie(r, security.RefreshTokenCookie); v != "" {
		return v, true
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken, false
	}
	return "", false
}

func normalizePlatform(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "mobile", "ios", "android":
		return "mobile"
	default:
		return "web"
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs <= 0 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
