package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/escuelalink/parent-gateway/internal/security"
)

func runCSRF(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	called := false
	h := CSRFMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK && !called {
		t.Fatal("next handler not reached on 200")
	}
	return rec
}

func TestCSRFSkipsSafeMethods(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "acc"})
	if rec := runCSRF(t, req); rec.Code != http.StatusOK {
		t.Fatalf("GET must bypass csrf, got %d", rec.Code)
	}
}

func TestCSRFRequiresHeaderForCookieSessions(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "acc"})
	req.AddCookie(&http.Cookie{Name: security.CSRFTokenCookie, Value: "c1"})
	if rec := runCSRF(t, req); rec.Code != http.StatusForbidden {
		t.Fatalf("missing header must be rejected, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "acc"})
	req.AddCookie(&http.Cookie{Name: security.CSRFTokenCookie, Value: "c1"})
	req.Header.Set("X-CSRF-Token", "c2")
	if rec := runCSRF(t, req); rec.Code != http.StatusForbidden {
		t.Fatalf("mismatched header must be rejected, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "acc"})
	req.AddCookie(&http.Cookie{Name: security.CSRFTokenCookie, Value: "c1"})
	req.Header.Set("X-CSRF-Token", "c1")
	if rec := runCSRF(t, req); rec.Code != http.StatusOK {
		t.Fatalf("matching header must pass, got %d", rec.Code)
	}
}

// A mobile client refreshing with an expired access token has no
// cookies to forge, so the body-token refresh must not need a csrf
// pair or a still-valid bearer header.
func TestCSRFExemptsCookielessRequests(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"ref"}`))
	if rec := runCSRF(t, req); rec.Code != http.StatusOK {
		t.Fatalf("cookieless request must bypass csrf, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/me/selected-child", strings.NewReader(`{"child_id":"st-1"}`))
	req.Header.Set("X-Refresh-Token", "ref")
	if rec := runCSRF(t, req); rec.Code != http.StatusOK {
		t.Fatalf("header-token request must bypass csrf, got %d", rec.Code)
	}

	// Presence of the refresh cookie alone is enough to demand the pair.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: security.RefreshTokenCookie, Value: "ref"})
	if rec := runCSRF(t, req); rec.Code != http.StatusForbidden {
		t.Fatalf("cookie-bearing refresh without csrf must be rejected, got %d", rec.Code)
	}
}
