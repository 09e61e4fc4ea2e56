package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/escuelalink/parent-gateway/internal/permission"
	"github.com/escuelalink/parent-gateway/internal/security"
)

type stubResolver struct {
	snap *permission.Snapshot
}

func (r *stubResolver) Resolve(context.Context, string) *permission.Snapshot { return r.snap }
func (r *stubResolver) InvalidateUser(context.Context, string) error         { return nil }

func newAuthedRequest(t *testing.T, jwtMgr *security.JWTManager) *http.Request {
	t.Helper()
	token, err := jwtMgr.SignAccessToken("u-1", "maria@example.com", "Parent", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest("GET", "/api/v1/novedades", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireCollectionAllows(t *testing.T) {
	jwtMgr := security.NewJWTManager("gw", "gw-api", "access-secret", "refresh-secret")
	resolver := &stubResolver{snap: permission.BuildSnapshot([]permission.Grant{
		{Collection: "announcements", Action: permission.ActionRead},
	})}

	called := false
	h := AuthMiddleware(jwtMgr)(RequireCollection(resolver, nil, "announcements", permission.ActionRead)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
	))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newAuthedRequest(t, jwtMgr))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected pass-through, got %d called=%v", rec.Code, called)
	}
}

func TestRequireCollectionDeniesAndRecords(t *testing.T) {
	jwtMgr := security.NewJWTManager("gw", "gw-api", "access-secret", "refresh-secret")
	resolver := &stubResolver{snap: permission.BuildSnapshot(nil)}
	debugLog := permission.NewDebugLog(16)

	h := AuthMiddleware(jwtMgr)(RequireCollection(resolver, debugLog, "messages", permission.ActionRead)(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newAuthedRequest(t, jwtMgr))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	entries := debugLog.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one denial recorded, got %d", len(entries))
	}
	if entries[0].Collection != "messages" || entries[0].Action != permission.ActionRead {
		t.Fatalf("unexpected denial: %+v", entries[0])
	}
}

func TestRequireCollectionDeniesOnLoadFailure(t *testing.T) {
	jwtMgr := security.NewJWTManager("gw", "gw-api", "access-secret", "refresh-secret")
	resolver := &stubResolver{snap: permission.EmptySnapshot(context.DeadlineExceeded)}
	debugLog := permission.NewDebugLog(16)

	h := AuthMiddleware(jwtMgr)(RequireCollection(resolver, debugLog, "announcements", permission.ActionRead)(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newAuthedRequest(t, jwtMgr))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("load failure must deny, got %d", rec.Code)
	}
	entries := debugLog.Entries()
	if len(entries) != 1 || entries[0].Message == "not permitted" {
		t.Fatalf("expected denial message to carry the load error: %+v", entries)
	}
}

func TestRequireCollectionWithoutAuthContext(t *testing.T) {
	resolver := &stubResolver{snap: permission.BuildSnapshot(nil)}
	h := RequireCollection(resolver, nil, "announcements", permission.ActionRead)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	jwtMgr := security.NewJWTManager("gw", "gw-api", "access-secret", "refresh-secret")
	token, err := jwtMgr.SignAccessToken("u-1", "", "", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var got string
	h := AuthMiddleware(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if ok {
			got = claims.Subject
		}
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || got != "u-1" {
		t.Fatalf("expected claims in context, status=%d subject=%q", rec.Code, got)
	}
}

func TestAuthMiddlewareRejectsGarbage(t *testing.T) {
	jwtMgr := security.NewJWTManager("gw", "gw-api", "access-secret", "refresh-secret")
	h := AuthMiddleware(jwtMgr)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
