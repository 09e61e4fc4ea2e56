package security

import (
	"net/http/httptest"
	"testing"
	"time"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("parent-gateway", "parent-gateway-clients", "access-secret", "refresh-secret")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestJWTManager()

	raw, err := m.SignAccessToken("user-1", "maria@example.com", "Parent", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := m.ParseAccessToken(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "maria@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.Role != "Parent" {
		t.Fatalf("role = %q", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	m := newTestJWTManager()

	raw, err := m.SignAccessToken("user-1", "", "", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccessToken(raw); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestRefreshTokenNotValidAsAccessToken(t *testing.T) {
	m := newTestJWTManager()

	raw, err := m.SignRefreshToken("user-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseAccessToken(raw); err == nil {
		t.Fatal("refresh token must not parse as access token")
	}
	if _, err := m.ParseRefreshToken(raw); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}

func TestHashRefreshTokenIsDeterministicPerPepper(t *testing.T) {
	a := HashRefreshToken("tok", "pepper-1")
	b := HashRefreshToken("tok", "pepper-1")
	c := HashRefreshToken("tok", "pepper-2")
	if a != b {
		t.Fatal("same token and pepper must hash identically")
	}
	if a == c {
		t.Fatal("different peppers must not collide")
	}
}

func TestSetTokenCookies(t *testing.T) {
	cm := NewCookieManager("app.example.com", true, "strict")
	rec := httptest.NewRecorder()

	cm.SetTokenCookies(rec, "acc", "ref", "csrf", 15*time.Minute, 720*time.Hour)

	cookies := rec.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("expected 3 cookies, got %d", len(cookies))
	}
	byName := map[string]int{}
	for i, c := range cookies {
		byName[c.Name] = i
	}

	access := cookies[byName[AccessTokenCookie]]
	if access.MaxAge != 900 || access.Path != "/" || !access.HttpOnly || !access.Secure {
		t.Fatalf("unexpected access cookie: %+v", access)
	}
	refresh := cookies[byName[RefreshTokenCookie]]
	if refresh.Path != refreshCookiePath {
		t.Fatalf("refresh cookie path = %q", refresh.Path)
	}
	csrf := cookies[byName[CSRFTokenCookie]]
	if csrf.HttpOnly {
		t.Fatal("csrf cookie must be readable by the frontend")
	}
}

func TestClearTokenCookies(t *testing.T) {
	cm := NewCookieManager("", false, "lax")
	rec := httptest.NewRecorder()

	cm.ClearTokenCookies(rec)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge != -1 {
			t.Fatalf("cookie %s not expired", c.Name)
		}
	}
}
