package security

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	CSRFTokenCookie    = "csrf_token"

	// The refresh cookie must reach the /me session routes too, which
	// identify the session by it, so it is scoped to the whole API
	// prefix rather than /api/v1/auth alone.
	refreshCookiePath = "/api/v1"
)

// CookieManager writes and clears the browser token cookies. Mobile
// clients ignore cookies and carry tokens in headers instead.
type CookieManager struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func NewCookieManager(domain string, secure bool, sameSite string) *CookieManager {
	return &CookieManager{
		Domain:   domain,
		Secure:   secure,
		SameSite: parseSameSite(sameSite),
	}
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (c *CookieManager) SetTokenCookies(w http.ResponseWriter, access, refresh, csrf string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    access,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refresh,
		Path:     refreshCookiePath,
		Domain:   c.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
	// CSRF cookie is readable by the frontend so it can echo the value
	// in the X-CSRF-Token header.
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFTokenCookie,
		Value:    csrf,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: false,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c *CookieManager) ClearTokenCookies(w http.ResponseWriter) {
	expire := func(name, path string, httpOnly bool) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Domain:   c.Domain,
			MaxAge:   -1,
			HttpOnly: httpOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
		})
	}
	expire(AccessTokenCookie, "/", true)
	expire(RefreshTokenCookie, refreshCookiePath, true)
	expire(CSRFTokenCookie, "/", false)
}
