package directus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/escuelalink/parent-gateway/internal/permission"
)

func TestClientLoginParsesTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"access_token":"at","refresh_token":"rt","expires":900000}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	tokens, err := c.Login(context.Background(), "p@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" || tokens.Expires != 900000 {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestClientLoginUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid user credentials."}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Login(context.Background(), "p@example.com", "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClientPermissionsNormalizesGrants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/permissions/me" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("missing bearer header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"collection":"students","action":"read","fields":["*"],"permissions":{"guardians":{"_contains":"$CURRENT_USER"}}},
			{"collection":"announcements","action":"read","fields":["title","body"]}
		]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	grants, err := c.Permissions(context.Background(), "tok")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	if grants[0].Collection != "students" || grants[0].Action != permission.ActionRead || !grants[0].OwnerOnly {
		t.Fatalf("students grant wrong: %+v", grants[0])
	}
	if grants[0].Fields[0] != "*" {
		t.Fatalf("wildcard fields not preserved: %+v", grants[0])
	}
	if grants[1].OwnerOnly {
		t.Fatalf("announcements grant must not be owner-only: %+v", grants[1])
	}
}

func TestClientTimeoutSurfacesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 20*time.Millisecond)
	if _, err := c.CurrentUser(context.Background(), "tok"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientAssetURLPerPlatform(t *testing.T) {
	c := NewClient("https://backend.example.com", time.Second)
	web := c.AssetURL("img-1", "tok", PlatformWeb)
	if web != "https://backend.example.com/assets/img-1?access_token=tok" {
		t.Fatalf("web asset url: %s", web)
	}
	mobile := c.AssetURL("img-1", "tok", PlatformMobile)
	if mobile != "https://backend.example.com/assets/img-1" {
		t.Fatalf("mobile asset url: %s", mobile)
	}
}

func TestClientListPathFilters(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Announcements(context.Background(), "tok", ListOptions{Limit: 10, StudentID: "st-1"}); err != nil {
		t.Fatalf("announcements: %v", err)
	}
	want := "/items/announcements?filter%5Bstudent%5D%5B_eq%5D=st-1&limit=10&sort=-published_at"
	if gotPath != want {
		t.Fatalf("list path = %s, want %s", gotPath, want)
	}
}
