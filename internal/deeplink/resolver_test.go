package deeplink

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func newTestResolver() *Resolver {
	return NewResolver(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveListAndDetailRoutes(t *testing.T) {
	r := newTestResolver()

	target, err := r.Resolve("/novedades/123")
	if err != nil {
		t.Fatalf("resolve detail link: %v", err)
	}
	if target.Route != RouteNovedades || target.ID != "123" {
		t.Fatalf("unexpected target: %+v", target)
	}
	if target.Path != "/novedades/123" {
		t.Fatalf("unexpected path: %q", target.Path)
	}

	target, err = r.Resolve("/novedades")
	if err != nil {
		t.Fatalf("resolve list link: %v", err)
	}
	if target.Route != RouteNovedades || target.ID != "" {
		t.Fatalf("list link must carry no id: %+v", target)
	}
}

func TestResolveCustomSchemeAndHTTPS(t *testing.T) {
	r := newTestResolver()

	target, err := r.Resolve("app://agenda/77")
	if err != nil {
		t.Fatalf("resolve app scheme: %v", err)
	}
	if target.Route != RouteAgenda || target.ID != "77" {
		t.Fatalf("unexpected target: %+v", target)
	}

	target, err = r.Resolve("https://school.example.com/mensajes/abc?utm=push#frag")
	if err != nil {
		t.Fatalf("resolve https form: %v", err)
	}
	if target.Route != RouteMensajes || target.ID != "abc" {
		t.Fatalf("unexpected target: %+v", target)
	}
	if target.Path != "/mensajes/abc" {
		t.Fatalf("query/fragment must be stripped: %q", target.Path)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	r := newTestResolver()
	for _, raw := range []string{
		"/..%2f..%2fsettings",
		"%2e%2e%2fsettings",
		"/%252e%252e%252fnovedades",
		"/novedades\\..\\settings",
		"/../novedades",
	} {
		if _, err := r.Resolve(raw); !errors.Is(err, ErrRejected) {
			t.Fatalf("traversal %q must be rejected, got %v", raw, err)
		}
	}
}

func TestResolveRejectsPrefixAlias(t *testing.T) {
	r := newTestResolver()
	for _, raw := range []string{"/novedades-fake", "/novedades-admin/1", "/agendax"} {
		if _, err := r.Resolve(raw); !errors.Is(err, ErrRejected) {
			t.Fatalf("prefix alias %q must be rejected, got %v", raw, err)
		}
	}
}

func TestResolveRejectsEmptyAndUnknown(t *testing.T) {
	r := newTestResolver()
	for _, raw := range []string{"", "/", "/settings", "app://", "://bad"} {
		if _, err := r.Resolve(raw); !errors.Is(err, ErrRejected) {
			t.Fatalf("%q must be rejected, got %v", raw, err)
		}
	}
}

func TestResolveMissingHandlerIsLogicError(t *testing.T) {
	r := newTestResolver()
	r.RemoveHandler(RoutePerfil)
	if _, err := r.Resolve("/perfil"); !errors.Is(err, ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestSetHandlerRejectsUnknownRoute(t *testing.T) {
	r := newTestResolver()
	if err := r.SetHandler("settings", func(path, id string) Target { return Target{} }); err == nil {
		t.Fatal("handler for non-allow-listed route must be refused")
	}
	if err := r.SetHandler(RouteNovedades, func(path, id string) Target {
		return Target{Route: "novedades-detail", ID: id, Path: path}
	}); err != nil {
		t.Fatalf("set handler for allowed route: %v", err)
	}
	target, err := r.Resolve("/novedades/9")
	if err != nil {
		t.Fatalf("resolve with custom handler: %v", err)
	}
	if target.Route != "novedades-detail" {
		t.Fatalf("custom handler not used: %+v", target)
	}
}

func TestSanitizeProperties(t *testing.T) {
	cases := map[string]string{
		"/novedades//123":        "/novedades/123",
		"novedades/123":          "/novedades/123",
		"/agenda/1?x=2#y":        "/agenda/1",
		"/mensajes\\5":           "/mensajes/5",
		"/novedades/%2e%2e/x":    "/novedades/x",
		"/a/%252e%252e%252fb":    "/a/b",
	}
	for raw, want := range cases {
		got, err := Sanitize(raw)
		if err != nil {
			t.Fatalf("sanitize %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("sanitize %q = %q, want %q", raw, got, want)
		}
	}
}

func TestPushPayloadLink(t *testing.T) {
	cases := []struct {
		payload PushPayload
		want    string
		ok      bool
	}{
		{PushPayload{URL: "app://novedades/1", Type: "event"}, "app://novedades/1", true},
		{PushPayload{Path: "/agenda/2", Type: "message"}, "/agenda/2", true},
		{PushPayload{Type: "announcement", ID: "3"}, "/novedades/3", true},
		{PushPayload{Type: "event"}, "/agenda", true},
		{PushPayload{Type: "message", ID: "9"}, "/mensajes/9", true},
		{PushPayload{Type: "unknown"}, "", false},
		{PushPayload{}, "", false},
	}
	for _, c := range cases {
		got, ok := c.payload.Link()
		if ok != c.ok || got != c.want {
			t.Fatalf("payload %+v => (%q,%v), want (%q,%v)", c.payload, got, ok, c.want, c.ok)
		}
	}
}
