package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/escuelalink/parent-gateway/internal/deeplink"
)

func newDeepLinkHandlerForTest() *DeepLinkHandler {
	return NewDeepLinkHandler(deeplink.NewResolver(nil), deeplink.NewMemoryPendingStore(time.Minute))
}

func TestResolveAllowedLink(t *testing.T) {
	h := newDeepLinkHandlerForTest()

	body := strings.NewReader(`{"url":"https://app.example.com/novedades/123"}`)
	rec := httptest.NewRecorder()
	h.Resolve(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/resolve", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Resolved bool             `json:"resolved"`
		Target   *deeplink.Target `json:"target"`
	}
	decodeBody(t, rec, &payload)
	if !payload.Resolved || payload.Target == nil {
		t.Fatalf("expected resolved target, got %+v", payload)
	}
	if payload.Target.Route != deeplink.RouteNovedades || payload.Target.ID != "123" {
		t.Fatalf("unexpected target %+v", payload.Target)
	}
}

func TestResolveRejectedLinkIsSilent(t *testing.T) {
	h := newDeepLinkHandlerForTest()

	body := strings.NewReader(`{"url":"javascript:alert(1)"}`)
	rec := httptest.NewRecorder()
	h.Resolve(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/resolve", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("rejections respond 200, got %d", rec.Code)
	}
	var payload struct {
		Resolved bool `json:"resolved"`
	}
	decodeBody(t, rec, &payload)
	if payload.Resolved {
		t.Fatal("unsafe link must not resolve")
	}
}

func TestResolveFromPushPayload(t *testing.T) {
	h := newDeepLinkHandlerForTest()

	body := strings.NewReader(`{"payload":{"type":"event","id":"77"}}`)
	rec := httptest.NewRecorder()
	h.Resolve(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/resolve", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Resolved bool             `json:"resolved"`
		Target   *deeplink.Target `json:"target"`
	}
	decodeBody(t, rec, &payload)
	if !payload.Resolved || payload.Target.Route != deeplink.RouteAgenda || payload.Target.ID != "77" {
		t.Fatalf("unexpected payload resolution %+v", payload.Target)
	}
}

func TestResolveEmptyPayload(t *testing.T) {
	h := newDeepLinkHandlerForTest()

	body := strings.NewReader(`{"payload":{"type":"unknown"}}`)
	rec := httptest.NewRecorder()
	h.Resolve(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/resolve", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Resolved bool `json:"resolved"`
	}
	decodeBody(t, rec, &payload)
	if payload.Resolved {
		t.Fatal("payload without a resolvable link must not resolve")
	}
}

func TestPendingLinkLifecycle(t *testing.T) {
	h := newDeepLinkHandlerForTest()
	ctx := claimsContext(t, "u-parent-1")

	store := httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending", strings.NewReader(`{"url":"/mensajes/abc"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.StorePending(rec, store)
	if rec.Code != http.StatusOK {
		t.Fatalf("store: expected 200, got %d", rec.Code)
	}

	consume := httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending/consume", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	h.ConsumePending(rec, consume)
	if rec.Code != http.StatusOK {
		t.Fatalf("consume: expected 200, got %d", rec.Code)
	}
	var payload struct {
		Found  bool             `json:"found"`
		Target *deeplink.Target `json:"target"`
	}
	decodeBody(t, rec, &payload)
	if !payload.Found || payload.Target.Route != deeplink.RouteMensajes {
		t.Fatalf("unexpected consumed link %+v", payload.Target)
	}

	// Consumption is one-shot.
	rec = httptest.NewRecorder()
	h.ConsumePending(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending/consume", nil).WithContext(ctx))
	var again struct {
		Found bool `json:"found"`
	}
	decodeBody(t, rec, &again)
	if again.Found {
		t.Fatal("second consume must find nothing")
	}
}

func TestStorePendingRejectsUnsafeLink(t *testing.T) {
	h := newDeepLinkHandlerForTest()
	ctx := claimsContext(t, "u-parent-1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending", strings.NewReader(`{"url":"/admin/../secret"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.StorePending(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Stored bool `json:"stored"`
	}
	decodeBody(t, rec, &payload)
	if payload.Stored {
		t.Fatal("unsafe link must not be stored")
	}
}

func TestClearPending(t *testing.T) {
	h := newDeepLinkHandlerForTest()
	ctx := claimsContext(t, "u-parent-1")

	store := httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending", strings.NewReader(`{"url":"/agenda/5"}`)).WithContext(ctx)
	h.StorePending(httptest.NewRecorder(), store)

	rec := httptest.NewRecorder()
	h.ClearPending(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/deeplinks/pending", nil).WithContext(ctx))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ConsumePending(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending/consume", nil).WithContext(ctx))
	var payload struct {
		Found bool `json:"found"`
	}
	decodeBody(t, rec, &payload)
	if payload.Found {
		t.Fatal("cleared link must not be consumable")
	}
}

func TestPendingRequiresAuth(t *testing.T) {
	h := newDeepLinkHandlerForTest()
	rec := httptest.NewRecorder()
	h.StorePending(rec, httptest.NewRequest(http.MethodPost, "/api/v1/deeplinks/pending", strings.NewReader(`{"url":"/agenda"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
