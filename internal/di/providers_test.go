package di

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/escuelalink/parent-gateway/internal/config"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/service"
)

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout.Seconds() != 10 {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
		AuthRateLimitPerMin: 10,
		APIRateLimitPerMin:  100,
		OTELMetricsEnabled:  true,
		PermissionDebugLog:  true,
	}
	dep := provideRouterDependencies(nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, cfg)
	if dep.AuthRateLimitRPM != 10 || dep.APIRateLimitRPM != 100 {
		t.Fatalf("unexpected rate limits: %+v", dep)
	}
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if !dep.EnableDebugRoutes {
		t.Fatal("expected debug routes enabled")
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
}

func TestProvideRedisClientDisabled(t *testing.T) {
	cfg := &config.Config{RedisEnabled: false}
	if client := provideRedisClient(cfg, slog.Default()); client != nil {
		t.Fatal("expected nil redis client when disabled")
	}
}

func TestProvideTokenVaultFallsBackToMemory(t *testing.T) {
	cfg := &config.Config{RedisEnabled: false}
	vault := provideTokenVault(cfg, nil)
	if _, ok := vault.(*service.InMemoryTokenVault); !ok {
		t.Fatalf("expected in-memory vault, got %T", vault)
	}
}

func TestProvideLoginLockoutFallsBackToMemory(t *testing.T) {
	cfg := &config.Config{LoginMaxAttempts: 5, LoginLockoutDuration: 15 * time.Minute}
	lockout := provideLoginLockout(cfg, nil)
	if _, ok := lockout.(*service.InMemoryLoginLockout); !ok {
		t.Fatalf("expected in-memory lockout, got %T", lockout)
	}
}

func TestProvideSnapshotStoreNoopWhenCachingDisabled(t *testing.T) {
	cfg := &config.Config{PermissionCacheTTL: 0}
	store := provideSnapshotStore(cfg, nil)
	if _, ok := store.(*service.NoopSnapshotStore); !ok {
		t.Fatalf("expected noop store when TTL is zero, got %T", store)
	}

	cfg.PermissionCacheTTL = 5 * time.Minute
	store = provideSnapshotStore(cfg, nil)
	if _, ok := store.(*service.InMemorySnapshotStore); !ok {
		t.Fatalf("expected in-memory store, got %T", store)
	}
}

func TestProvideGlobalRateLimiterEnforcesLimit(t *testing.T) {
	cfg := &config.Config{APIRateLimitPerMin: 1}
	limiter := provideGlobalRateLimiter(cfg, nil)
	h := limiter(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	rr1 := httptest.NewRecorder()
	h.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", rr1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req2.RemoteAddr = "10.0.0.1:1234"
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request 429, got %d", rr2.Code)
	}
}

func TestProvideApp(t *testing.T) {
	cfg := &config.Config{HTTPPort: "8080", ShutdownTimeout: 20 * time.Second}
	logger := slog.Default()
	srv := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}
	runtime := &observability.Runtime{}

	a := provideApp(cfg, logger, srv, runtime, nil, nil)
	if a == nil {
		t.Fatal("expected app")
	}
	if a.Config != cfg || a.Logger != logger || a.Server != srv || a.Observability != runtime {
		t.Fatal("app dependencies not wired as expected")
	}
	if a.ShutdownTimeout != 20*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", a.ShutdownTimeout)
	}
}
