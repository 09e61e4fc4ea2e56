package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/escuelalink/parent-gateway/internal/health"
	"github.com/escuelalink/parent-gateway/internal/http/handler"
	"github.com/escuelalink/parent-gateway/internal/http/middleware"
	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/permission"
	"github.com/escuelalink/parent-gateway/internal/security"
	"github.com/escuelalink/parent-gateway/internal/service"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	SessionHandler    *handler.SessionHandler
	ContentHandler    *handler.ContentHandler
	DeepLinkHandler   *handler.DeepLinkHandler
	DebugHandler      *handler.DebugHandler
	JWTManager        *security.JWTManager
	Resolver          service.SnapshotResolver
	DebugLog          *permission.DebugLog
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
	EnableDebugRoutes bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type AuthRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}
	authed := middleware.AuthMiddleware(dep.JWTManager)
	requireRead := func(collection string) func(http.Handler) http.Handler {
		return middleware.RequireCollection(dep.Resolver, dep.DebugLog, collection, permission.ActionRead)
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFMiddleware)
				r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
				r.With(authed).Post("/logout", dep.AuthHandler.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/me", dep.SessionHandler.Me)
			r.Get("/me/permissions", dep.SessionHandler.Permissions)
			r.With(middleware.CSRFMiddleware).Put("/me/selected-child", dep.SessionHandler.SelectChild)

			r.With(requireRead("students")).Get("/students", dep.ContentHandler.Students)
			r.With(requireRead("announcements")).Get("/announcements", dep.ContentHandler.Announcements)
			r.With(requireRead("events")).Get("/events", dep.ContentHandler.Events)
			r.With(requireRead("conversations")).Get("/conversations", dep.ContentHandler.Conversations)

			r.Route("/deeplinks", func(r chi.Router) {
				r.Post("/resolve", dep.DeepLinkHandler.Resolve)
				r.Route("/pending", func(r chi.Router) {
					r.Use(middleware.CSRFMiddleware)
					r.Post("/", dep.DeepLinkHandler.StorePending)
					r.Post("/consume", dep.DeepLinkHandler.ConsumePending)
					r.Delete("/", dep.DeepLinkHandler.ClearPending)
				})
			})
		})

		if dep.EnableDebugRoutes && dep.DebugHandler != nil {
			r.Route("/debug/permission-denials", func(r chi.Router) {
				r.Use(authed)
				r.Get("/", dep.DebugHandler.Denials)
				r.Get("/export", dep.DebugHandler.Export)
				r.With(middleware.CSRFMiddleware).Post("/clear", dep.DebugHandler.Clear)
			})
		}
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
