package deeplink

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Route roots the app navigates to. Deep links whose first segment is
// anything else are dropped.
const (
	RouteNovedades = "novedades"
	RouteAgenda    = "agenda"
	RouteMensajes  = "mensajes"
	RouteAlumnos   = "alumnos"
	RoutePerfil    = "perfil"
)

var allowedRoutes = map[string]struct{}{
	RouteNovedades: {},
	RouteAgenda:    {},
	RouteMensajes:  {},
	RouteAlumnos:   {},
	RoutePerfil:    {},
}

var (
	ErrRejected  = errors.New("deeplink: rejected")
	ErrNoHandler = errors.New("deeplink: allowed route has no handler")
)

// Target is a validated navigation destination. Path always starts
// with "/" and contains no traversal sequences or backslashes.
type Target struct {
	Route string `json:"route"`
	ID    string `json:"id,omitempty"`
	Path  string `json:"path"`
}

// Handler turns a sanitized path and optional trailing identifier into
// a Target for its route.
type Handler func(path, id string) Target

// Resolver validates externally supplied URLs against the fixed route
// allow-list and dispatches to per-route handlers. Rejections are
// silent for the end user: no navigation happens, a warning is logged.
type Resolver struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{handlers: map[string]Handler{}, logger: logger}
	for route := range allowedRoutes {
		r.handlers[route] = defaultHandler(route)
	}
	return r
}

func defaultHandler(route string) Handler {
	return func(path, id string) Target {
		return Target{Route: route, ID: id, Path: path}
	}
}

// SetHandler replaces the handler for an allow-listed route. Setting a
// handler for an unknown route is a programming error.
func (r *Resolver) SetHandler(route string, h Handler) error {
	if _, ok := allowedRoutes[route]; !ok {
		return fmt.Errorf("deeplink: route %q is not allow-listed", route)
	}
	r.handlers[route] = h
	return nil
}

// RemoveHandler unregisters a route's handler. Used in tests to cover
// the allow-listed-but-unhandled logic error path.
func (r *Resolver) RemoveHandler(route string) {
	delete(r.handlers, route)
}

// Resolve parses, validates and sanitizes raw, then dispatches to the
// route handler. Every failure returns ErrRejected (or ErrNoHandler
// for the logic-error case) and logs; no error detail reaches end
// users.
func (r *Resolver) Resolve(raw string) (*Target, error) {
	path, err := pathFromURL(raw)
	if err != nil {
		r.logger.Warn("deeplink rejected", "reason", "unparsable", "url", raw)
		return nil, ErrRejected
	}
	if path == "" || path == "/" {
		r.logger.Warn("deeplink rejected", "reason", "empty_path", "url", raw)
		return nil, ErrRejected
	}

	// The allow-list check runs on the raw first segment, before any
	// cleanup, so a traversal payload can never be massaged into an
	// allowed route.
	route := firstSegment(path)
	if _, ok := allowedRoutes[route]; !ok {
		r.logger.Warn("deeplink rejected", "reason", "route_not_allowed", "segment", route)
		return nil, ErrRejected
	}

	sanitized, err := Sanitize(path)
	if err != nil {
		r.logger.Warn("deeplink rejected", "reason", "sanitize_failed", "url", raw)
		return nil, ErrRejected
	}
	if firstSegment(sanitized) != route {
		r.logger.Warn("deeplink rejected", "reason", "segment_changed_by_sanitize", "segment", route)
		return nil, ErrRejected
	}

	handler, ok := r.handlers[route]
	if !ok {
		// Allow-listed route without a handler is a wiring bug, not an
		// attack; log loudly instead of navigating or panicking.
		r.logger.Error("deeplink route has no handler", "route", route)
		return nil, ErrNoHandler
	}

	target := handler(sanitized, trailingID(sanitized))
	return &target, nil
}

// trailingID extracts the optional identifier segment after the route
// root: "/novedades/123" yields "123", "/novedades" yields "".
func trailingID(sanitized string) string {
	parts := strings.Split(strings.Trim(sanitized, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
