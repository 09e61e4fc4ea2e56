package service

import (
	"context"

	"github.com/escuelalink/parent-gateway/internal/directus"
	"github.com/escuelalink/parent-gateway/internal/domain"
	"github.com/escuelalink/parent-gateway/internal/permission"
)

// Backend covers the upstream operations the services depend on. The
// concrete implementation is directus.Client; tests substitute stubs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*directus.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*directus.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*directus.User, error)
	Permissions(ctx context.Context, accessToken string) ([]permission.Grant, error)
	Students(ctx context.Context, accessToken string) ([]directus.Student, error)
	Announcements(ctx context.Context, accessToken string, opts directus.ListOptions) ([]directus.Announcement, error)
	Events(ctx context.Context, accessToken string, opts directus.ListOptions) ([]directus.Event, error)
	Conversations(ctx context.Context, accessToken string, opts directus.ListOptions) ([]directus.Conversation, error)
	AssetURL(assetID, accessToken string, platform directus.Platform) string
}

// AuthProvider is the surface the HTTP layer uses for login, refresh
// and logout. Implemented by AuthService.
type AuthProvider interface {
	Login(ctx context.Context, email, password, ua, ip, platform string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken, ua, ip string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken, userID string) error
	SessionViewFor(ctx context.Context, userID, selectedChildID, platform string) (*SessionView, error)
}

// SessionStore is the per-session state surface the HTTP layer needs.
// Implemented by TokenService.
type SessionStore interface {
	SessionByRefreshToken(refreshToken string) (*domain.Session, error)
	UpdateSelectedChild(sessionID uint, childID string) error
}

// ContentProvider lists backend content on behalf of a user.
// Implemented by ContentService.
type ContentProvider interface {
	Students(ctx context.Context, userID string) ([]directus.Student, error)
	Announcements(ctx context.Context, userID string, opts directus.ListOptions) ([]directus.Announcement, error)
	Events(ctx context.Context, userID string, opts directus.ListOptions) ([]directus.Event, error)
	Conversations(ctx context.Context, userID string, opts directus.ListOptions) ([]directus.Conversation, error)
}

// SnapshotResolver yields the effective permission snapshot for a
// user. Resolution is fail-closed: callers always get a snapshot,
// never a nil.
type SnapshotResolver interface {
	Resolve(ctx context.Context, userID string) *permission.Snapshot
	InvalidateUser(ctx context.Context, userID string) error
}
