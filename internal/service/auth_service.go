package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/escuelalink/parent-gateway/internal/config"
	"github.com/escuelalink/parent-gateway/internal/deeplink"
	"github.com/escuelalink/parent-gateway/internal/directus"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/permission"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrSessionExpired     = errors.New("session expired")
)

// LockedError carries how long the caller must wait before the next
// login attempt will be accepted.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

type LoginResult struct {
	View         SessionView `json:"session"`
	AccessToken  string      `json:"-"`
	RefreshToken string      `json:"-"`
	CSRFToken    string      `json:"csrf_token,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

type AuthService struct {
	cfg      *config.Config
	backend  Backend
	tokenSvc *TokenService
	vault    TokenVault
	lockout  LoginLockout
	resolver SnapshotResolver
	pending  deeplink.PendingStore
}

func NewAuthService(cfg *config.Config, backend Backend, tokenSvc *TokenService, vault TokenVault, lockout LoginLockout, pending deeplink.PendingStore, resolver SnapshotResolver) *AuthService {
	return &AuthService{
		cfg:      cfg,
		backend:  backend,
		tokenSvc: tokenSvc,
		vault:    vault,
		lockout:  lockout,
		resolver: resolver,
		pending:  pending,
	}
}

// SetResolver links the snapshot resolver after construction. The
// resolver uses the service as its grant source, so the two are wired
// in a second step.
func (s *AuthService) SetResolver(r SnapshotResolver) { s.resolver = r }

func (s *AuthService) Login(ctx context.Context, email, password, ua, ip, platform string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	// A failing lockout backend fails open, but loudly: the event is
	// counted so a Redis outage does not disable the guard unnoticed.
	if remaining, err := s.lockout.Check(ctx, email, ip); err != nil {
		observability.RecordLoginLockoutEvent(ctx, "check_error")
	} else if remaining > 0 {
		observability.RecordLoginLockoutEvent(ctx, "rejected_locked")
		return nil, &LockedError{RetryAfter: remaining}
	}

	tokens, err := s.backend.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, directus.ErrUnauthorized) {
			remaining, lockErr := s.lockout.RegisterFailure(ctx, email, ip)
			if lockErr == nil && remaining > 0 {
				observability.RecordLoginLockoutEvent(ctx, "locked")
				return nil, &LockedError{RetryAfter: remaining}
			}
			observability.RecordLoginLockoutEvent(ctx, "failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.lockout.Reset(ctx, email, ip); err == nil {
		observability.RecordLoginLockoutEvent(ctx, "reset")
	}

	user, err := s.backend.CurrentUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := s.vault.Put(ctx, user.ID, tokens, s.cfg.JWTRefreshTTL); err != nil {
		return nil, err
	}

	access, refresh, csrf, err := s.tokenSvc.Issue(user, ua, ip, platform)
	if err != nil {
		return nil, err
	}

	view, err := s.SessionViewFor(ctx, user.ID, "", platform)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		View:         *view,
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrf,
		ExpiresAt:    time.Now().Add(s.cfg.JWTAccessTTL),
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken, ua, ip string) (*LoginResult, error) {
	access, newRefresh, csrf, userID, err := s.tokenSvc.Rotate(refreshToken, func(id string) (*directus.User, error) {
		token, err := s.upstreamToken(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.backend.CurrentUser(ctx, token)
	}, ua, ip)
	if err != nil {
		return nil, ErrSessionExpired
	}

	session, err := s.tokenSvc.SessionByRefreshToken(newRefresh)
	if err != nil {
		return nil, ErrSessionExpired
	}
	view, err := s.SessionViewFor(ctx, userID, session.SelectedChildID, session.Platform)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		View:         *view,
		AccessToken:  access,
		RefreshToken: newRefresh,
		CSRFToken:    csrf,
		ExpiresAt:    time.Now().Add(s.cfg.JWTAccessTTL),
	}, nil
}

// Logout revokes the refresh session and drops everything the
// gateway holds for the user: upstream tokens, cached grants, and the
// upstream refresh session itself.
func (s *AuthService) Logout(ctx context.Context, refreshToken, userID string) error {
	if refreshToken != "" {
		_ = s.tokenSvc.RevokeByRefreshToken(refreshToken)
	}
	if userID == "" {
		return nil
	}
	if tokens, ok, err := s.vault.Get(ctx, userID); err == nil && ok {
		_ = s.backend.Logout(ctx, tokens.RefreshToken)
	}
	if err := s.vault.Delete(ctx, userID); err != nil {
		return err
	}
	if s.pending != nil {
		_ = s.pending.Clear(ctx, userID)
	}
	return s.resolver.InvalidateUser(ctx, userID)
}

// SessionViewFor rebuilds the derived session state for a user. The
// platform decides how avatar asset URLs carry their token.
func (s *AuthService) SessionViewFor(ctx context.Context, userID, selectedChildID, platform string) (*SessionView, error) {
	token, err := s.upstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err := s.backend.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}
	students, err := s.backend.Students(ctx, token)
	if err != nil {
		return nil, err
	}
	snap := s.resolver.Resolve(ctx, userID)
	view := BuildSessionView(user, students, selectedChildID, snap)
	s.resolveAvatarURLs(&view, platform)
	return &view, nil
}

// resolveAvatarURLs turns raw asset ids into fetchable URLs. Web URLs
// embed the shared asset token inline so the browser can load them
// without a preflight; mobile clients attach their bearer header.
func (s *AuthService) resolveAvatarURLs(view *SessionView, platform string) {
	p := directus.PlatformMobile
	if platform == "web" {
		p = directus.PlatformWeb
	}
	if view.Avatar != "" {
		view.Avatar = s.backend.AssetURL(view.Avatar, s.cfg.DirectusAssetToken, p)
	}
	for i := range view.Children {
		if view.Children[i].Avatar != "" {
			view.Children[i].Avatar = s.backend.AssetURL(view.Children[i].Avatar, s.cfg.DirectusAssetToken, p)
		}
	}
}

// FetchGrants satisfies GrantSource using the vaulted upstream token.
func (s *AuthService) FetchGrants(ctx context.Context, userID string) ([]permission.Grant, error) {
	token, err := s.upstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.backend.Permissions(ctx, token)
}

// UpstreamToken exposes the vaulted access token for content proxy
// calls made on the user's behalf.
func (s *AuthService) UpstreamToken(ctx context.Context, userID string) (string, error) {
	return s.upstreamToken(ctx, userID)
}

func (s *AuthService) upstreamToken(ctx context.Context, userID string) (string, error) {
	tokens, ok, err := s.vault.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSessionExpired
	}
	if !upstreamTokenExpired(tokens) {
		return tokens.AccessToken, nil
	}
	refreshed, err := s.backend.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		_ = s.vault.Delete(ctx, userID)
		return "", ErrSessionExpired
	}
	if err := s.vault.Put(ctx, userID, refreshed, s.cfg.JWTRefreshTTL); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// upstreamTokenExpired treats a token within its last 30 seconds as
// already expired so in-flight requests do not race the cutoff.
func upstreamTokenExpired(tokens *directus.Tokens) bool {
	if tokens.Expires <= 0 || tokens.ObtainedAt.IsZero() {
		return false
	}
	return time.Now().After(tokens.ExpiresAt().Add(-30 * time.Second))
}
