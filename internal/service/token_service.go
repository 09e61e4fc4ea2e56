package service

import (
	"fmt"
	"time"

	"github.com/escuelalink/parent-gateway/internal/directus"
	"github.com/escuelalink/parent-gateway/internal/domain"
	"github.com/escuelalink/parent-gateway/internal/repository"
	"github.com/escuelalink/parent-gateway/internal/security"
)

type TokenService struct {
	jwtMgr      *security.JWTManager
	sessionRepo repository.SessionRepository
	pepper      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, sessionRepo repository.SessionRepository, pepper string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, sessionRepo: sessionRepo, pepper: pepper, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *TokenService) Issue(user *directus.User, ua, ip, platform string) (access string, refresh string, csrf string, err error) {
	access, err = s.jwtMgr.SignAccessToken(user.ID, user.Email, user.Role.Name, s.accessTTL)
	if err != nil {
		return "", "", "", err
	}
	refresh, err = s.jwtMgr.SignRefreshToken(user.ID, s.refreshTTL)
	if err != nil {
		return "", "", "", err
	}
	hash := security.HashRefreshToken(refresh, s.pepper)
	session := &domain.Session{
		UserID:           user.ID,
		RefreshTokenHash: hash,
		UserAgent:        ua,
		IP:               ip,
		Platform:         platform,
		ExpiresAt:        time.Now().Add(s.refreshTTL),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return "", "", "", err
	}
	csrf, err = security.NewCSRFToken()
	if err != nil {
		return "", "", "", err
	}
	return access, refresh, csrf, nil
}

// Rotate exchanges a valid refresh token for a new token set. The old
// session is revoked first so a replayed token can never mint twice.
func (s *TokenService) Rotate(refreshToken string, userFetcher func(id string) (*directus.User, error), ua, ip string) (access string, newRefresh string, csrf string, userID string, err error) {
	claims, err := s.jwtMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", "", "", "", err
	}
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	session, err := s.sessionRepo.FindValidByHash(hash)
	if err != nil {
		return "", "", "", "", err
	}
	if err := s.sessionRepo.RevokeByHash(hash); err != nil {
		return "", "", "", "", err
	}
	if session.UserID != claims.Subject {
		return "", "", "", "", fmt.Errorf("session mismatch")
	}
	user, err := userFetcher(session.UserID)
	if err != nil {
		return "", "", "", "", err
	}
	access, newRefresh, csrf, err = s.Issue(user, ua, ip, session.Platform)
	if err != nil {
		return "", "", "", "", err
	}
	// The child selection belongs to the login, not to a single
	// refresh cycle, so it survives rotation.
	if session.SelectedChildID != "" {
		if next, err := s.SessionByRefreshToken(newRefresh); err == nil {
			_ = s.sessionRepo.UpdateSelectedChild(next.ID, session.SelectedChildID)
		}
	}
	return access, newRefresh, csrf, session.UserID, nil
}

func (s *TokenService) SessionByRefreshToken(refreshToken string) (*domain.Session, error) {
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	return s.sessionRepo.FindValidByHash(hash)
}

func (s *TokenService) RevokeByRefreshToken(refreshToken string) error {
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	return s.sessionRepo.RevokeByHash(hash)
}

func (s *TokenService) UpdateSelectedChild(sessionID uint, childID string) error {
	return s.sessionRepo.UpdateSelectedChild(sessionID, childID)
}

func (s *TokenService) RevokeAll(userID string) error {
	return s.sessionRepo.RevokeByUserID(userID)
}
