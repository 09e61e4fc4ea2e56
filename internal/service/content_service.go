package service

import (
	"context"

	"github.com/escuelalink/parent-gateway/internal/directus"
)

// ContentService proxies content reads to the upstream backend with
// the caller's vaulted token. Field filtering already happened
// upstream; the gateway only decides whether the call may be made at
// all.
type ContentService struct {
	backend Backend
	auth    *AuthService
}

func NewContentService(backend Backend, auth *AuthService) *ContentService {
	return &ContentService{backend: backend, auth: auth}
}

func (s *ContentService) Students(ctx context.Context, userID string) ([]directus.Student, error) {
	token, err := s.auth.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.backend.Students(ctx, token)
}

func (s *ContentService) Announcements(ctx context.Context, userID string, opts directus.ListOptions) ([]directus.Announcement, error) {
	token, err := s.auth.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.backend.Announcements(ctx, token, opts)
}

func (s *ContentService) Events(ctx context.Context, userID string, opts directus.ListOptions) ([]directus.Event, error) {
	token, err := s.auth.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.backend.Events(ctx, token, opts)
}

func (s *ContentService) Conversations(ctx context.Context, userID string, opts directus.ListOptions) ([]directus.Conversation, error) {
	token, err := s.auth.UpstreamToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.backend.Conversations(ctx, token, opts)
}
