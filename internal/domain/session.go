package domain

import "time"

// Session ties a gateway refresh token to the backend user it was
// issued for. UserID is the backend account id (a UUID string), not a
// local row id; the gateway keeps no user table of its own.
type Session struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           string     `gorm:"size:64;not null;index:idx_sessions_user" json:"user_id"`
	RefreshTokenHash string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	UserAgent        string     `gorm:"size:512" json:"user_agent"`
	IP               string     `gorm:"size:64" json:"ip"`
	Platform         string     `gorm:"size:16;not null;default:web" json:"platform"`
	SelectedChildID  string     `gorm:"size:64" json:"selected_child_id"`
	ExpiresAt        time.Time  `gorm:"not null;index:idx_sessions_expiry" json:"expires_at"`
	RevokedAt        *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (s *Session) Revoked() bool { return s.RevokedAt != nil }
