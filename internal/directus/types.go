package directus

import "time"

// Tokens is the session pair issued by the backend on login/refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// Expires is the access token lifetime in milliseconds, as the
	// backend reports it.
	Expires int64 `json:"expires"`
	// ObtainedAt is stamped by the client when the pair is issued so
	// holders can tell when the access token runs out.
	ObtainedAt time.Time `json:"obtained_at,omitempty"`
}

func (t *Tokens) ExpiresAt() time.Time {
	return t.ObtainedAt.Add(time.Duration(t.Expires) * time.Millisecond)
}

type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar,omitempty"`
	Role      Role   `json:"role"`
}

// Student is one child linked to the authenticated guardian.
type Student struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Course   string `json:"course,omitempty"`
	Division string `json:"division,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	StudentID   string    `json:"student,omitempty"`
}

type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at,omitempty"`
	Location  string    `json:"location,omitempty"`
	StudentID string    `json:"student,omitempty"`
}

type Conversation struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	LastMessageAt time.Time `json:"last_message_at"`
	Unread        int       `json:"unread"`
}

// permissionRow is the raw backend permission record before it is
// normalized into a grant.
type permissionRow struct {
	Collection string         `json:"collection"`
	Action     string         `json:"action"`
	Fields     []string       `json:"fields"`
	Rule       map[string]any `json:"permissions"`
}

// ListOptions narrows content queries.
type ListOptions struct {
	Limit     int
	Sort      string
	StudentID string
}
