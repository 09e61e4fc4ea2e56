package service

import (
	"strings"

	"github.com/escuelalink/parent-gateway/internal/directus"
	"github.com/escuelalink/parent-gateway/internal/permission"
)

type ChildView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Course   string `json:"course,omitempty"`
	Division string `json:"division,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Selected bool   `json:"selected"`
}

// SessionView is the derived session state sent to clients. It is
// computed fresh on every request from upstream data plus the stored
// child selection; nothing in it is persisted as-is.
type SessionView struct {
	UserID      string      `json:"user_id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        string      `json:"role"`
	Avatar      string      `json:"avatar,omitempty"`
	Children    []ChildView `json:"children"`
	// SelectedChildID is empty only when the guardian has no linked
	// children at all.
	SelectedChildID string   `json:"selected_child_id,omitempty"`
	Collections     []string `json:"collections"`
}

// BuildSessionView derives the client session state. A stored child
// selection that no longer matches a linked child is dropped and the
// first child becomes selected, so a stale or tampered selection can
// never point outside the guardian's own children.
func BuildSessionView(user *directus.User, students []directus.Student, selectedChildID string, snap *permission.Snapshot) SessionView {
	view := SessionView{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: displayName(user),
		Role:        user.Role.Name,
		Avatar:      user.Avatar,
		Collections: snap.AccessibleCollections(),
	}

	selected := ""
	for _, s := range students {
		if s.ID == selectedChildID {
			selected = selectedChildID
			break
		}
	}
	if selected == "" && len(students) > 0 {
		selected = students[0].ID
	}
	view.SelectedChildID = selected

	view.Children = make([]ChildView, 0, len(students))
	for _, s := range students {
		view.Children = append(view.Children, ChildView{
			ID:       s.ID,
			Name:     s.Name,
			Course:   s.Course,
			Division: s.Division,
			Avatar:   s.Avatar,
			Selected: s.ID == selected,
		})
	}
	return view
}

func displayName(user *directus.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		return user.Email
	}
	return name
}
