package permission

import "sort"

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// FieldWildcard is the backend sentinel meaning "every field".
const FieldWildcard = "*"

// Grant is one permission row as returned by the backend: a role may
// perform Action on Collection, optionally limited to a field subset
// or to rows owned by the requesting user.
type Grant struct {
	Collection string   `json:"collection"`
	Action     Action   `json:"action"`
	Fields     []string `json:"fields,omitempty"`
	OwnerOnly  bool     `json:"owner_only,omitempty"`
}

// Entry is the merged per-collection view of all grants a user holds.
// AllFields set means the field list is unrestricted; otherwise Fields
// carries the union of explicitly granted field names.
type Entry struct {
	Create    bool     `json:"can_create"`
	Read      bool     `json:"can_read"`
	Update    bool     `json:"can_update"`
	Delete    bool     `json:"can_delete"`
	OwnerOnly bool     `json:"owner_only"`
	AllFields bool     `json:"all_fields"`
	Fields    []string `json:"fields,omitempty"`
}

func (e Entry) allows(action Action) bool {
	switch action {
	case ActionCreate:
		return e.Create
	case ActionRead:
		return e.Read
	case ActionUpdate:
		return e.Update
	case ActionDelete:
		return e.Delete
	default:
		return false
	}
}

// mergeGrants folds a flat grant list into per-collection entries.
// Actions merge with OR semantics: any grant authorizing an action
// authorizes it for the merged entry. Field sets union; a wildcard in
// any grant lifts the restriction entirely. OwnerOnly survives only
// while every contributing grant carries it.
func mergeGrants(grants []Grant) map[string]Entry {
	entries := make(map[string]Entry, len(grants))
	seen := make(map[string]bool, len(grants))
	fieldSets := make(map[string]map[string]struct{})

	for _, g := range grants {
		if g.Collection == "" {
			continue
		}
		e := entries[g.Collection]
		switch g.Action {
		case ActionCreate:
			e.Create = true
		case ActionRead:
			e.Read = true
		case ActionUpdate:
			e.Update = true
		case ActionDelete:
			e.Delete = true
		default:
			continue
		}
		if !seen[g.Collection] {
			e.OwnerOnly = g.OwnerOnly
			seen[g.Collection] = true
		} else if !g.OwnerOnly {
			e.OwnerOnly = false
		}
		for _, f := range g.Fields {
			if f == FieldWildcard {
				e.AllFields = true
				continue
			}
			set := fieldSets[g.Collection]
			if set == nil {
				set = make(map[string]struct{})
				fieldSets[g.Collection] = set
			}
			set[f] = struct{}{}
		}
		entries[g.Collection] = e
	}

	for collection, e := range entries {
		if e.AllFields {
			e.Fields = nil
			entries[collection] = e
			continue
		}
		set := fieldSets[collection]
		if len(set) == 0 {
			continue
		}
		fields := make([]string, 0, len(set))
		for f := range set {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		e.Fields = fields
		entries[collection] = e
	}
	return entries
}
