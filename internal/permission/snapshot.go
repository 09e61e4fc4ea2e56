package permission

import "sort"

// Snapshot is an immutable view of a user's effective permissions.
// The zero value is the unloaded snapshot: every check answers false.
// A loaded snapshot never changes; re-initialization always replaces
// the whole value, so callers observe either nothing or everything.
type Snapshot struct {
	loaded  bool
	loadErr error
	entries map[string]Entry
}

// BuildSnapshot merges a flat grant list into a loaded snapshot.
func BuildSnapshot(grants []Grant) *Snapshot {
	return &Snapshot{loaded: true, entries: mergeGrants(grants)}
}

// EmptySnapshot is the fail-closed result of a failed load: loaded,
// no grants, with the causing error retained for diagnostics.
func EmptySnapshot(err error) *Snapshot {
	return &Snapshot{loaded: true, loadErr: err, entries: map[string]Entry{}}
}

func (s *Snapshot) Loaded() bool {
	return s != nil && s.loaded
}

func (s *Snapshot) Err() error {
	if s == nil {
		return nil
	}
	return s.loadErr
}

// Can reports whether the snapshot authorizes action on collection.
// Unloaded snapshots and unknown collections are denied.
func (s *Snapshot) Can(collection string, action Action) bool {
	if !s.Loaded() {
		return false
	}
	return s.entries[collection].allows(action)
}

// CanField reports whether a specific field of collection is readable.
// A collection without a read grant denies every field; an entry with
// the unrestricted-fields sentinel allows any field name, including
// ones never seen before.
func (s *Snapshot) CanField(collection, field string) bool {
	if !s.Loaded() {
		return false
	}
	e, ok := s.entries[collection]
	if !ok || !e.Read {
		return false
	}
	if e.AllFields {
		return true
	}
	for _, f := range e.Fields {
		if f == field || f == FieldWildcard {
			return true
		}
	}
	return false
}

// AccessibleCollections lists every collection with a read grant,
// sorted for stable output; order carries no meaning.
func (s *Snapshot) AccessibleCollections() []string {
	if !s.Loaded() {
		return nil
	}
	out := make([]string, 0, len(s.entries))
	for name, e := range s.entries {
		if e.Read {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Entries returns a copy of the merged per-collection entries.
func (s *Snapshot) Entries() map[string]Entry {
	if !s.Loaded() {
		return map[string]Entry{}
	}
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
