package permission

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DeniedCheck is one denied capability query, recorded for developer
// inspection only. Nothing in the authorization path reads these back.
type DeniedCheck struct {
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	Field      string    `json:"field,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// DebugLog is a bounded in-memory ring of denied checks with optional
// subscriber notification. Purely observational; it never influences
// an authorization decision.
type DebugLog struct {
	mu      sync.Mutex
	cap     int
	entries []DeniedCheck
	start   int
	dropped uint64
	subs    map[int]func(DeniedCheck)
	nextSub int
}

func NewDebugLog(capacity int) *DebugLog {
	if capacity <= 0 {
		capacity = 256
	}
	return &DebugLog{cap: capacity, subs: map[int]func(DeniedCheck){}}
}

func (l *DebugLog) Record(d DeniedCheck) {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	if len(l.entries) < l.cap {
		l.entries = append(l.entries, d)
	} else {
		l.entries[l.start] = d
		l.start = (l.start + 1) % l.cap
		l.dropped++
	}
	subs := make([]func(DeniedCheck), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(d)
	}
}

// Subscribe registers fn for every future record; the returned func
// removes the subscription.
func (l *DebugLog) Subscribe(fn func(DeniedCheck)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

// Entries returns the recorded denials, oldest first.
func (l *DebugLog) Entries() []DeniedCheck {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DeniedCheck, 0, len(l.entries))
	for i := 0; i < len(l.entries); i++ {
		out = append(out, l.entries[(l.start+i)%len(l.entries)])
	}
	return out
}

func (l *DebugLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.start = 0
	l.dropped = 0
	l.mu.Unlock()
}

func (l *DebugLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ExportAsText renders a flat human-readable report of all denials.
func (l *DebugLog) ExportAsText() string {
	l.mu.Lock()
	dropped := l.dropped
	l.mu.Unlock()

	entries := l.Entries()
	var b strings.Builder
	fmt.Fprintf(&b, "permission denials: %d recorded", len(entries))
	if dropped > 0 {
		fmt.Fprintf(&b, " (%d older entries dropped)", dropped)
	}
	b.WriteString("\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s.%s", e.Timestamp.Format(time.RFC3339), e.Collection, e.Action)
		if e.Field != "" {
			fmt.Fprintf(&b, " field=%s", e.Field)
		}
		if e.Message != "" {
			fmt.Fprintf(&b, "  %s", e.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}
