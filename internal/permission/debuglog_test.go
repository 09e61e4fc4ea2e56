package permission

import (
	"strings"
	"testing"
	"time"
)

func TestDebugLogRecordAndExport(t *testing.T) {
	l := NewDebugLog(8)
	l.Record(DeniedCheck{Collection: "students", Action: ActionRead, Message: "guard denied"})
	l.Record(DeniedCheck{Collection: "students", Action: ActionRead, Field: "phone", Message: "field not granted"})

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Timestamp.IsZero() {
		t.Fatal("timestamp not defaulted")
	}

	text := l.ExportAsText()
	if !strings.Contains(text, "students.read") {
		t.Fatalf("export missing denial line:\n%s", text)
	}
	if !strings.Contains(text, "field=phone") {
		t.Fatalf("export missing field detail:\n%s", text)
	}
}

func TestDebugLogRingCap(t *testing.T) {
	l := NewDebugLog(3)
	for i := 0; i < 5; i++ {
		l.Record(DeniedCheck{Collection: "c", Action: ActionRead, Message: string(rune('a' + i))})
	}
	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("ring must cap at 3, got %d", len(entries))
	}
	if entries[0].Message != "c" || entries[2].Message != "e" {
		t.Fatalf("ring order wrong: %+v", entries)
	}
	if !strings.Contains(l.ExportAsText(), "2 older entries dropped") {
		t.Fatal("export must report dropped entries")
	}
}

func TestDebugLogClear(t *testing.T) {
	l := NewDebugLog(4)
	l.Record(DeniedCheck{Collection: "c", Action: ActionRead})
	l.Clear()
	if l.Len() != 0 {
		t.Fatal("clear must empty the log")
	}
	l.Record(DeniedCheck{Collection: "c", Action: ActionUpdate, Timestamp: time.Now()})
	if l.Len() != 1 {
		t.Fatal("log must accept records after clear")
	}
}

func TestDebugLogSubscribe(t *testing.T) {
	l := NewDebugLog(4)
	var got []DeniedCheck
	cancel := l.Subscribe(func(d DeniedCheck) { got = append(got, d) })

	l.Record(DeniedCheck{Collection: "students", Action: ActionRead})
	if len(got) != 1 {
		t.Fatalf("subscriber not notified: %d", len(got))
	}

	cancel()
	l.Record(DeniedCheck{Collection: "students", Action: ActionRead})
	if len(got) != 1 {
		t.Fatal("cancelled subscriber still notified")
	}
}
