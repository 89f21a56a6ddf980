package observability

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestLog(t testing.TB) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func writeEvents(t testing.TB, log EventLog, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}
}

func ev(at time.Time, eventType string, data map[string]any) Event {
	return Event{Time: at, Level: "INFO", Type: eventType, Data: data}
}
