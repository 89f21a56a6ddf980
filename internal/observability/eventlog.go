package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/valter-silva-au/taskdesk/internal/core"
)

// Event represents a single workflow event.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "task.created", "task.decided"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter specifies criteria for reading events.
type EventFilter struct {
	Since  *time.Time
	Until  *time.Time
	Type   string
	Level  string
	TaskID string
}

// EventLog defines the interface for writing and reading events.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// jsonlEventLog implements EventLog using append-only JSONL files.
type jsonlEventLog struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLEventLog creates a new EventLog backed by a JSONL file at the given path.
func NewJSONLEventLog(path string) (EventLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f}, nil
}

func (l *jsonlEventLog) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	data = append(data, '\n')

	unlock, err := lockFile(l.path + ".lock")
	if err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	defer func() { _ = unlock() }()

	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Read scans the log and returns the events matching filter in file order.
// Malformed lines are skipped.
func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		if matchesEventFilter(event, filter) {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}

func matchesEventFilter(event Event, filter EventFilter) bool {
	if filter.Since != nil && event.Time.Before(*filter.Since) {
		return false
	}
	if filter.Until != nil && event.Time.After(*filter.Until) {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Level != "" && event.Level != filter.Level {
		return false
	}
	if filter.TaskID != "" && taskIDOf(event) != filter.TaskID {
		return false
	}
	return true
}

func taskIDOf(event Event) string {
	id, _ := event.Data["task_id"].(string)
	return id
}

// WorkflowLogger writes core workflow events to an EventLog, choosing the
// level and message from the event type.
type WorkflowLogger struct {
	log EventLog
	now func() time.Time
}

var _ core.EventLogger = (*WorkflowLogger)(nil)

// NewWorkflowLogger returns a core.EventLogger backed by log.
func NewWorkflowLogger(log EventLog) *WorkflowLogger {
	return &WorkflowLogger{log: log, now: func() time.Time { return time.Now().UTC() }}
}

// LogEvent implements core.EventLogger.
func (w *WorkflowLogger) LogEvent(eventType string, data map[string]any) error {
	level, msg := describeEvent(eventType, data)
	return w.log.Write(Event{
		Time:    w.now(),
		Level:   level,
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
}

func describeEvent(eventType string, data map[string]any) (level, msg string) {
	switch eventType {
	case core.EventTaskCreated:
		return "INFO", "task created"
	case core.EventStatusChanged:
		if s, ok := data["new_status"].(string); ok {
			return "INFO", "status changed to " + s
		}
		return "INFO", "status changed"
	case core.EventApprovalRequested:
		return "INFO", "approval requested"
	case core.EventTaskDecided:
		if d, ok := data["decision"].(string); ok {
			return "INFO", "task " + d
		}
		return "INFO", "task decided"
	case core.EventTaskEdited:
		return "INFO", "task edited"
	case core.EventTaskDeleted:
		return "INFO", "task deleted"
	case core.EventMutationFailed:
		return "WARN", "task change rolled back"
	case core.EventSessionExpired:
		return "WARN", "session expired"
	}
	return "INFO", eventType
}
