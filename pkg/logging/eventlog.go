package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventLevel tags a line in the monitor's append-only event log.
type EventLevel string

const (
	EventInfo    EventLevel = "INFO"
	EventEvent   EventLevel = "EVENT"
	EventCreate  EventLevel = "CREATE"
	EventModify  EventLevel = "MODIFY"
	EventDelete  EventLevel = "DELETE"
	EventMove    EventLevel = "MOVE"
	EventInit    EventLevel = "INIT"
	EventMonitor EventLevel = "MONITOR"
)

// eventTimeLayout is the timestamp format of event log lines.
const eventTimeLayout = "2006-01-02 15:04:05"

// EventLog is the human-readable, append-only monitor log. Lines have
// the form "<timestamp> [<LEVEL>] <message>".
type EventLog struct {
	mu  sync.Mutex
	w   io.Writer
	f   *os.File
	now func() time.Time
}

// OpenEventLog opens (or creates) the event log at path for appending.
func OpenEventLog(path string) (*EventLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &EventLog{w: f, f: f, now: time.Now}, nil
}

// NewEventLogWriter wraps an arbitrary writer, for tests and dry runs.
func NewEventLogWriter(w io.Writer) *EventLog {
	return &EventLog{w: w, now: time.Now}
}

// SetClock overrides the timestamp source.
func (e *EventLog) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Log appends one formatted line. Write failures are returned so the
// caller can degrade to a warning; they never abort processing.
func (e *EventLog) Log(level EventLevel, format string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	line := fmt.Sprintf("%s [%s] %s\n",
		e.now().Format(eventTimeLayout), level, fmt.Sprintf(format, args...))
	if _, err := io.WriteString(e.w, line); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}
	return nil
}

// Flush fsyncs pending writes when backed by a file.
func (e *EventLog) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return nil
	}
	return e.f.Sync()
}

// Close flushes and closes the underlying file, if any.
func (e *EventLog) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return nil
	}
	if err := e.f.Sync(); err != nil {
		e.f.Close()
		return err
	}
	return e.f.Close()
}
