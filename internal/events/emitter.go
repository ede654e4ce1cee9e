// Package events is the structured event log: every notable thing the
// service does is emitted as a named event, kept in memory, streamed to
// websocket subscribers and optionally persisted.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var buffer = NewRingBuffer(256)

// Store persists events. *postgres.Client implements it.
type Store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, requestID string) error
}

var (
	store         Store
	storeMu       sync.RWMutex
	storeErrorSet bool

	output   io.Writer
	outputMu sync.Mutex

	total atomic.Uint64
)

// SetStore sets the store used for event persistence. nil disables it.
func SetStore(s Store) {
	storeMu.Lock()
	store = s
	storeErrorSet = false
	storeMu.Unlock()
}

// SetOutput makes Emit also write each event as a JSON line to w.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event and returns its JSON encoding. The name must be one
// of the registered event names.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	total.Add(1)
	persist(ts, e)
	broadcast(e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	outputMu.Lock()
	if output != nil {
		fmt.Fprintln(output, string(b))
	}
	outputMu.Unlock()

	return b, nil
}

func persist(ts time.Time, e Event) {
	storeMu.RLock()
	s := store
	storeMu.RUnlock()
	if s == nil {
		return
	}

	requestID, _ := e.Fields["request_id"].(string)
	err := s.Append(ts, e.Level, e.Name, e.Message, e.Fields, requestID)
	if err == nil {
		return
	}

	// Reported once, straight into the buffer: going through Emit would
	// recurse while the store keeps failing.
	storeMu.Lock()
	first := !storeErrorSet
	storeErrorSet = true
	storeMu.Unlock()
	if !first {
		return
	}

	errEvent := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     "error",
		Name:      "system.error",
		Message:   "event store append failed",
		Fields: map[string]interface{}{
			"error": err.Error(),
		},
	}
	buffer.Add(errEvent)
	total.Add(1)
	broadcast(errEvent)
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// Buffered returns how many events the in-memory buffer currently holds.
func Buffered() int {
	return buffer.Len()
}

// TotalCount returns how many events were emitted since start, including
// ones already evicted from the buffer.
func TotalCount() uint64 {
	return total.Load()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
