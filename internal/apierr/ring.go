package apierr

import (
	"sync"
	"time"
)

// DefaultLogCapacity bounds the in-memory error log.
const DefaultLogCapacity = 100

// LogEntry is one recorded error with the context it occurred in.
type LogEntry struct {
	At      time.Time `json:"at"`
	Context string    `json:"context"`
	Message string    `json:"message"`
}

// Log is a bounded in-memory ring of recent errors. When full, the oldest
// entry is overwritten. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

// NewLog creates an error log holding at most capacity entries.
// A capacity <= 0 falls back to DefaultLogCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{entries: make([]LogEntry, capacity)}
}

// Record appends err under the given context string. Nil errors are ignored.
func (l *Log) Record(context string, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = LogEntry{At: time.Now(), Context: context, Message: err.Error()}
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// Entries returns the recorded errors, oldest first.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		out := make([]LogEntry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]LogEntry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}
