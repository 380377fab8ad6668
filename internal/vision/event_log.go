package vision

import (
	"fmt"
	"strings"
	"sync"
)

// Event is one recorded engine event.
type Event struct {
	Seq      uint64  // recomputation sequence number, 0 for scheduler events
	Subject  string  // entity id, or "--" for pass-wide events
	Team     string  // "blue", "red", "neutral" or "--"
	Category string  // ward, decay, zone, pass
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[#042] w-blue-1       blue    ward   disabled       by w-red-3
func (e Event) String() string {
	return fmt.Sprintf("[#%03d] %-14s %-7s %-6s %-14s %s",
		e.Seq, e.Subject, e.Team, e.Category, e.Key, e.Value)
}

// EventLog collects engine events across recomputations. It is safe for
// concurrent use so a decay scheduler and a recompute can share one log.
type EventLog struct {
	mu      sync.Mutex
	entries []Event
	verbose bool
}

// NewEventLog creates an EventLog. If verbose is true, per-pass and per-zone
// entries are also recorded.
func NewEventLog(verbose bool) *EventLog {
	return &EventLog{verbose: verbose}
}

// Add records a new entry.
func (l *EventLog) Add(seq uint64, subject, team, category, key, value string, numVal float64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Event{
		Seq:      seq,
		Subject:  subject,
		Team:     team,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (l *EventLog) AddVerbose(seq uint64, subject, team, category, key, value string, numVal float64) {
	if l == nil || !l.verbose {
		return
	}
	l.Add(seq, subject, team, category, key, value, numVal)
}

// Entries returns a copy of all recorded entries.
func (l *EventLog) Entries() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (l *EventLog) Filter(category, key string) []Event {
	var out []Event
	for _, e := range l.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterSubject returns entries for a specific entity id.
func (l *EventLog) FilterSubject(id string) []Event {
	var out []Event
	for _, e := range l.Entries() {
		if e.Subject == id {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded entries.
func (l *EventLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Format renders every entry, one per line.
func (l *EventLog) Format() string {
	var sb strings.Builder
	for _, e := range l.Entries() {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
