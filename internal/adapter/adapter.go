// Package adapter defines the capability set a coding-agent journal format
// implements, per spec.md §9's "dynamic dispatch" note: one small
// interface the supervisor drives, with each agent's parsing logic
// self-contained behind it so a new agent can be added without touching
// the supervisor.
package adapter

import "github.com/marcus/tracer/internal/event"

// Adapter turns one agent's journal format into typed events.
type Adapter interface {
	// AgentType identifies the agent, stored on every derived Event.
	AgentType() string

	// WatchDir returns the directory this adapter's journals live under.
	WatchDir() (string, error)

	// FileExtension returns the journal file suffix this adapter watches
	// for (".jsonl" for Claude Code).
	FileExtension() string

	// ExtractSessionID derives a session id from a journal file's path,
	// used before any record has been parsed (e.g. to seed a
	// SessionAccumulator before the first line is read).
	ExtractSessionID(path string) string

	// ParseLine parses one journal record, mutating acc and returning the
	// events (if any) that record produces. A malformed or non-JSON line
	// returns (nil, nil): no events, and acc is left untouched (spec.md
	// §4.2 step 6).
	ParseLine(line []byte, sessionID string, acc *event.Accumulator) ([]event.Event, error)
}
