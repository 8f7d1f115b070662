// Package claudecode implements the default adapter.Adapter for Claude
// Code's ~/.claude/projects/<hash>/<session>.jsonl journals, following the
// parsing shape (RawMessage/ContentBlock, content-block walk) the teacher
// uses to build its own TUI-facing session view, retargeted at producing
// event.Event values per spec.md §4.2.
package claudecode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcus/tracer/internal/event"
)

// AgentType is the agent_type value stamped on every event this adapter
// produces.
const AgentType = "claude-code"

// trackedTools is the tool-use vocabulary this adapter turns into FileOp
// events (spec.md §4.2 step 4); anything else is ignored.
var trackedTools = map[string]event.Operation{
	"Write":        event.OpCreate,
	"Edit":         event.OpModify,
	"MultiEdit":    event.OpModify,
	"NotebookEdit": event.OpModify,
	"Read":         event.OpRead,
	"Bash":         event.OpExecute,
	"Grep":         event.OpSearch,
	"Glob":         event.OpSearch,
}

// Adapter implements adapter.Adapter for Claude Code.
type Adapter struct {
	hostname   string
	deviceName string
	isRemote   bool
}

// New creates a Claude Code adapter, snapshotting this machine's host
// identity once (it does not change across the daemon's lifetime).
func New() *Adapter {
	return &Adapter{
		hostname:   detectHostname(),
		deviceName: detectDeviceName(),
		isRemote:   detectIsRemote(),
	}
}

func (a *Adapter) AgentType() string     { return AgentType }
func (a *Adapter) FileExtension() string { return ".jsonl" }

// WatchDir returns ~/.claude/projects, the root Claude Code writes one
// subdirectory of journals per project into.
func (a *Adapter) WatchDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects"), nil
}

// ExtractSessionID derives the session id from a journal file's name
// (Claude Code names files "<session-id>.jsonl").
func (a *Adapter) ExtractSessionID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

// ParseLine implements spec.md §4.2's per-record derivation rules.
func (a *Adapter) ParseLine(line []byte, sessionID string, acc *event.Accumulator) ([]event.Event, error) {
	line = trimBOM(line)
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil, nil
	}

	var raw RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		// Malformed record: no events, accumulator untouched (step 6).
		return nil, nil
	}

	switch raw.Type {
	case "user":
		return a.parseUserRecord(&raw, sessionID, acc), nil
	case "assistant":
		return a.parseAssistantRecord(&raw, sessionID, acc), nil
	case "result":
		return a.parseResultRecord(&raw, sessionID, acc), nil
	default:
		return nil, nil
	}
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

// maybeStartSession implements steps 1-2 of spec.md §4.2: the base
// SessionStart the first time cwd is seen at turn 0, then at most one
// backfill SessionStart per newly-discovered branch/model.
func (a *Adapter) maybeStartSession(raw *RawMessage, sessionID string, acc *event.Accumulator) []event.Event {
	var events []event.Event

	if raw.CWD != "" {
		acc.CWD = raw.CWD
	}
	if raw.GitBranch != "" {
		acc.GitBranch = raw.GitBranch
	}
	if raw.Message != nil && raw.Message.Model != "" {
		acc.Model = raw.Message.Model
	}

	if !acc.SessionStartEmitted && acc.TurnNumber == 0 && acc.CWD != "" {
		events = append(events, a.sessionStartEvent(sessionID, raw, acc))
		acc.SessionStartEmitted = true
	}

	if acc.SessionStartEmitted && !acc.BranchEmitted && acc.GitBranch != "" {
		events = append(events, a.sessionStartEvent(sessionID, raw, acc))
		acc.BranchEmitted = true
	}

	if acc.SessionStartEmitted && !acc.ModelEmitted && acc.Model != "" {
		events = append(events, a.sessionStartEvent(sessionID, raw, acc))
		acc.ModelEmitted = true
	}

	return events
}

func (a *Adapter) sessionStartEvent(sessionID string, raw *RawMessage, acc *event.Accumulator) event.Event {
	return event.Event{
		Type:      event.TypeSessionStart,
		SessionID: sessionID,
		Timestamp: raw.Timestamp,
		AgentType: AgentType,
		SessionStart: &event.SessionStart{
			CWD:          acc.CWD,
			GitBranch:    acc.GitBranch,
			Model:        acc.Model,
			AgentVersion: raw.Version,
			Hostname:     a.hostname,
			IsRemote:     a.isRemote,
			DeviceName:   a.deviceName,
		},
	}
}

func (a *Adapter) parseUserRecord(raw *RawMessage, sessionID string, acc *event.Accumulator) []event.Event {
	events := a.maybeStartSession(raw, sessionID, acc)
	if raw.Message == nil || raw.Message.Role != "user" {
		return events
	}

	text := extractText(raw.Message.Content)
	if text == "" {
		// A user record carrying only tool_result blocks (no free text)
		// is not a prompt.
		return events
	}

	acc.TurnNumber++
	events = append(events, event.Event{
		Type:      event.TypePrompt,
		SessionID: sessionID,
		Timestamp: raw.Timestamp,
		AgentType: AgentType,
		Prompt: &event.Prompt{
			PromptText: text,
			TurnNumber: acc.TurnNumber,
		},
	})
	return events
}

func (a *Adapter) parseAssistantRecord(raw *RawMessage, sessionID string, acc *event.Accumulator) []event.Event {
	events := a.maybeStartSession(raw, sessionID, acc)
	if raw.Message == nil {
		return events
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw.Message.Content, &blocks); err != nil {
		return events
	}

	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text == "" {
				continue
			}
			events = append(events, event.Event{
				Type:      event.TypeAgentResponse,
				SessionID: sessionID,
				Timestamp: raw.Timestamp,
				AgentType: AgentType,
				AgentResponse: &event.AgentResponse{
					ResponseText: block.Text,
					ResponseType: event.ResponseText,
					TurnNumber:   acc.TurnNumber,
				},
			})
		case "thinking":
			if block.Thinking == "" {
				continue
			}
			events = append(events, event.Event{
				Type:      event.TypeAgentResponse,
				SessionID: sessionID,
				Timestamp: raw.Timestamp,
				AgentType: AgentType,
				AgentResponse: &event.AgentResponse{
					ResponseText: block.Thinking,
					ResponseType: event.ResponseThinking,
					TurnNumber:   acc.TurnNumber,
				},
			})
		case "tool_use":
			if ev, ok := a.fileOpEvent(block, raw, sessionID, acc); ok {
				events = append(events, ev)
			}
		}
	}
	return events
}

func (a *Adapter) fileOpEvent(block ContentBlock, raw *RawMessage, sessionID string, acc *event.Accumulator) (event.Event, bool) {
	op, tracked := trackedTools[block.Name]
	if !tracked {
		return event.Event{}, false
	}

	var in editInput
	if len(block.Input) > 0 {
		_ = json.Unmarshal(block.Input, &in)
	}

	fileOp := &event.FileOp{
		ToolName:  block.Name,
		Operation: op,
		OldString: in.OldString,
		NewString: in.NewString,
	}

	switch block.Name {
	case "Bash":
		fileOp.FilePath = event.SentinelBash
		fileOp.BashCommand = in.Command
	case "Grep":
		fileOp.FilePath = firstNonEmpty(in.FilePath, event.SentinelGrep)
		fileOp.BashCommand = in.Pattern
	case "Glob":
		fileOp.FilePath = firstNonEmpty(in.FilePath, event.SentinelGlob)
		fileOp.BashCommand = in.Pattern
	default:
		fileOp.FilePath = in.FilePath
	}

	if fileOp.FilePath == "" {
		return event.Event{}, false
	}

	acc.TouchFile(fileOp.FilePath)

	return event.Event{
		Type:      event.TypeFileOp,
		SessionID: sessionID,
		Timestamp: raw.Timestamp,
		AgentType: AgentType,
		FileOp:    fileOp,
	}, true
}

func (a *Adapter) parseResultRecord(raw *RawMessage, sessionID string, acc *event.Accumulator) []event.Event {
	end := &event.SessionEnd{
		Summary:      raw.Result,
		TurnCount:    acc.TurnNumber,
		FilesTouched: acc.FilesTouchedList(),
	}
	if raw.TotalCostUSD != nil {
		end.TotalCostUSD = *raw.TotalCostUSD
	}
	if raw.DurationMS != nil {
		end.DurationMS = *raw.DurationMS
	}
	if raw.Usage != nil {
		end.InputTokens = raw.Usage.InputTokens
		end.OutputTokens = raw.Usage.OutputTokens
		end.CacheReadTokens = raw.Usage.CacheReadInputTokens
	}

	return []event.Event{{
		Type:       event.TypeSessionEnd,
		SessionID:  sessionID,
		Timestamp:  raw.Timestamp,
		AgentType:  AgentType,
		SessionEnd: end,
	}}
}

// extractText pulls the user-visible text out of a message's content
// field, which Claude Code sometimes writes as a bare string and
// sometimes as an array of content blocks.
func extractText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var texts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
