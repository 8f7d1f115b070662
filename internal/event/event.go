// Package event defines the typed activity events the tracer derives from
// a coding agent's journal and the per-session accumulator used to build
// them, per spec.md §3.
package event

import "time"

// Type tags the variant an Event carries.
type Type string

const (
	TypeSessionStart   Type = "session_start"
	TypeSessionEnd     Type = "session_end"
	TypeFileOp         Type = "file_op"
	TypePrompt         Type = "prompt"
	TypeAgentResponse  Type = "agent_response"
)

// Operation classifies a FileOp.
type Operation string

const (
	OpCreate  Operation = "create"
	OpModify  Operation = "modify"
	OpRead    Operation = "read"
	OpExecute Operation = "execute"
	OpSearch  Operation = "search"
)

// ResponseType distinguishes an AgentResponse's content.
type ResponseType string

const (
	ResponseText     ResponseType = "text"
	ResponseThinking ResponseType = "thinking"
)

// Sentinel file paths for tool-use events that have no real file target.
const (
	SentinelBash = "(bash)"
	SentinelGrep = "(grep)"
	SentinelGlob = "(glob)"
)

// Event is the common envelope for every variant. Fields not relevant to a
// variant are left zero. RepoName and UserID are filled later, at routing
// time and send time respectively (spec.md §3) — they are absent on an
// event as produced by the adapter.
type Event struct {
	Type      Type      `json:"event_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id,omitempty"`
	RepoName  string    `json:"repo_name,omitempty"`
	AgentType string    `json:"agent_type"`

	SessionStart *SessionStart `json:"session_start,omitempty"`
	SessionEnd   *SessionEnd   `json:"session_end,omitempty"`
	FileOp       *FileOp       `json:"file_op,omitempty"`
	Prompt       *Prompt       `json:"prompt,omitempty"`
	AgentResponse *AgentResponse `json:"agent_response,omitempty"`
}

// SessionStart carries the fields known at session-start time. A session
// may produce more than one SessionStart event (base, branch-backfill,
// model-backfill) per spec.md §4.2 — each one repeats CWD and any fields
// already known, adding whichever field was just discovered.
type SessionStart struct {
	CWD           string `json:"cwd"`
	GitBranch     string `json:"git_branch,omitempty"`
	GitRemoteURL  string `json:"git_remote_url,omitempty"`
	Model         string `json:"model,omitempty"`
	AgentVersion  string `json:"agent_version,omitempty"`
	Hostname      string `json:"hostname"`
	IsRemote      bool   `json:"is_remote"`
	DeviceName    string `json:"device_name"`
}

// FileOp describes one tool invocation mapped onto the tracked file-op
// vocabulary. OldString/NewString are transient: the sender strips them
// before any event crosses the wire (spec.md §7).
type FileOp struct {
	ToolName     string    `json:"tool_name"`
	FilePath     string    `json:"file_path"`
	Operation    Operation `json:"operation"`
	StartLine    *int      `json:"start_line,omitempty"`
	EndLine      *int      `json:"end_line,omitempty"`
	FunctionName string    `json:"function_name,omitempty"`
	BashCommand  string    `json:"bash_command,omitempty"`

	OldString string `json:"-"`
	NewString string `json:"-"`
}

// Prompt is a user turn.
type Prompt struct {
	PromptText string `json:"prompt_text"`
	TurnNumber int    `json:"turn_number"`
}

// AgentResponse is one assistant content block (text or thinking).
type AgentResponse struct {
	ResponseText string       `json:"response_text"`
	ResponseType ResponseType `json:"response_type"`
	TurnNumber   int          `json:"turn_number"`
}

// SessionEnd summarizes a finished session.
type SessionEnd struct {
	TotalCostUSD    float64  `json:"total_cost_usd"`
	DurationMS      int64    `json:"duration_ms"`
	TurnCount       int      `json:"turn_count"`
	InputTokens     int      `json:"input_tokens"`
	OutputTokens    int      `json:"output_tokens"`
	CacheReadTokens int      `json:"cache_read_tokens"`
	Summary         string   `json:"summary,omitempty"`
	FilesTouched    []string `json:"files_touched"`
}
