package claudecode

import (
	"encoding/json"
	"time"
)

// RawMessage mirrors one line of a Claude Code session journal, following
// the fields the teacher's adapter reads off the same format (see
// adapter.go's sessionMetadata/Messages). Unknown fields are ignored per
// spec.md §6.
type RawMessage struct {
	Type      string          `json:"type"`
	UUID      string          `json:"uuid"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	CWD       string          `json:"cwd"`
	GitBranch string          `json:"gitBranch"`
	Version   string          `json:"version"`
	Slug      string          `json:"slug"`
	Message   *InnerMessage   `json:"message"`

	// Result-record fields (type == "result").
	TotalCostUSD  *float64 `json:"total_cost_usd,omitempty"`
	DurationMS    *int64   `json:"duration_ms,omitempty"`
	NumTurns      *int     `json:"num_turns,omitempty"`
	Result        string   `json:"result,omitempty"`
	Usage         *Usage   `json:"usage,omitempty"`
}

// InnerMessage is the Anthropic-shaped message payload carried by user and
// assistant records.
type InnerMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *Usage          `json:"usage"`
}

// Usage mirrors the Anthropic token-usage block.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// ContentBlock is one element of an assistant or user message's content
// array.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   interface{}     `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// editInput is the shape of Edit/MultiEdit/Write/NotebookEdit tool inputs
// this adapter cares about.
type editInput struct {
	FilePath  string `json:"file_path"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
	Command   string `json:"command"`
	Pattern   string `json:"pattern"`
}
