package conversation

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// Format identifies a transcript encoding.
type Format string

const (
	// FormatAuto picks the format from the file extension.
	FormatAuto Format = "auto"
	// FormatJSON is a JSON array of {role, text} turns.
	FormatJSON Format = "json"
	// FormatJSONL is a Claude Code JSONL session file.
	FormatJSONL Format = "jsonl"
)

var (
	// ErrUnknownFormat indicates an unsupported transcript format name.
	ErrUnknownFormat = errors.New("unknown transcript format")

	// ErrInvalidRole indicates a turn whose role is neither user nor assistant.
	ErrInvalidRole = errors.New("invalid turn role")
)

// ParseFormat validates a format name. The empty string is FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJSON, FormatJSONL:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// RawMessage represents a parsed message from a Claude Code JSONL file.
type RawMessage struct {
	SessionID  string        `json:"session_id"`
	UUID       string        `json:"uuid"`
	Timestamp  time.Time     `json:"timestamp"`
	Role       learning.Role `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ParentUUID string        `json:"parent_uuid,omitempty"`
}

// ToolCall represents a tool invocation within a message.
type ToolCall struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
	Result string            `json:"result,omitempty"`
}

// ParseError represents a parsing error at a specific line.
type ParseError struct {
	Line  int
	Error string
}

// ParseResult contains messages and any errors encountered during parsing.
type ParseResult struct {
	Messages   []RawMessage
	ErrorCount int
	Errors     []ParseError
}

// Loaded is a transcript ready for reflection.
type Loaded struct {
	Transcript learning.Transcript
	SessionID  string
	Format     Format

	// ParseErrors lists skipped JSONL lines. Always empty for FormatJSON.
	ParseErrors []ParseError
	ErrorCount  int
}
