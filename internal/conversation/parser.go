package conversation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// maxStoredErrors caps ParseResult.Errors; ErrorCount keeps counting.
const maxStoredErrors = 10

// Parser reads Claude Code JSONL session files.
type Parser struct{}

// NewParser creates a new conversation parser.
func NewParser() *Parser {
	return &Parser{}
}

// jsonlMessage represents the raw structure of a Claude Code JSONL message.
type jsonlMessage struct {
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid,omitempty"`
	Type       string          `json:"type"`
	Message    json.RawMessage `json:"message,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
	SessionID  string          `json:"sessionId,omitempty"`
}

// claudeMessage represents the nested message structure.
type claudeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// contentBlock represents a content block in a Claude message.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// ParseFile reads a JSONL file. The session ID defaults to the file name.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return p.Parse(file, strings.TrimSuffix(filepath.Base(path), ".jsonl"))
}

// Parse reads JSONL from r. Malformed lines are recorded and skipped rather
// than failing the whole stream.
func (p *Parser) Parse(r io.Reader, defaultSessionID string) (*ParseResult, error) {
	result := &ParseResult{
		Messages: make([]RawMessage, 0),
		Errors:   make([]ParseError, 0),
	}
	scanner := bufio.NewScanner(r)

	// Increase buffer size for large messages
	const maxScanTokenSize = 10 * 1024 * 1024 // 10MB
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var jm jsonlMessage
		if err := json.Unmarshal(line, &jm); err != nil {
			result.addError(lineNum, fmt.Sprintf("JSON parse error: %v", err))
			continue
		}

		// Only process user and assistant messages
		if jm.Type != "user" && jm.Type != "assistant" {
			continue
		}

		msg, err := p.parseMessage(jm, defaultSessionID)
		if err != nil {
			result.addError(lineNum, fmt.Sprintf("message parse error: %v", err))
			continue
		}
		if msg != nil {
			result.Messages = append(result.Messages, *msg)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning transcript: %w", err)
	}

	return result, nil
}

func (r *ParseResult) addError(line int, msg string) {
	r.ErrorCount++
	if len(r.Errors) < maxStoredErrors {
		r.Errors = append(r.Errors, ParseError{Line: line, Error: msg})
	}
}

// parseMessage converts a jsonlMessage to a RawMessage. It returns nil for
// messages with neither text nor tool calls.
func (p *Parser) parseMessage(jm jsonlMessage, defaultSessionID string) (*RawMessage, error) {
	sessionID := jm.SessionID
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	var timestamp time.Time
	if jm.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, jm.Timestamp)
		if err == nil {
			timestamp = ts
		}
	}

	role := learning.RoleUser
	if jm.Type == "assistant" {
		role = learning.RoleAssistant
	}

	if len(jm.Message) == 0 {
		return nil, nil
	}

	// User messages might be simple strings or structured
	var (
		content   string
		toolCalls []ToolCall
		plain     string
	)
	if err := json.Unmarshal(jm.Message, &plain); err == nil {
		content = plain
	} else {
		var cm claudeMessage
		if err := json.Unmarshal(jm.Message, &cm); err != nil {
			return nil, err
		}
		text, calls, err := extractContent(cm.Content)
		if err != nil {
			return nil, err
		}
		content, toolCalls = text, calls
	}

	content = strings.TrimSpace(content)
	if content == "" && len(toolCalls) == 0 {
		return nil, nil
	}

	return &RawMessage{
		SessionID:  sessionID,
		UUID:       jm.UUID,
		Timestamp:  timestamp,
		Role:       role,
		Content:    content,
		ToolCalls:  toolCalls,
		ParentUUID: jm.ParentUUID,
	}, nil
}

// extractContent extracts text content and tool calls. Content is either a
// plain string or a list of typed blocks.
func extractContent(raw json.RawMessage) (string, []ToolCall, error) {
	if len(raw) == 0 {
		return "", nil, nil
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil, fmt.Errorf("decoding content blocks: %w", err)
	}

	var textParts []string
	var toolCalls []ToolCall
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_use":
			tc := ToolCall{Name: block.Name, Params: make(map[string]string)}
			var inputMap map[string]interface{}
			if err := json.Unmarshal(block.Input, &inputMap); err == nil {
				for k, v := range inputMap {
					tc.Params[k] = fmt.Sprintf("%v", v)
				}
			}
			toolCalls = append(toolCalls, tc)
		case "tool_result":
			// Associate result with previous tool call
			if len(toolCalls) > 0 {
				var s string
				if err := json.Unmarshal(block.Content, &s); err == nil {
					toolCalls[len(toolCalls)-1].Result = s
				}
			}
		}
	}

	return strings.Join(textParts, "\n"), toolCalls, nil
}

// ToTranscript keeps the text of each message in order. Tool-only messages
// carry nothing a user said and are dropped.
func ToTranscript(messages []RawMessage) learning.Transcript {
	t := make(learning.Transcript, 0, len(messages))
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		t = append(t, learning.Turn{Role: m.Role, Text: m.Content})
	}
	return t
}
