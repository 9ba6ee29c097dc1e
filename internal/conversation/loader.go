package conversation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// DecodeJSON reads a JSON array of {role, text} turns.
func DecodeJSON(r io.Reader) (learning.Transcript, error) {
	var turns []learning.Turn
	dec := json.NewDecoder(r)
	if err := dec.Decode(&turns); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}

	for i, t := range turns {
		if !t.Role.Valid() {
			return nil, fmt.Errorf("turn %d: %w: %q", i, ErrInvalidRole, t.Role)
		}
	}
	if turns == nil {
		turns = []learning.Turn{}
	}
	return learning.Transcript(turns), nil
}

// DetectFormat resolves FormatAuto from the file extension.
func DetectFormat(path string, format Format) Format {
	if format != FormatAuto && format != "" {
		return format
	}
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return FormatJSONL
	}
	return FormatJSON
}

// Load reads the transcript at path in the given format.
func Load(path string, format Format) (*Loaded, error) {
	format = DetectFormat(path, format)
	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch format {
	case FormatJSONL:
		result, err := NewParser().ParseFile(path)
		if err != nil {
			return nil, err
		}
		if len(result.Messages) > 0 && result.Messages[0].SessionID != "" {
			sessionID = result.Messages[0].SessionID
		}
		return &Loaded{
			Transcript:  ToTranscript(result.Messages),
			SessionID:   sessionID,
			Format:      FormatJSONL,
			ParseErrors: result.Errors,
			ErrorCount:  result.ErrorCount,
		}, nil

	case FormatJSON:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		transcript, err := DecodeJSON(f)
		if err != nil {
			return nil, err
		}
		return &Loaded{
			Transcript: transcript,
			SessionID:  sessionID,
			Format:     FormatJSON,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
