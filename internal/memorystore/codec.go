package memorystore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

const entryTerminator = "---"

var (
	// ErrUnterminatedEntry indicates the resource ends inside an entry block.
	ErrUnterminatedEntry = errors.New("entry block is not terminated by ---")

	// ErrMalformedEntry indicates an entry block violates the block schema.
	ErrMalformedEntry = errors.New("malformed entry block")
)

var (
	headerPattern = regexp.MustCompile(`^##\s+(Correction|Approved Pattern|Observation)\s*:\s*(.+?)\s*$`)
	fieldPattern  = regexp.MustCompile(`^\*\*(Date|Confidence|Context):\*\*\s*(.*?)\s*$`)
)

// EncodeEntry renders an entry in the canonical block format. It rejects
// entries that could not be read back unchanged.
func EncodeEntry(e learning.LearningEntry) ([]byte, error) {
	if err := checkEncodable(e); err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s: %s\n", e.Category.Label(), e.Title)
	fmt.Fprintf(&sb, "**Date:** %s\n", e.Date.Format(learning.DateLayout))
	fmt.Fprintf(&sb, "**Confidence:** %s\n", e.Confidence)
	fmt.Fprintf(&sb, "**Context:** %s\n", e.Context)
	sb.WriteString("\n")
	sb.WriteString(e.Body)
	sb.WriteString("\n\n")
	sb.WriteString(entryTerminator)
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// checkEncodable enforces the invariants of a persisted entry.
func checkEncodable(e learning.LearningEntry) error {
	if _, ok := learning.ParseCategoryLabel(e.Category.Label()); !ok {
		return fmt.Errorf("%w: %q", learning.ErrUnknownCategory, string(e.Category))
	}
	if _, ok := learning.ParseConfidence(string(e.Confidence)); !ok {
		return fmt.Errorf("%w: confidence %q", ErrMalformedEntry, e.Confidence)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date", learning.ErrEmptyField)
	}
	for name, v := range map[string]string{"title": e.Title, "context": e.Context} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", learning.ErrEmptyField, name)
		}
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %s spans multiple lines", ErrMalformedEntry, name)
		}
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("%w: body", learning.ErrEmptyField)
	}
	for _, line := range strings.Split(e.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == entryTerminator || strings.HasPrefix(trimmed, "## ") || fieldPattern.MatchString(trimmed) {
			return fmt.Errorf("%w: body line %q collides with block syntax", ErrMalformedEntry, trimmed)
		}
	}
	return nil
}

// parseError records where decoding failed.
type parseError struct {
	line int
	err  error
}

func (p *parseError) Error() string { return fmt.Sprintf("line %d: %v", p.line, p.err) }
func (p *parseError) Unwrap() error { return p.err }

// blockState tracks which part of an entry block the decoder is in.
type blockState int

const (
	stateOutside blockState = iota
	stateFields
	stateBody
)

// DecodeEntries parses every entry block in r. Free-form text before the first
// block is treated as a preamble and ignored.
func DecodeEntries(r io.Reader) ([]learning.LearningEntry, error) {
	scanner := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var (
		entries   []learning.LearningEntry
		cur       learning.LearningEntry
		seen      map[string]bool
		body      []string
		state     = stateOutside
		lineNum   = 0
		startLine = 0
	)

	fail := func(format string, args ...interface{}) error {
		return &parseError{line: lineNum, err: fmt.Errorf("%w: "+format, append([]interface{}{ErrMalformedEntry}, args...)...)}
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		switch state {
		case stateOutside:
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "## ") {
				if len(entries) == 0 {
					continue // preamble
				}
				return nil, fail("unexpected text between entries: %q", line)
			}
			m := headerPattern.FindStringSubmatch(line)
			if m == nil {
				return nil, fail("unrecognized entry header %q", line)
			}
			category, _ := learning.ParseCategoryLabel(m[1])
			cur = learning.LearningEntry{Category: category, Title: m[2]}
			seen = make(map[string]bool, 3)
			body = body[:0]
			startLine = lineNum
			state = stateFields

		case stateFields:
			if line == "" && len(seen) < 3 {
				continue
			}
			if m := fieldPattern.FindStringSubmatch(line); m != nil {
				name, value := m[1], m[2]
				if seen[name] {
					return nil, fail("duplicate %s field", name)
				}
				seen[name] = true
				switch name {
				case "Date":
					d, err := time.Parse(learning.DateLayout, value)
					if err != nil {
						return nil, fail("invalid date %q", value)
					}
					cur.Date = d
				case "Confidence":
					c, ok := learning.ParseConfidence(value)
					if !ok {
						return nil, fail("invalid confidence %q", value)
					}
					cur.Confidence = c
				case "Context":
					if value == "" {
						return nil, fail("empty context")
					}
					cur.Context = value
				}
				continue
			}
			if len(seen) < 3 {
				return nil, fail("entry %q is missing required fields", cur.Title)
			}
			state = stateBody
			fallthrough

		case stateBody:
			if line == entryTerminator {
				cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
				if cur.Body == "" {
					return nil, fail("entry %q has an empty body", cur.Title)
				}
				entries = append(entries, cur)
				state = stateOutside
				continue
			}
			if strings.HasPrefix(line, "## ") {
				return nil, fail("entry %q starting at line %d is not terminated", cur.Title, startLine)
			}
			body = append(body, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &parseError{line: lineNum, err: err}
	}
	if state != stateOutside {
		return nil, &parseError{line: startLine, err: fmt.Errorf("%w: %q", ErrUnterminatedEntry, cur.Title)}
	}
	return entries, nil
}
