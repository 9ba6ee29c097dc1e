// Package formatter renders accepted candidates into learning entries ready
// for the memory store.
package formatter

import (
	"strings"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// MaxBodySentences is the most sentences an entry body keeps.
const MaxBodySentences = 3

// Formatter turns candidates into entries. It has no side effects; the date
// comes from the injected clock.
type Formatter struct {
	now func() time.Time
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock sets the clock used to date entries.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		if now != nil {
			f.now = now
		}
	}
}

// New creates a Formatter dated by time.Now unless a clock is supplied.
func New(opts ...Option) *Formatter {
	f := &Formatter{now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format maps the candidate category to its confidence, reduces the context
// to one sentence and the body to at most MaxBodySentences while keeping its
// first instruction, and stamps today's date. Failures are
// *learning.ValidationError.
func (f *Formatter) Format(c learning.Candidate) (learning.LearningEntry, error) {
	title := collapse(c.DraftTitle)

	confidence, err := c.Category.Confidence()
	if err != nil {
		return learning.LearningEntry{}, invalid(title, "category", "not a known category", err)
	}
	if title == "" {
		return learning.LearningEntry{}, invalid(title, "title", "empty after trimming", learning.ErrEmptyField)
	}

	context := firstSentence(c.DraftContext)
	if context == "" {
		return learning.LearningEntry{}, invalid(title, "context", "empty after trimming", learning.ErrEmptyField)
	}

	body, err := trimBody(c.DraftBody)
	if err != nil {
		return learning.LearningEntry{}, invalid(title, "body", reasonFor(err), err)
	}

	for field, v := range map[string]string{"title": title, "context": context, "body": body} {
		if collidesWithBlock(v) {
			return learning.LearningEntry{}, invalid(title, field, "starts with entry block syntax", nil)
		}
	}

	y, m, d := f.now().Date()
	return learning.LearningEntry{
		Category:   c.Category,
		Title:      title,
		Date:       time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Confidence: confidence,
		Context:    context,
		Body:       body,
	}, nil
}

// trimBody keeps the first MaxBodySentences sentences. When the first
// instruction sits further down it replaces the last kept sentence.
func trimBody(body string) (string, error) {
	sentences := learning.SplitSentences(collapse(body))
	if len(sentences) == 0 {
		return "", learning.ErrEmptyField
	}

	first := -1
	for i, s := range sentences {
		if learning.IsImperative(s) {
			first = i
			break
		}
	}
	if first < 0 {
		return "", learning.ErrNoInstruction
	}

	if len(sentences) > MaxBodySentences {
		kept := append([]string{}, sentences[:MaxBodySentences]...)
		if first >= MaxBodySentences {
			kept[MaxBodySentences-1] = sentences[first]
		}
		sentences = kept
	}
	return strings.Join(sentences, " "), nil
}

func firstSentence(s string) string {
	sentences := learning.SplitSentences(collapse(s))
	if len(sentences) == 0 {
		return ""
	}
	return sentences[0]
}

// collapse joins all whitespace runs, newlines included, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collidesWithBlock(s string) bool {
	return strings.HasPrefix(s, "## ") || strings.HasPrefix(s, "---") || strings.HasPrefix(s, "**")
}

func reasonFor(err error) string {
	switch err {
	case learning.ErrNoInstruction:
		return "no imperative sentence to keep"
	case learning.ErrEmptyField:
		return "empty after trimming"
	}
	return err.Error()
}

func invalid(title, field, reason string, err error) *learning.ValidationError {
	return &learning.ValidationError{Title: title, Field: field, Reason: reason, Err: err}
}
