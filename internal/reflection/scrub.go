package reflection

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/pkg/secrets"
)

// Scrubber removes sensitive values from an entry before it is persisted. It
// returns the cleaned entry and how many values it replaced.
type Scrubber interface {
	ScrubEntry(ctx context.Context, entry learning.LearningEntry) (learning.LearningEntry, int, error)
}

// SecretScrubber redacts secrets from the title, context and body of an
// entry with a Gitleaks redactor.
type SecretScrubber struct {
	redactor *secrets.Redactor
}

// NewSecretScrubber creates a scrubber using the merged allowlists at paths.
func NewSecretScrubber(allowlistPaths ...string) (*SecretScrubber, error) {
	r, err := secrets.NewRedactor(allowlistPaths...)
	if err != nil {
		return nil, err
	}
	return &SecretScrubber{redactor: r}, nil
}

// ScrubEntry scans the three text fields in one pass. Fields are single
// lines once formatted, so they are joined and split on newlines.
func (s *SecretScrubber) ScrubEntry(ctx context.Context, entry learning.LearningEntry) (learning.LearningEntry, int, error) {
	if err := ctx.Err(); err != nil {
		return entry, 0, err
	}
	fields := []string{entry.Title, entry.Context, entry.Body}
	for _, f := range fields {
		if strings.Contains(f, "\n") {
			return entry, 0, fmt.Errorf("scrubbing %q: field spans multiple lines", entry.Title)
		}
	}

	result, err := s.redactor.Redact(entry.Title, strings.Join(fields, "\n"))
	if err != nil {
		return entry, 0, fmt.Errorf("scrubbing %q: %w", entry.Title, err)
	}
	if !result.Audit.HasRedactions() {
		return entry, 0, nil
	}

	parts := strings.Split(result.Content, "\n")
	if len(parts) != len(fields) {
		return entry, 0, fmt.Errorf("scrubbing %q: redaction changed the field layout", entry.Title)
	}
	entry.Title, entry.Context, entry.Body = parts[0], parts[1], parts[2]
	return entry, result.Audit.Summary.TotalSecrets, nil
}

var _ Scrubber = (*SecretScrubber)(nil)
