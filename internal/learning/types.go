// Package learning defines the domain types shared by the session-learning
// pipeline: transcripts, extracted candidates, and persisted learning entries.
package learning

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Role is the speaker of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is a single message in a transcript.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Transcript is an ordered sequence of turns. It is owned by the caller and
// never modified by the pipeline.
type Transcript []Turn

// Category classifies what kind of learning a candidate represents.
type Category string

const (
	// CategoryCorrection is an explicit user correction of an assistant action.
	CategoryCorrection Category = "CORRECTION"
	// CategoryApprovedPattern is explicit user approval of a named action.
	CategoryApprovedPattern Category = "APPROVED_PATTERN"
	// CategoryObservation is a fact or friction point surfaced without sentiment.
	CategoryObservation Category = "OBSERVATION"
)

// Categories lists every category from most to least dominant.
var Categories = []Category{CategoryCorrection, CategoryApprovedPattern, CategoryObservation}

// Rank orders categories by dominance. Higher wins when two categories match
// the same exchange.
func (c Category) Rank() int {
	switch c {
	case CategoryCorrection:
		return 3
	case CategoryApprovedPattern:
		return 2
	case CategoryObservation:
		return 1
	default:
		return 0
	}
}

// Label returns the human-readable label used in the entry header.
func (c Category) Label() string {
	switch c {
	case CategoryCorrection:
		return "Correction"
	case CategoryApprovedPattern:
		return "Approved Pattern"
	case CategoryObservation:
		return "Observation"
	default:
		return string(c)
	}
}

// Confidence returns the fixed confidence tier for the category.
func (c Category) Confidence() (Confidence, error) {
	switch c {
	case CategoryCorrection:
		return ConfidenceHigh, nil
	case CategoryApprovedPattern:
		return ConfidenceMedium, nil
	case CategoryObservation:
		return ConfidenceLow, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
}

// ParseCategoryLabel maps a header label back to its category.
func ParseCategoryLabel(label string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(c.Label(), strings.TrimSpace(label)) {
			return c, true
		}
	}
	return "", false
}

// ParseCategory accepts either the canonical name ("CORRECTION") or a
// lowercase/label spelling ("correction", "approved pattern").
func ParseCategory(s string) (Category, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, c := range Categories {
		if string(c) == norm {
			return c, true
		}
	}
	return "", false
}

// Confidence is the certainty tier of a learning.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ParseConfidence validates a confidence string from the closed set.
func ParseConfidence(s string) (Confidence, bool) {
	switch Confidence(strings.TrimSpace(s)) {
	case ConfidenceHigh:
		return ConfidenceHigh, true
	case ConfidenceMedium:
		return ConfidenceMedium, true
	case ConfidenceLow:
		return ConfidenceLow, true
	}
	return "", false
}

// DateLayout is the on-disk date format of an entry.
const DateLayout = "2006-01-02"

// LearningEntry is a persisted, immutable record in the memory store.
type LearningEntry struct {
	Category   Category   `json:"category"`
	Title      string     `json:"title"`
	Date       time.Time  `json:"date"`
	Confidence Confidence `json:"confidence"`
	Context    string     `json:"context"`
	Body       string     `json:"body"`
}

// Span is an inclusive range of transcript turn indices.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Candidate is an extracted learning awaiting deduplication and formatting.
type Candidate struct {
	Category     Category `json:"category"`
	Evidence     Span     `json:"evidence"`
	DraftTitle   string   `json:"draft_title"`
	DraftContext string   `json:"draft_context"`
	DraftBody    string   `json:"draft_body"`

	// Rule names the classifier rule that produced the candidate.
	Rule string `json:"rule,omitempty"`

	// KnownTitle is the index of an existing entry with the same title, nil
	// when none is known. It is a hint for the deduplicator, not a filtering
	// decision.
	KnownTitle *int `json:"known_title,omitempty"`
}

// Store is the append-only persisted collection of learning entries.
type Store interface {
	// LoadAll returns every entry in append order. A missing backing
	// resource is an empty store.
	LoadAll(ctx context.Context) ([]LearningEntry, error)

	// Append persists one entry atomically.
	Append(ctx context.Context, entry LearningEntry) error
}
