package reflection

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// NothingNewMessage is the summary message of a run that appended nothing.
const NothingNewMessage = "nothing new found"

// Summary reports the outcome of one reflection run.
type Summary struct {
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id,omitempty"`
	StartedAt time.Time `json:"started_at"`

	NewCount int            `json:"new_count"`
	Entries  []EntrySummary `json:"entries"`

	CandidatesFound      int                `json:"candidates_found"`
	DuplicatesSuppressed int                `json:"duplicates_suppressed"`
	Duplicates           []DuplicateSummary `json:"duplicates"`

	Skipped []ItemError `json:"skipped"`
	Failed  []ItemError `json:"failed"`

	SecretsRedacted int `json:"secrets_redacted"`

	Message string `json:"message"`
}

// EntrySummary describes one appended entry.
type EntrySummary struct {
	Title      string              `json:"title"`
	Confidence learning.Confidence `json:"confidence"`
	Category   learning.Category   `json:"category"`
}

// Line renders the entry as a one-line description with its confidence tier.
func (e EntrySummary) Line() string {
	return fmt.Sprintf("[%s] %s: %s", e.Confidence, e.Category.Label(), e.Title)
}

// DuplicateSummary describes a suppressed candidate.
type DuplicateSummary struct {
	Title        string  `json:"title"`
	MatchedTitle string  `json:"matched_title"`
	Source       string  `json:"source"`
	Similarity   float64 `json:"similarity"`
}

// ItemError is a candidate that was skipped or an entry that failed to save.
type ItemError struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

func newSummary(runID, sessionID string, started time.Time) *Summary {
	return &Summary{
		RunID:      runID,
		SessionID:  sessionID,
		StartedAt:  started,
		Entries:    []EntrySummary{},
		Duplicates: []DuplicateSummary{},
		Skipped:    []ItemError{},
		Failed:     []ItemError{},
	}
}

// finish derives the counters and the message.
func (s *Summary) finish() {
	s.NewCount = len(s.Entries)
	s.DuplicatesSuppressed = len(s.Duplicates)
	switch {
	case s.NewCount == 0:
		s.Message = NothingNewMessage
	case s.NewCount == 1:
		s.Message = "1 new learning recorded"
	default:
		s.Message = fmt.Sprintf("%d new learnings recorded", s.NewCount)
	}
}
