package secrets

import (
	"encoding/json"
	"time"
)

// AuditLog records what a Redact call removed. It never holds a secret
// value, only metadata.
type AuditLog struct {
	Timestamp  time.Time   `json:"timestamp"`
	Source     string      `json:"source,omitempty"`
	Redactions []Redaction `json:"redactions"`
	Summary    Summary     `json:"summary"`
}

// Redaction describes one redacted secret.
type Redaction struct {
	RuleID      string `json:"rule_id"`
	RuleDesc    string `json:"rule_desc"`
	LineNumber  int    `json:"line_number"`
	OriginalLen int    `json:"original_len"`
	Preview     string `json:"preview"` // First 4 chars only
}

// Summary provides aggregate statistics about redactions.
type Summary struct {
	TotalSecrets     int            `json:"total_secrets"`
	UniqueRules      int            `json:"unique_rules"`
	RuleCounts       map[string]int `json:"rule_counts"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// JSON returns the audit log as a compact JSON string.
func (a *AuditLog) JSON() string {
	data, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// HasRedactions returns true if any secrets were redacted.
func (a *AuditLog) HasRedactions() bool {
	return len(a.Redactions) > 0
}

// RuleIDs returns the distinct rule IDs that fired.
func (a *AuditLog) RuleIDs() []string {
	ids := make([]string, 0, len(a.Summary.RuleCounts))
	for id := range a.Summary.RuleCounts {
		ids = append(ids, id)
	}
	return ids
}
