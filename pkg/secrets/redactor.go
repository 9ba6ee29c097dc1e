package secrets

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Redactor replaces detected secrets with [REDACTED:rule-id:preview]
// markers. The allowlist is loaded once; Redact is safe for concurrent use.
type Redactor struct {
	allowlist *Allowlist
}

// NewRedactor creates a redactor with the merged allowlists at paths.
func NewRedactor(allowlistPaths ...string) (*Redactor, error) {
	allowlist, err := LoadAllowlists(allowlistPaths...)
	if err != nil {
		return nil, fmt.Errorf("loading allowlists: %w", err)
	}
	return &Redactor{allowlist: allowlist}, nil
}

// RedactResult contains redacted content and audit information.
type RedactResult struct {
	Content string   // Redacted content with markers
	Audit   AuditLog // Audit trail of redactions
}

// Redact detects and redacts secrets from content. source labels the audit
// log (an entry title, a file path).
func (r *Redactor) Redact(source, content string) (RedactResult, error) {
	startTime := time.Now()

	findings, err := Detect(content, r.allowlist)
	if err != nil {
		return RedactResult{}, fmt.Errorf("detecting secrets: %w", err)
	}

	audit := buildAuditLog(source, findings, time.Since(startTime))
	if len(findings) == 0 {
		return RedactResult{Content: content, Audit: audit}, nil
	}
	return RedactResult{Content: replaceFindings(content, findings), Audit: audit}, nil
}

// replaceFindings substitutes every occurrence of each secret, longest first
// so a secret containing another is replaced whole.
func replaceFindings(content string, findings []Finding) string {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Match) > len(sorted[j].Match)
	})

	for _, f := range sorted {
		marker := fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, extractPreview(f.Match, 4))
		content = strings.ReplaceAll(content, f.Match, marker)
	}
	return content
}

// extractPreview returns the first n bytes of s.
func extractPreview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// buildAuditLog constructs an audit log from findings and timing information.
func buildAuditLog(source string, findings []Finding, processingTime time.Duration) AuditLog {
	redactions := make([]Redaction, 0, len(findings))
	ruleCounts := make(map[string]int)

	for _, f := range findings {
		redactions = append(redactions, Redaction{
			RuleID:      f.RuleID,
			RuleDesc:    f.RuleDesc,
			LineNumber:  f.Line,
			OriginalLen: len(f.Match),
			Preview:     extractPreview(f.Match, 4),
		})
		ruleCounts[f.RuleID]++
	}

	return AuditLog{
		Timestamp:  time.Now(),
		Source:     source,
		Redactions: redactions,
		Summary: Summary{
			TotalSecrets:     len(findings),
			UniqueRules:      len(ruleCounts),
			RuleCounts:       ruleCounts,
			ProcessingTimeMs: processingTime.Milliseconds(),
		},
	}
}
