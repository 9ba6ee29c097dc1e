package reflection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Output formats understood by FormatSummary.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ValidFormat reports whether format is a known output format.
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatMarkdown, FormatJSON:
		return true
	}
	return false
}

// FormatSummary formats a run summary as text, markdown, or JSON. Unknown
// formats fall back to text.
func FormatSummary(summary *Summary, format string) string {
	switch format {
	case FormatJSON:
		return formatAsJSON(summary)
	case FormatMarkdown:
		return formatAsMarkdown(summary)
	default:
		return formatAsText(summary)
	}
}

func formatAsJSON(summary *Summary) string {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "{}\n"
	}
	return string(data) + "\n"
}

// formatAsMarkdown formats the summary as markdown.
func formatAsMarkdown(summary *Summary) string {
	var sb strings.Builder

	sb.WriteString("# Session Reflection\n\n")
	sb.WriteString(fmt.Sprintf("**Run:** %s\n", summary.RunID))
	if summary.SessionID != "" {
		sb.WriteString(fmt.Sprintf("**Session:** %s\n", summary.SessionID))
	}
	sb.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(capitalizeMessage(summary.Message) + ".\n\n")
	sb.WriteString(fmt.Sprintf("- Candidates found: %d\n", summary.CandidatesFound))
	sb.WriteString(fmt.Sprintf("- New entries: %d\n", summary.NewCount))
	sb.WriteString(fmt.Sprintf("- Duplicates suppressed: %d\n", summary.DuplicatesSuppressed))
	if summary.SecretsRedacted > 0 {
		sb.WriteString(fmt.Sprintf("- Secrets redacted: %d\n", summary.SecretsRedacted))
	}
	sb.WriteString("\n")

	if len(summary.Entries) > 0 {
		sb.WriteString("## New Entries\n\n")
		for _, e := range summary.Entries {
			sb.WriteString(fmt.Sprintf("- **%s** %s: %s\n", e.Confidence, e.Category.Label(), e.Title))
		}
		sb.WriteString("\n")
	}

	if len(summary.Duplicates) > 0 {
		sb.WriteString("## Duplicates\n\n")
		for _, d := range summary.Duplicates {
			sb.WriteString(fmt.Sprintf("- %s (matches %q, %s, %.2f)\n", d.Title, d.MatchedTitle, d.Source, d.Similarity))
		}
		sb.WriteString("\n")
	}

	writeMarkdownItems(&sb, "Skipped", summary.Skipped)
	writeMarkdownItems(&sb, "Not Saved", summary.Failed)

	return sb.String()
}

func writeMarkdownItems(sb *strings.Builder, heading string, items []ItemError) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("## " + heading + "\n\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", item.Title, item.Reason))
	}
	sb.WriteString("\n")
}

// formatAsText formats the summary as plain text.
func formatAsText(summary *Summary) string {
	var sb strings.Builder

	sb.WriteString("SESSION REFLECTION\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString(fmt.Sprintf("Run: %s\n", summary.RunID))
	if summary.SessionID != "" {
		sb.WriteString(fmt.Sprintf("Session: %s\n", summary.SessionID))
	}
	sb.WriteString("\n")

	sb.WriteString(capitalizeMessage(summary.Message) + "\n")
	sb.WriteString(fmt.Sprintf("Candidates: %d  New: %d  Duplicates: %d\n\n",
		summary.CandidatesFound, summary.NewCount, summary.DuplicatesSuppressed))

	if len(summary.Entries) > 0 {
		sb.WriteString("NEW ENTRIES\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, e := range summary.Entries {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, e.Line()))
		}
		sb.WriteString("\n")
	}

	if len(summary.Duplicates) > 0 {
		sb.WriteString("DUPLICATES\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, d := range summary.Duplicates {
			sb.WriteString(fmt.Sprintf("%d. %s\n   matches %q (%s, %.2f)\n", i+1, d.Title, d.MatchedTitle, d.Source, d.Similarity))
		}
		sb.WriteString("\n")
	}

	writeTextItems(&sb, "SKIPPED", summary.Skipped)
	writeTextItems(&sb, "NOT SAVED", summary.Failed)

	if summary.SecretsRedacted > 0 {
		sb.WriteString(fmt.Sprintf("Secrets redacted: %d\n", summary.SecretsRedacted))
	}

	return sb.String()
}

func writeTextItems(sb *strings.Builder, heading string, items []ItemError) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + "\n")
	sb.WriteString(strings.Repeat("-", 20) + "\n")
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n   %s\n", i+1, item.Title, item.Reason))
	}
	sb.WriteString("\n")
}

func capitalizeMessage(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
