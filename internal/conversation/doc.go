// Package conversation loads session transcripts for reflection.
//
// Two input formats are supported:
//   - A JSON array of turns: [{"role":"user","text":"..."}]
//   - Claude Code JSONL session files, as found under ~/.claude/projects/
//
// JSONL parsing is tolerant: malformed lines are counted and reported in the
// ParseResult rather than failing the whole file. Messages carrying only tool
// calls have no text and are dropped when building a transcript.
package conversation
