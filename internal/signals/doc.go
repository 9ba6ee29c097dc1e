// Package signals scans a session transcript for candidate learnings.
//
// The transcript is grouped into exchanges (an assistant turn and the user
// reply that follows it). Each exchange is classified by ordered regex rules
// into at most one category; when several rules match the same exchange the
// dominant category wins (CORRECTION > APPROVED_PATTERN > OBSERVATION).
//
// Short cues that cannot stand alone, such as "no, wait" or "perfect!", are
// carried to the next user turn and completed there if it names the
// redirect or the approved action. Ambiguous turns yield nothing.
//
// Custom rules can be loaded from TOML files at project and user scope and
// are evaluated before the built-in rules.
package signals
