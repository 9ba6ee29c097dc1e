package signals

import (
	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

type cueKind int

const (
	cueNegation cueKind = iota + 1
	cueAffirmation
)

// pendingCue is a bare negation or affirmation waiting for the next user
// turn to say what it meant.
type pendingCue struct {
	kind  cueKind
	start int
	// avoid is the assistant action a negation rejected, if one was stated.
	avoid string
}

// detectCue returns a cue if the exchange's user turn is nothing but a
// negation or an affirmation.
func detectCue(ex Exchange) *pendingCue {
	if ex.User == nil {
		return nil
	}
	span := ex.Span()
	switch {
	case bareNegation.MatchString(ex.User.Text):
		cue := &pendingCue{kind: cueNegation, start: span.Start}
		if ex.Assistant != nil {
			cue.avoid = assistantAction(ex.Assistant.Text)
		}
		return cue
	case bareAffirmation.MatchString(ex.User.Text):
		return &pendingCue{kind: cueAffirmation, start: span.Start}
	}
	return nil
}

// complete tries to resolve the cue with the next exchange. m/ok is that
// exchange's own classification. The returned match spans both exchanges.
func (p *pendingCue) complete(ex Exchange, m Match, ok bool) (Match, bool) {
	if ex.User == nil {
		return Match{}, false
	}
	span := learning.Span{Start: p.start, End: ex.Span().End}

	switch p.kind {
	case cueNegation:
		if ok && m.Category == learning.CategoryCorrection {
			if m.Avoid == "" && p.avoid != "" {
				m.Avoid, m.AvoidIsAction = splitAvoid("", p.avoid)
			}
			m.Evidence = span
			return m, true
		}
		sm := cueRedirect.FindStringSubmatch(ex.User.Text)
		if sm == nil {
			return Match{}, false
		}
		prefer := imperative(sm[cueRedirect.SubexpIndex("redirect")], sm[cueRedirect.SubexpIndex("prefer")])
		if prefer == "" {
			return Match{}, false
		}
		out := Match{
			Category: learning.CategoryCorrection,
			Rule:     "cue.negation",
			Evidence: span,
			Prefer:   prefer,
		}
		out.Avoid, out.AvoidIsAction = splitAvoid("", p.avoid)
		return out, true

	case cueAffirmation:
		if ok && m.Category == learning.CategoryApprovedPattern {
			m.Evidence = span
			return m, true
		}
		sm := cueNaming.FindStringSubmatch(ex.User.Text)
		if sm == nil {
			return Match{}, false
		}
		action := cleanPhrase(sm[cueNaming.SubexpIndex("action")])
		if !isNameable(action) {
			return Match{}, false
		}
		if startsWithVerb(action) {
			action = toBaseForm(action)
		}
		return Match{
			Category: learning.CategoryApprovedPattern,
			Rule:     "cue.affirmation",
			Evidence: span,
			Action:   action,
		}, true
	}
	return Match{}, false
}
