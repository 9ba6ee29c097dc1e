package signals

import (
	"strings"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// repeatTracker notices an assistant action that goes through without any
// user reaction in more than one exchange.
type repeatTracker struct {
	first   map[string]int
	emitted map[string]bool
}

func newRepeatTracker() *repeatTracker {
	return &repeatTracker{
		first:   make(map[string]int),
		emitted: make(map[string]bool),
	}
}

// observe records an otherwise unclassified exchange. It returns an
// observation the second time the same action is stated, spanning from the
// first statement to the current reply. Each action is reported once.
func (r *repeatTracker) observe(ex Exchange) (Match, bool) {
	if ex.Assistant == nil || ex.User == nil || sentiment.MatchString(ex.User.Text) {
		return Match{}, false
	}
	action := assistantAction(ex.Assistant.Text)
	if action == "" {
		return Match{}, false
	}

	key := strings.ToLower(action)
	start, seen := r.first[key]
	if !seen {
		r.first[key] = ex.Span().Start
		return Match{}, false
	}
	if r.emitted[key] {
		return Match{}, false
	}
	r.emitted[key] = true

	return Match{
		Category: learning.CategoryObservation,
		Rule:     "observation.repeated-success",
		Evidence: learning.Span{Start: start, End: ex.Span().End},
		Fact:     "the session repeatedly needed to " + action,
	}, true
}
