package signals

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// draft renders the title, context and body of a match. Custom rule
// templates win over the category defaults.
func draft(m Match, maxTitle int) (title, context, body string) {
	switch m.Category {
	case learning.CategoryCorrection:
		title, context, body = draftCorrection(m)
	case learning.CategoryApprovedPattern:
		title, context, body = draftApproved(m)
	case learning.CategoryObservation:
		title, context, body = draftObservation(m)
	}

	if m.Title != "" {
		title = m.Title
	}
	if m.Context != "" {
		context = m.Context
	}
	if m.Body != "" {
		body = m.Body
	}
	return truncateTitle(capitalize(title), maxTitle), context, body
}

func draftCorrection(m Match) (title, context, body string) {
	avoidClause := "avoid " + m.Avoid
	if m.AvoidIsAction {
		avoidClause = "do not " + m.Avoid
	}

	switch {
	case m.Prefer != "" && m.Avoid != "":
		joiner := " instead of "
		if m.AvoidIsAction {
			joiner = " rather than "
		}
		title = m.Prefer + joiner + m.Avoid
		context = fmt.Sprintf("Applies when choosing between %s and %s.", m.Avoid, objectOf(m.Prefer))
		fallback := "Do not fall back to " + m.Avoid + "."
		if m.AvoidIsAction {
			fallback = "Do not " + m.Avoid + "."
		}
		body = fmt.Sprintf("%s. The user explicitly corrected this during the session. %s",
			capitalize(title), fallback)

	case m.Prefer != "":
		title = m.Prefer
		context = fmt.Sprintf("Applies whenever %s is an option.", objectOf(m.Prefer))
		body = fmt.Sprintf("%s. The user explicitly redirected the previous approach during the session. "+
			"Stick with it unless told otherwise.", capitalize(m.Prefer))

	default:
		title = avoidClause
		context = fmt.Sprintf("Applies whenever %s comes up.", m.Avoid)
		body = fmt.Sprintf("%s. The user explicitly rejected this during the session.", capitalize(avoidClause))
	}
	return title, context, body
}

func draftApproved(m Match) (title, context, body string) {
	title = m.Action
	context = "Applies when the same kind of task comes up again."
	body = fmt.Sprintf("Repeat this approach: %s. The user explicitly approved it during the session. "+
		"Keep using it unless told otherwise.", m.Action)
	return title, context, body
}

func draftObservation(m Match) (title, context, body string) {
	title = leadClause(m.Fact)
	context = "Surfaced during the session without explicit user feedback."
	body = fmt.Sprintf("Remember that %s. Verify it still holds before relying on it.", lowerFirst(m.Fact))
	return title, context, body
}

// objectOf strips a leading "use " from an instruction.
func objectOf(instruction string) string {
	if rest, ok := strings.CutPrefix(instruction, "use "); ok {
		return rest
	}
	return instruction
}
