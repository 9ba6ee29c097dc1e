package signals

import "github.com/fyrsmithlabs/sessionlearn/internal/learning"

// Exchange is an assistant turn and the user turn that answers it. Either
// side may be absent, never both.
type Exchange struct {
	Assistant      *learning.Turn
	AssistantIndex int
	User           *learning.Turn
	UserIndex      int
}

// Span returns the transcript indices the exchange covers.
func (e Exchange) Span() learning.Span {
	start, end := e.UserIndex, e.UserIndex
	if e.Assistant != nil {
		start = e.AssistantIndex
		if e.User == nil {
			end = e.AssistantIndex
		}
	}
	return learning.Span{Start: start, End: end}
}

// Text returns the text spoken by role in this exchange, or "".
func (e Exchange) Text(role learning.Role) string {
	switch role {
	case learning.RoleUser:
		if e.User != nil {
			return e.User.Text
		}
	case learning.RoleAssistant:
		if e.Assistant != nil {
			return e.Assistant.Text
		}
	}
	return ""
}

// GroupExchanges pairs each user turn with the assistant turn directly
// before it. A user turn without one forms an exchange on its own, as does
// an assistant turn that is followed by another assistant turn or ends the
// transcript. Turns with unknown roles are ignored.
func GroupExchanges(t learning.Transcript) []Exchange {
	exchanges := make([]Exchange, 0, len(t))
	pending := -1

	flush := func() {
		if pending < 0 {
			return
		}
		turn := t[pending]
		exchanges = append(exchanges, Exchange{
			Assistant:      &turn,
			AssistantIndex: pending,
			UserIndex:      -1,
		})
		pending = -1
	}

	for i := range t {
		switch t[i].Role {
		case learning.RoleAssistant:
			flush()
			pending = i
		case learning.RoleUser:
			user := t[i]
			ex := Exchange{User: &user, UserIndex: i, AssistantIndex: -1}
			if pending >= 0 {
				assistant := t[pending]
				ex.Assistant = &assistant
				ex.AssistantIndex = pending
				pending = -1
			}
			exchanges = append(exchanges, ex)
		}
	}
	flush()

	return exchanges
}
