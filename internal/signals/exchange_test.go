package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

func user(text string) learning.Turn      { return learning.Turn{Role: learning.RoleUser, Text: text} }
func assistant(text string) learning.Turn { return learning.Turn{Role: learning.RoleAssistant, Text: text} }

func TestGroupExchanges(t *testing.T) {
	transcript := learning.Transcript{
		assistant("first"),
		assistant("second"),
		user("reply to second"),
		user("follow-up"),
		{Role: "system", Text: "ignored"},
		assistant("trailing"),
	}

	exchanges := GroupExchanges(transcript)
	require.Len(t, exchanges, 4)

	assert.Equal(t, "first", exchanges[0].Text(learning.RoleAssistant))
	assert.Nil(t, exchanges[0].User)
	assert.Equal(t, learning.Span{Start: 0, End: 0}, exchanges[0].Span())

	assert.Equal(t, "second", exchanges[1].Text(learning.RoleAssistant))
	assert.Equal(t, "reply to second", exchanges[1].Text(learning.RoleUser))
	assert.Equal(t, learning.Span{Start: 1, End: 2}, exchanges[1].Span())

	assert.Nil(t, exchanges[2].Assistant)
	assert.Equal(t, "follow-up", exchanges[2].Text(learning.RoleUser))
	assert.Equal(t, learning.Span{Start: 3, End: 3}, exchanges[2].Span())

	assert.Equal(t, "trailing", exchanges[3].Text(learning.RoleAssistant))
	assert.Equal(t, "", exchanges[3].Text(learning.RoleUser))
	assert.Equal(t, learning.Span{Start: 5, End: 5}, exchanges[3].Span())
}

func TestGroupExchanges_DoesNotAliasTranscript(t *testing.T) {
	transcript := learning.Transcript{assistant("a"), user("b")}
	exchanges := GroupExchanges(transcript)
	require.Len(t, exchanges, 1)

	exchanges[0].User.Text = "changed"
	assert.Equal(t, "b", transcript[1].Text)
}

func TestGroupExchanges_Empty(t *testing.T) {
	assert.Empty(t, GroupExchanges(nil))
}
