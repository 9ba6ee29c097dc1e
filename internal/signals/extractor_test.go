package signals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

func scan(t *testing.T, transcript learning.Transcript, opts ...Option) []learning.Candidate {
	t.Helper()
	return NewExtractor(opts...).Scan(context.Background(), transcript, nil)
}

func TestScan_CorrectionScenario(t *testing.T) {
	transcript := learning.Transcript{
		user("don't use approach A, use approach B instead"),
		assistant("ok, switching to B"),
	}

	candidates := scan(t, transcript)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, learning.CategoryCorrection, c.Category)
	assert.Equal(t, "Use approach B instead of approach A", c.DraftTitle)
	assert.Contains(t, c.DraftTitle, "approach A")
	assert.Contains(t, c.DraftTitle, "approach B")
	assert.Equal(t, "Applies when choosing between approach A and approach B.", c.DraftContext)
	assert.Equal(t, "Use approach B instead of approach A. The user explicitly corrected this during the session. "+
		"Do not fall back to approach A.", c.DraftBody)
	assert.Equal(t, learning.Span{Start: 0, End: 0}, c.Evidence)
	assert.Equal(t, "correction.negate-redirect", c.Rule)
	assert.Nil(t, c.KnownTitle)

	confidence, err := c.Category.Confidence()
	require.NoError(t, err)
	assert.Equal(t, learning.ConfidenceHigh, confidence)
}

func TestScan_Empty(t *testing.T) {
	candidates := scan(t, learning.Transcript{})
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)

	assert.Empty(t, scan(t, nil))
}

func TestScan_CategoryDominance(t *testing.T) {
	tests := []struct {
		name       string
		transcript learning.Transcript
		title      string
	}{
		{
			name: "praise then correction",
			transcript: learning.Transcript{
				assistant("I added a retry loop around the client."),
				user("Perfect, but don't use sleep, use a ticker instead."),
			},
			title: "Use a ticker instead of sleep",
		},
		{
			name: "correction names a dotted identifier",
			transcript: learning.Transcript{
				assistant("I added a polling loop with time.Sleep."),
				user("Great, but don't use time.Sleep, use a ticker instead"),
			},
			title: "Use a ticker instead of time.Sleep",
		},
		{
			name: "correction outranks an assistant observation",
			transcript: learning.Transcript{
				assistant("The build failed because the vendored module checksum mismatched."),
				user("Great, but don't use fmt.Println, use the logger instead."),
			},
			title: "Use the logger instead of fmt.Println",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := scan(t, tt.transcript)
			require.Len(t, candidates, 1)
			assert.Equal(t, learning.CategoryCorrection, candidates[0].Category)
			assert.Equal(t, tt.title, candidates[0].DraftTitle)
			assert.Equal(t, learning.Span{Start: 0, End: 1}, candidates[0].Evidence)
		})
	}
}

func TestScan_CorrectionForms(t *testing.T) {
	tests := []struct {
		name       string
		transcript learning.Transcript
		title      string
	}{
		{
			name:       "instead of",
			transcript: learning.Transcript{user("Use errgroup instead of a bare WaitGroup.")},
			title:      "Use errgroup instead of a bare WaitGroup",
		},
		{
			name:       "negated dotted identifier",
			transcript: learning.Transcript{user("don't use time.Sleep, use a ticker instead")},
			title:      "Use a ticker instead of time.Sleep",
		},
		{
			name:       "dotted identifier instead of an operator",
			transcript: learning.Transcript{user("use errors.Is instead of ==.")},
			title:      "Use errors.Is instead of ==",
		},
		{
			name:       "prefer over",
			transcript: learning.Transcript{user("I prefer testify over hand-written asserts")},
			title:      "Use testify instead of hand-written asserts",
		},
		{
			name: "no redirect",
			transcript: learning.Transcript{
				assistant("I'll use approach A for the cache."),
				user("no, use approach B"),
			},
			title: "Use approach B instead of approach A for the cache",
		},
		{
			name: "that's wrong",
			transcript: learning.Transcript{
				assistant("I switched the config to JSON."),
				user("that's wrong, use YAML"),
			},
			title: "Use YAML rather than switch the config to JSON",
		},
		{
			name: "prohibition after an action",
			transcript: learning.Transcript{
				assistant("I mocked the database in the handler tests."),
				user("Don't mock the database."),
			},
			title: "Do not mock the database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := scan(t, tt.transcript)
			require.Len(t, candidates, 1)
			assert.Equal(t, learning.CategoryCorrection, candidates[0].Category)
			assert.Equal(t, tt.title, candidates[0].DraftTitle)
		})
	}
}

func TestScan_ApprovedPattern(t *testing.T) {
	tests := []struct {
		name       string
		transcript learning.Transcript
		title      string
	}{
		{
			name: "action named by the assistant",
			transcript: learning.Transcript{
				assistant("I refactored the parser into table-driven tests."),
				user("Perfect!"),
			},
			title: "Refactor the parser into table-driven tests",
		},
		{
			name:       "action named by the user",
			transcript: learning.Transcript{user("the table-driven tests are perfect")},
			title:      "Table-driven tests",
		},
		{
			name:       "keep using",
			transcript: learning.Transcript{user("keep using table-driven tests for parsers")},
			title:      "Use table-driven tests for parsers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := scan(t, tt.transcript)
			require.Len(t, candidates, 1)
			assert.Equal(t, learning.CategoryApprovedPattern, candidates[0].Category)
			assert.Equal(t, tt.title, candidates[0].DraftTitle)
			assert.Contains(t, candidates[0].DraftBody, "Repeat this approach:")
		})
	}
}

func TestScan_PraiseWithoutNameableAction(t *testing.T) {
	tests := []struct {
		name       string
		transcript learning.Transcript
	}{
		{"thanks", learning.Transcript{assistant("I added logging to the worker."), user("thanks")}},
		{"ok", learning.Transcript{assistant("I added logging to the worker."), user("ok")}},
		{"no action stated", learning.Transcript{assistant("Here you go."), user("great!")}},
		{"generic subject", learning.Transcript{assistant("Done."), user("the fix is perfect")}},
		{"negated praise", learning.Transcript{assistant("I added caching to the loader."), user("not great, honestly")}},
		{"praise walked back", learning.Transcript{assistant("I added a polling loop."), user("Great, but it needs a test.")}},
		{"praise with a reservation", learning.Transcript{assistant("I added a polling loop."), user("Looks good, though the names could be shorter.")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, scan(t, tt.transcript))
		})
	}
}

func TestScan_Observation(t *testing.T) {
	tests := []struct {
		name       string
		transcript learning.Transcript
		title      string
		evidence   learning.Span
	}{
		{
			name:       "user turns out",
			transcript: learning.Transcript{user("turns out the integration tests need Docker running.")},
			title:      "The integration tests need Docker running",
			evidence:   learning.Span{Start: 0, End: 0},
		},
		{
			name: "assistant discovery",
			transcript: learning.Transcript{
				assistant("I found that the linter fails on generated files."),
				user("ok"),
			},
			title:    "The linter fails on generated files",
			evidence: learning.Span{Start: 0, End: 1},
		},
		{
			name:       "fact without a clause break is kept whole",
			transcript: learning.Transcript{user("Note: the staging cluster rejects images that are not signed by the release key")},
			title:      "The staging cluster rejects images that are not signed by the release key",
			evidence:   learning.Span{Start: 0, End: 0},
		},
		{
			name:       "title stops at the first clause",
			transcript: learning.Transcript{user("Note: the linter in CI runs with a different config, so local runs pass while CI fails")},
			title:      "The linter in CI runs with a different config",
			evidence:   learning.Span{Start: 0, End: 0},
		},
		{
			name:       "short lead clause is not a title",
			transcript: learning.Transcript{user("Note: in CI, the cache key includes the Go version")},
			title:      "In CI, the cache key includes the Go version",
			evidence:   learning.Span{Start: 0, End: 0},
		},
		{
			name: "long fact is cut at the title length",
			transcript: learning.Transcript{user("Note: the integration suite needs a running Postgres container " +
				"with the pgvector extension preloaded and seeded fixtures")},
			title:    "The integration suite needs a running Postgres container with the pgvector",
			evidence: learning.Span{Start: 0, End: 0},
		},
		{
			name: "failure cause naming a dotted file",
			transcript: learning.Transcript{
				assistant("The build failed because go.sum was missing an entry."),
				user("ok"),
			},
			title:    "The build failed because go.sum was missing an entry",
			evidence: learning.Span{Start: 0, End: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := scan(t, tt.transcript)
			require.Len(t, candidates, 1)
			c := candidates[0]
			assert.Equal(t, learning.CategoryObservation, c.Category)
			assert.Equal(t, tt.title, c.DraftTitle)
			assert.Equal(t, tt.evidence, c.Evidence)
			assert.Contains(t, c.DraftBody, "Remember that ")
		})
	}
}

func TestScan_RepeatedUnremarkedAction(t *testing.T) {
	transcript := learning.Transcript{
		user("the integration job is red again"),
		assistant("I ran go mod tidy to fix the go.sum drift."),
		user("now the unit job is red"),
		assistant("I ran go mod tidy to fix the go.sum drift."),
		user("ok, next the lint job"),
		assistant("I ran go mod tidy to fix the go.sum drift."),
		user("and the release job"),
	}

	candidates := scan(t, transcript)
	require.Len(t, candidates, 1, "an action is reported once")
	c := candidates[0]
	assert.Equal(t, learning.CategoryObservation, c.Category)
	assert.Equal(t, "observation.repeated-success", c.Rule)
	assert.Equal(t, "The session repeatedly needed to run go mod tidy to fix the go.sum drift", c.DraftTitle)
	assert.Equal(t, learning.Span{Start: 1, End: 4}, c.Evidence)
}

func TestScan_RepeatedActionWithReaction(t *testing.T) {
	tests := []struct {
		name       string
		transcript learning.Transcript
	}{
		{
			name: "single statement",
			transcript: learning.Transcript{
				assistant("I ran go mod tidy."),
				user("now the unit job is red"),
			},
		},
		{
			name: "different actions",
			transcript: learning.Transcript{
				assistant("I ran go mod tidy."),
				user("now the unit job is red"),
				assistant("I bumped the linter version."),
				user("now the lint job is red"),
			},
		},
		{
			name: "user objected",
			transcript: learning.Transcript{
				assistant("I ran go mod tidy."),
				user("now the unit job is red"),
				assistant("I ran go mod tidy."),
				user("no, that broke the build"),
			},
		},
		{
			name: "user thanked",
			transcript: learning.Transcript{
				assistant("I ran go mod tidy."),
				user("now the unit job is red"),
				assistant("I ran go mod tidy."),
				user("thanks"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, scan(t, tt.transcript))
		})
	}
}

func TestScan_PendingNegationCompletedByRedirect(t *testing.T) {
	transcript := learning.Transcript{
		assistant("I'll use approach A for the cache."),
		user("no, wait"),
		assistant("What would you prefer?"),
		user("use approach B"),
	}

	candidates := scan(t, transcript)
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, learning.CategoryCorrection, c.Category)
	assert.Equal(t, "Use approach B instead of approach A for the cache", c.DraftTitle)
	assert.Equal(t, learning.Span{Start: 0, End: 3}, c.Evidence)
	assert.Equal(t, "cue.negation", c.Rule)
}

func TestScan_PendingCueClearedByUnrelatedTurn(t *testing.T) {
	transcript := learning.Transcript{
		assistant("I'll use approach A."),
		user("no, wait"),
		assistant("ok"),
		user("let me think about it"),
		assistant("sure"),
		user("use approach B"),
	}

	assert.Empty(t, scan(t, transcript))
}

func TestScan_PendingAffirmationCompletedByNaming(t *testing.T) {
	transcript := learning.Transcript{
		user("perfect!"),
		assistant("Glad it works."),
		user("I mean the retry helper with jitter"),
	}

	candidates := scan(t, transcript)
	require.Len(t, candidates, 1)
	assert.Equal(t, learning.CategoryApprovedPattern, candidates[0].Category)
	assert.Equal(t, "The retry helper with jitter", candidates[0].DraftTitle)
	assert.Equal(t, learning.Span{Start: 0, End: 2}, candidates[0].Evidence)
}

func TestScan_Reassurance(t *testing.T) {
	transcript := learning.Transcript{
		assistant("I'll add a test for that."),
		user("don't worry about it"),
	}
	assert.Empty(t, scan(t, transcript))
}

func TestScan_Idempotent(t *testing.T) {
	transcript := learning.Transcript{
		user("don't use approach A, use approach B instead"),
		assistant("I refactored the parser into table-driven tests."),
		user("Perfect!"),
		user("turns out the integration tests need Docker running."),
	}
	before := append(learning.Transcript(nil), transcript...)

	e := NewExtractor()
	first := e.Scan(context.Background(), transcript, nil)
	second := e.Scan(context.Background(), transcript, nil)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, before, transcript, "transcript must not be modified")

	// Transcript order.
	assert.Equal(t, learning.CategoryCorrection, first[0].Category)
	assert.Equal(t, learning.CategoryApprovedPattern, first[1].Category)
	assert.Equal(t, learning.CategoryObservation, first[2].Category)
}

func TestScan_KnownTitle(t *testing.T) {
	existing := []learning.LearningEntry{
		{Title: "Something else"},
		{Title: "use approach b instead of approach a"},
	}
	candidates := NewExtractor().Scan(context.Background(), learning.Transcript{
		user("don't use approach A, use approach B instead"),
	}, existing)

	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].KnownTitle)
	assert.Equal(t, 1, *candidates[0].KnownTitle)
}

func TestScan_MaxTitleLength(t *testing.T) {
	candidates := scan(t, learning.Transcript{
		user("don't use approach A, use approach B instead"),
	}, WithMaxTitleLength(20))

	require.Len(t, candidates, 1)
	assert.Equal(t, "Use approach B", candidates[0].DraftTitle)
}

type stubClassifier struct{ calls int }

func (s *stubClassifier) Classify(ex Exchange) (Match, bool) {
	s.calls++
	if ex.User == nil {
		return Match{}, false
	}
	return Match{
		Category: learning.CategoryObservation,
		Rule:     "stub",
		Evidence: ex.Span(),
		Fact:     "every user turn is a fact",
	}, true
}

func TestScan_CustomClassifier(t *testing.T) {
	stub := &stubClassifier{}
	candidates := scan(t, learning.Transcript{user("a"), assistant("b"), user("c")}, WithClassifier(stub))

	assert.Equal(t, 2, stub.calls)
	require.Len(t, candidates, 2)
	assert.Equal(t, "stub", candidates[0].Rule)
	assert.Equal(t, learning.Span{Start: 1, End: 2}, candidates[1].Evidence)
}

func TestScan_Logging(t *testing.T) {
	logger := logging.NewTestLogger()
	scan(t, learning.Transcript{user("don't use approach A, use approach B instead")}, WithLogger(logger.Logger))

	logger.AssertLogged(t, zapcore.DebugLevel, "candidate extracted")
	logger.AssertField(t, "candidate extracted", "category", "CORRECTION")
}
