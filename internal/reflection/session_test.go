package reflection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
	"github.com/fyrsmithlabs/sessionlearn/internal/memorystore"
)

var abTranscript = learning.Transcript{
	{Role: learning.RoleUser, Text: "don't use approach A, use approach B instead"},
	{Role: learning.RoleAssistant, Text: "ok, switching to B"},
}

var twoLearnings = learning.Transcript{
	{Role: learning.RoleUser, Text: "don't use approach A, use approach B instead"},
	{Role: learning.RoleAssistant, Text: "ok, switching to B"},
	{Role: learning.RoleUser, Text: "turns out the CI cache ignores vendored modules"},
}

func newFileStore(t *testing.T) *memorystore.FileStore {
	t.Helper()
	store, err := memorystore.NewFileStore(filepath.Join(t.TempDir(), "learnings.md"))
	require.NoError(t, err)
	return store
}

func TestSession_Run_ABScenario(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	summary, err := NewSession(store).Run(ctx, abTranscript)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.CandidatesFound)
	assert.Equal(t, 1, summary.NewCount)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, EntrySummary{
		Title:      "Use approach B instead of approach A",
		Confidence: learning.ConfidenceHigh,
		Category:   learning.CategoryCorrection,
	}, summary.Entries[0])
	assert.Equal(t, "1 new learning recorded", summary.Message)
	assert.Empty(t, summary.Skipped)
	assert.Empty(t, summary.Failed)

	entries, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, learning.ConfidenceHigh, entries[0].Confidence)
	assert.Equal(t, "Applies when choosing between approach A and approach B.", entries[0].Context)
}

func TestSession_Run_SecondRunFindsNothingNew(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)
	session := NewSession(store)

	first, err := session.Run(ctx, twoLearnings)
	require.NoError(t, err)
	require.Equal(t, 2, first.NewCount)

	before, err := store.LoadAll(ctx)
	require.NoError(t, err)

	second, err := session.Run(ctx, twoLearnings)
	require.NoError(t, err)
	assert.Zero(t, second.NewCount)
	assert.Equal(t, 2, second.DuplicatesSuppressed)
	assert.Equal(t, NothingNewMessage, second.Message)
	assert.NotEqual(t, first.RunID, second.RunID)

	after, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "stored entries never change across runs")
}

func TestSession_Run_EmptyTranscript(t *testing.T) {
	store := newFileStore(t)

	summary, err := NewSession(store).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.CandidatesFound)
	assert.Zero(t, summary.NewCount)
	assert.Equal(t, NothingNewMessage, summary.Message)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "nothing to append means no store file")
}

func TestSession_Run_CorruptStoreAborts(t *testing.T) {
	store := newFileStore(t)
	corrupt := []byte("## Correction: Half written\n**Date:** 2026-10-16\n")
	require.NoError(t, os.WriteFile(store.Path(), corrupt, 0600))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	summary, err := NewSession(store, WithMetrics(metrics)).Run(context.Background(), abTranscript)

	require.Error(t, err)
	assert.Nil(t, summary)
	var rerr *learning.StoreReadError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, err.Error(), "inspect the file manually")

	data, readErr := os.ReadFile(store.Path())
	require.NoError(t, readErr)
	assert.Equal(t, corrupt, data, "an aborted run appends nothing")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("aborted")))
}

// flakyStore fails to append corrections.
type flakyStore struct {
	entries []learning.LearningEntry
}

func (s *flakyStore) LoadAll(context.Context) ([]learning.LearningEntry, error) {
	return append([]learning.LearningEntry{}, s.entries...), nil
}

func (s *flakyStore) Append(_ context.Context, e learning.LearningEntry) error {
	if e.Category == learning.CategoryCorrection {
		return &learning.StoreWriteError{Path: "flaky", Title: e.Title, Err: errors.New("disk full")}
	}
	s.entries = append(s.entries, e)
	return nil
}

func TestSession_Run_WriteFailureContinues(t *testing.T) {
	store := &flakyStore{}

	summary, err := NewSession(store).Run(context.Background(), twoLearnings)
	require.NoError(t, err)

	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "Use approach B instead of approach A", summary.Failed[0].Title)
	assert.Equal(t, "disk full", summary.Failed[0].Reason)

	require.Len(t, summary.Entries, 1)
	assert.Equal(t, learning.ConfidenceLow, summary.Entries[0].Confidence)
	assert.Equal(t, "The CI cache ignores vendored modules", summary.Entries[0].Title)
	assert.Len(t, store.entries, 1)
}

// fixedScanner returns the same candidates for any transcript.
type fixedScanner []learning.Candidate

func (f fixedScanner) Scan(context.Context, learning.Transcript, []learning.LearningEntry) []learning.Candidate {
	return f
}

func TestSession_Run_ValidationFailureSkips(t *testing.T) {
	store := newFileStore(t)
	scanner := fixedScanner{
		{
			Category:     learning.CategoryObservation,
			DraftTitle:   "No instruction here",
			DraftContext: "Applies nowhere.",
			DraftBody:    "This body states a fact. It never says what to do.",
		},
		{
			Category:     learning.CategoryApprovedPattern,
			DraftTitle:   "Table-driven tests",
			DraftContext: "Applies to parser tests.",
			DraftBody:    "Repeat this approach: table-driven tests. Keep using it.",
		},
	}

	summary, err := NewSession(store, WithScanner(scanner)).Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "No instruction here", summary.Skipped[0].Title)
	assert.Contains(t, summary.Skipped[0].Reason, "imperative")
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, learning.ConfidenceMedium, summary.Entries[0].Confidence)
}

type countingScrubber struct{ calls int }

func (c *countingScrubber) ScrubEntry(_ context.Context, e learning.LearningEntry) (learning.LearningEntry, int, error) {
	c.calls++
	e.Body = e.Body + " [checked]"
	return e, 1, nil
}

type failingScrubber struct{}

func (failingScrubber) ScrubEntry(_ context.Context, e learning.LearningEntry) (learning.LearningEntry, int, error) {
	return e, 0, errors.New("scanner unavailable")
}

func TestSession_Run_Scrubber(t *testing.T) {
	ctx := context.Background()

	t.Run("applied before append", func(t *testing.T) {
		store := newFileStore(t)
		scrubber := &countingScrubber{}
		summary, err := NewSession(store, WithScrubber(scrubber)).Run(ctx, abTranscript)
		require.NoError(t, err)
		assert.Equal(t, 1, scrubber.calls)
		assert.Equal(t, 1, summary.SecretsRedacted)

		entries, err := store.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Body, "[checked]")
	})

	t.Run("failure skips the entry", func(t *testing.T) {
		store := newFileStore(t)
		summary, err := NewSession(store, WithScrubber(failingScrubber{})).Run(ctx, abTranscript)
		require.NoError(t, err)
		assert.Zero(t, summary.NewCount)
		require.Len(t, summary.Skipped, 1)
		assert.Equal(t, "scanner unavailable", summary.Skipped[0].Reason)
	})
}

func TestSession_Run_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	session := NewSession(newFileStore(t), WithMetrics(metrics))

	_, err := session.Run(ctx, abTranscript)
	require.NoError(t, err)
	_, err = session.Run(ctx, abTranscript)
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CandidatesTotal.WithLabelValues(string(learning.CategoryCorrection))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EntriesAppendedTotal.WithLabelValues(string(learning.ConfidenceHigh))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DuplicatesSuppressedTotal))

	path := filepath.Join(t.TempDir(), "sessionlearn.prom")
	require.NoError(t, WriteTextfile(path, reg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sessionlearn_runs_total{result="completed"} 2`)
	assert.Contains(t, string(data), "sessionlearn_run_duration_seconds_count 2")
}

func TestSession_Run_TracingAndLogging(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tl := logging.NewTestLogger()

	ctx := logging.WithSessionID(context.Background(), "sess-42")
	summary, err := NewSession(newFileStore(t),
		WithTracerProvider(tp),
		WithLogger(tl.Logger),
	).Run(ctx, abTranscript)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", summary.SessionID)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "reflection.run", spans[0].Name())

	tl.AssertLogged(t, zapcore.InfoLevel, "reflection run complete")
	tl.AssertField(t, "reflection run complete", "new", 1)
	tl.AssertField(t, "reflection run complete", "run.id", summary.RunID)
	tl.AssertField(t, "reflection run complete", "session.id", "sess-42")
	tl.AssertTraceCorrelation(t, "reflection run complete")
}
