package reflection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/dedup"
	"github.com/fyrsmithlabs/sessionlearn/internal/formatter"
	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
	"github.com/fyrsmithlabs/sessionlearn/internal/signals"
)

const instrumentationName = "github.com/fyrsmithlabs/sessionlearn/internal/reflection"

// Scanner extracts candidates from a transcript.
type Scanner interface {
	Scan(ctx context.Context, transcript learning.Transcript, existing []learning.LearningEntry) []learning.Candidate
}

// Filter separates new candidates from duplicates.
type Filter interface {
	Filter(ctx context.Context, candidates []learning.Candidate, existing []learning.LearningEntry) dedup.FilterResult
}

// EntryFormatter renders an accepted candidate into an entry.
type EntryFormatter interface {
	Format(c learning.Candidate) (learning.LearningEntry, error)
}

// Session composes the pipeline around one memory store. Runs on the same
// Session are serialized; runs in other processes are kept apart by the
// store's own locking.
type Session struct {
	store     learning.Store
	scanner   Scanner
	filter    Filter
	formatter EntryFormatter
	scrubber  Scrubber
	metrics   *Metrics
	logger    *logging.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithScanner replaces the default signal extractor.
func WithScanner(s Scanner) Option {
	return func(sess *Session) {
		if s != nil {
			sess.scanner = s
		}
	}
}

// WithFilter replaces the default deduplicator.
func WithFilter(f Filter) Option {
	return func(sess *Session) {
		if f != nil {
			sess.filter = f
		}
	}
}

// WithFormatter replaces the default entry formatter.
func WithFormatter(f EntryFormatter) Option {
	return func(sess *Session) {
		if f != nil {
			sess.formatter = f
		}
	}
}

// WithScrubber scrubs every entry before it is appended.
func WithScrubber(s Scrubber) Option {
	return func(sess *Session) { sess.scrubber = s }
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(sess *Session) { sess.metrics = m }
}

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(sess *Session) {
		if l != nil {
			sess.logger = l.Named("reflection")
		}
	}
}

// WithTracerProvider sets the provider runs are traced with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(sess *Session) {
		if tp != nil {
			sess.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithClock sets the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(sess *Session) {
		if now != nil {
			sess.now = now
		}
	}
}

// NewSession creates a session over store with the built-in extractor,
// deduplicator and formatter unless replaced by options.
func NewSession(store learning.Store, opts ...Option) *Session {
	s := &Session{
		store:     store,
		scanner:   signals.NewExtractor(),
		filter:    dedup.NewDeduplicator(),
		formatter: formatter.New(),
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(instrumentationName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reflects on one transcript. It returns an error only when the store
// cannot be read, in which case nothing was appended. Candidates that fail
// validation or scrubbing are skipped and entries that fail to append are
// reported; the run continues past both.
func (s *Session) Run(ctx context.Context, transcript learning.Transcript) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	ctx, span := s.tracer.Start(ctx, "reflection.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("transcript.turns", len(transcript)),
	)

	summary := newSummary(runID, logging.SessionIDFromContext(ctx), started)

	existing, err := s.store.LoadAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "memory store unreadable")
		s.observeRun("aborted", started)
		s.logger.Error(ctx, "reflection run aborted", zap.Error(err))
		return nil, fmt.Errorf("loading memory store: %w", err)
	}

	candidates := s.scanner.Scan(ctx, transcript, existing)
	summary.CandidatesFound = len(candidates)
	if s.metrics != nil {
		for _, c := range candidates {
			s.metrics.CandidatesTotal.WithLabelValues(string(c.Category)).Inc()
		}
	}

	filtered := s.filter.Filter(ctx, candidates, existing)
	for _, d := range filtered.Duplicates {
		summary.Duplicates = append(summary.Duplicates, DuplicateSummary{
			Title:        d.Candidate.DraftTitle,
			MatchedTitle: d.MatchedTitle,
			Source:       string(d.Source),
			Similarity:   d.Similarity,
		})
	}

	for _, c := range filtered.Accepted {
		s.persist(ctx, c, summary)
	}

	summary.finish()
	s.record(summary)
	s.observeRun("completed", started)

	span.SetAttributes(
		attribute.Int("entries.new", summary.NewCount),
		attribute.Int("candidates.duplicates", summary.DuplicatesSuppressed),
		attribute.Int("candidates.skipped", len(summary.Skipped)),
		attribute.Int("entries.failed", len(summary.Failed)),
	)
	if len(summary.Failed) > 0 {
		span.SetStatus(codes.Error, "some entries were not saved")
	}

	s.logger.Info(ctx, "reflection run complete",
		zap.Int("candidates", summary.CandidatesFound),
		zap.Int("new", summary.NewCount),
		zap.Int("duplicates", summary.DuplicatesSuppressed),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failed)),
		zap.Duration("duration", s.now().Sub(started)),
	)
	return summary, nil
}

// persist formats, scrubs and appends one accepted candidate, recording the
// outcome on the summary.
func (s *Session) persist(ctx context.Context, c learning.Candidate, summary *Summary) {
	entry, err := s.formatter.Format(c)
	if err != nil {
		summary.Skipped = append(summary.Skipped, ItemError{Title: c.DraftTitle, Reason: err.Error()})
		s.logger.Warn(ctx, "candidate skipped", zap.String("title", c.DraftTitle), zap.Error(err))
		return
	}

	if s.scrubber != nil {
		scrubbed, n, err := s.scrubber.ScrubEntry(ctx, entry)
		if err != nil {
			summary.Skipped = append(summary.Skipped, ItemError{Title: entry.Title, Reason: err.Error()})
			s.logger.Warn(ctx, "candidate skipped", zap.String("title", entry.Title), zap.Error(err))
			return
		}
		if n > 0 {
			summary.SecretsRedacted += n
			s.logger.Warn(ctx, "secrets redacted from entry", zap.Int("count", n))
		}
		entry = scrubbed
	}

	if err := s.store.Append(ctx, entry); err != nil {
		var werr *learning.StoreWriteError
		reason := err.Error()
		if errors.As(err, &werr) && werr.Err != nil {
			reason = werr.Err.Error()
		}
		summary.Failed = append(summary.Failed, ItemError{Title: entry.Title, Reason: reason})
		s.logger.Error(ctx, "entry not saved", zap.String("title", entry.Title), zap.Error(err))
		return
	}

	summary.Entries = append(summary.Entries, EntrySummary{
		Title:      entry.Title,
		Confidence: entry.Confidence,
		Category:   entry.Category,
	})
	s.logger.Debug(ctx, "entry appended",
		zap.String("title", entry.Title),
		zap.String("confidence", string(entry.Confidence)),
	)
}

func (s *Session) record(summary *Summary) {
	if s.metrics == nil {
		return
	}
	for _, e := range summary.Entries {
		s.metrics.EntriesAppendedTotal.WithLabelValues(string(e.Confidence)).Inc()
	}
	s.metrics.DuplicatesSuppressedTotal.Add(float64(summary.DuplicatesSuppressed))
	s.metrics.SkippedTotal.Add(float64(len(summary.Skipped)))
	s.metrics.AppendFailuresTotal.Add(float64(len(summary.Failed)))
	s.metrics.SecretsRedactedTotal.Add(float64(summary.SecretsRedacted))
}

func (s *Session) observeRun(result string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RunsTotal.WithLabelValues(result).Inc()
	s.metrics.RunDuration.Observe(s.now().Sub(started).Seconds())
}
