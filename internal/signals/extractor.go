package signals

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

// DefaultMaxTitleLength caps draft titles.
const DefaultMaxTitleLength = 80

// Extractor turns a transcript into candidate learnings.
type Extractor struct {
	classifier     Classifier
	maxTitleLength int
	logger         *logging.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClassifier replaces the built-in rule classifier.
func WithClassifier(c Classifier) Option {
	return func(e *Extractor) {
		if c != nil {
			e.classifier = c
		}
	}
}

// WithMaxTitleLength caps draft titles at n runes.
func WithMaxTitleLength(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTitleLength = n
		}
	}
}

// WithLogger sets the extractor logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l.Named("signals")
		}
	}
}

// NewExtractor creates an extractor using the built-in rules unless a
// classifier is supplied.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		maxTitleLength: DefaultMaxTitleLength,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = NewRuleClassifier()
	}
	return e
}

// Scan classifies every exchange of the transcript and returns candidates in
// transcript order, at most one per exchange. Existing entries only serve to
// mark candidates whose title is already stored; filtering is left to the
// deduplicator. Scan has no side effects and returns the same result for the
// same input.
func (e *Extractor) Scan(ctx context.Context, transcript learning.Transcript, existing []learning.LearningEntry) []learning.Candidate {
	titles := make(map[string]int, len(existing))
	for i, entry := range existing {
		key := strings.ToLower(strings.TrimSpace(entry.Title))
		if _, seen := titles[key]; !seen {
			titles[key] = i
		}
	}

	var (
		candidates []learning.Candidate
		pending    *pendingCue
		repeats    = newRepeatTracker()
	)
	for _, ex := range GroupExchanges(transcript) {
		m, ok := e.classifier.Classify(ex)

		if pending != nil {
			if cm, done := pending.complete(ex, m, ok); done {
				m, ok = cm, true
			}
			pending = nil
		}

		if !ok {
			if pending = detectCue(ex); pending != nil {
				continue
			}
			if m, ok = repeats.observe(ex); !ok {
				continue
			}
		}

		title, situation, body := draft(m, e.maxTitleLength)
		var known *int
		if i, found := titles[strings.ToLower(title)]; found {
			known = &i
		}

		c := learning.Candidate{
			Category:     m.Category,
			Evidence:     m.Evidence,
			DraftTitle:   title,
			DraftContext: situation,
			DraftBody:    body,
			Rule:         m.Rule,
			KnownTitle:   known,
		}
		candidates = append(candidates, c)

		e.logger.Debug(ctx, "candidate extracted",
			zap.String("category", string(c.Category)),
			zap.String("rule", c.Rule),
			zap.String("title", c.DraftTitle),
			zap.Int("evidence_start", c.Evidence.Start),
			zap.Int("evidence_end", c.Evidence.End),
		)
	}

	if candidates == nil {
		candidates = []learning.Candidate{}
	}
	return candidates
}
