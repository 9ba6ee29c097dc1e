// Package dedup suppresses candidates that restate an existing learning or
// one accepted earlier in the same run.
//
// Comparison is lexical: each side is reduced to a Signature (normalized
// title tokens plus the first imperative sentence of the body) and scored by
// a Similarity. A score at or above the threshold marks a duplicate.
package dedup

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
	"github.com/fyrsmithlabs/sessionlearn/internal/logging"
)

// DefaultThreshold is the similarity at which a candidate counts as a
// duplicate.
const DefaultThreshold = 0.6

// epsilon keeps the threshold comparison inclusive under float rounding.
const epsilon = 1e-9

// Similarity scores two signatures in [0, 1].
type Similarity interface {
	Similarity(a, b Signature) float64
}

// TokenOverlap is the Jaccard ratio of two token sets.
type TokenOverlap struct{}

// Similarity returns |a ∩ b| / |a ∪ b|, or 0 when both are empty.
func (TokenOverlap) Similarity(a, b Signature) float64 {
	if a.Len() == 0 && b.Len() == 0 {
		return 0
	}
	small, large := a, b
	if small.Len() > large.Len() {
		small, large = large, small
	}
	intersection := 0
	for tok := range small.Tokens {
		if large.Has(tok) {
			intersection++
		}
	}
	union := a.Len() + b.Len() - intersection
	return float64(intersection) / float64(union)
}

// Source tells where a duplicate's match came from.
type Source string

const (
	// SourceExisting is an entry already in the memory store.
	SourceExisting Source = "existing"
	// SourceRun is a candidate accepted earlier in the same run.
	SourceRun Source = "run"
)

// Duplicate reports a suppressed candidate and what it matched.
type Duplicate struct {
	Candidate    learning.Candidate `json:"candidate"`
	MatchedTitle string             `json:"matched_title"`
	Source       Source             `json:"source"`
	MatchIndex   int                `json:"match_index"`
	Similarity   float64            `json:"similarity"`
}

// FilterResult is the outcome of a Filter call. Accepted keeps input order.
type FilterResult struct {
	Accepted   []learning.Candidate `json:"accepted"`
	Duplicates []Duplicate          `json:"duplicates"`
}

// Deduplicator filters candidates against a store snapshot.
type Deduplicator struct {
	threshold  float64
	similarity Similarity
	logger     *logging.Logger
}

// Option configures a Deduplicator.
type Option func(*Deduplicator)

// WithThreshold sets the duplicate threshold. Values outside (0, 1] are
// ignored.
func WithThreshold(t float64) Option {
	return func(d *Deduplicator) {
		if t > 0 && t <= 1 {
			d.threshold = t
		}
	}
}

// WithSimilarity replaces the default TokenOverlap measure.
func WithSimilarity(s Similarity) Option {
	return func(d *Deduplicator) {
		if s != nil {
			d.similarity = s
		}
	}
}

// WithLogger sets the deduplicator logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Deduplicator) {
		if l != nil {
			d.logger = l.Named("dedup")
		}
	}
}

// NewDeduplicator creates a deduplicator with the default threshold and
// similarity unless overridden.
func NewDeduplicator(opts ...Option) *Deduplicator {
	d := &Deduplicator{
		threshold:  DefaultThreshold,
		similarity: TokenOverlap{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Threshold returns the configured threshold.
func (d *Deduplicator) Threshold() float64 { return d.threshold }

type match struct {
	source Source
	index  int
	title  string
	score  float64
}

// Filter splits candidates into accepted ones and duplicates. Each candidate
// is compared with every existing entry, then with candidates accepted
// earlier in this call; the highest score wins and the first match wins a
// tie. A candidate is never compared with itself.
func (d *Deduplicator) Filter(ctx context.Context, candidates []learning.Candidate, existing []learning.LearningEntry) FilterResult {
	result := FilterResult{
		Accepted:   []learning.Candidate{},
		Duplicates: []Duplicate{},
	}

	existingSigs := make([]Signature, len(existing))
	for i, e := range existing {
		existingSigs[i] = EntrySignature(e)
	}
	var acceptedSigs []Signature

	for _, c := range candidates {
		best, found := d.bestMatch(c, existing, existingSigs, result.Accepted, acceptedSigs)
		if found && best.score >= d.threshold-epsilon {
			result.Duplicates = append(result.Duplicates, Duplicate{
				Candidate:    c,
				MatchedTitle: best.title,
				Source:       best.source,
				MatchIndex:   best.index,
				Similarity:   best.score,
			})
			d.logger.Debug(ctx, "duplicate suppressed",
				zap.String("title", c.DraftTitle),
				zap.String("matched_title", best.title),
				zap.String("source", string(best.source)),
				zap.Float64("similarity", best.score),
			)
			continue
		}
		result.Accepted = append(result.Accepted, c)
		acceptedSigs = append(acceptedSigs, CandidateSignature(c))
	}
	return result
}

func (d *Deduplicator) bestMatch(
	c learning.Candidate,
	existing []learning.LearningEntry,
	existingSigs []Signature,
	accepted []learning.Candidate,
	acceptedSigs []Signature,
) (match, bool) {
	if i, ok := knownTitle(c, existing); ok {
		return match{
			source: SourceExisting,
			index:  i,
			title:  existing[i].Title,
			score:  1,
		}, true
	}

	sig := CandidateSignature(c)
	var (
		best  match
		found bool
	)
	consider := func(m match) {
		if !found || m.score > best.score {
			best, found = m, true
		}
	}
	for i, s := range existingSigs {
		consider(match{SourceExisting, i, existing[i].Title, d.similarity.Similarity(sig, s)})
	}
	for i, s := range acceptedSigs {
		consider(match{SourceRun, i, accepted[i].DraftTitle, d.similarity.Similarity(sig, s)})
	}
	return best, found
}

// knownTitle resolves the candidate's title hint. The hint only counts when
// it points at an entry whose title really equals the draft title.
func knownTitle(c learning.Candidate, existing []learning.LearningEntry) (int, bool) {
	if c.KnownTitle == nil {
		return 0, false
	}
	i := *c.KnownTitle
	if i < 0 || i >= len(existing) {
		return 0, false
	}
	if !strings.EqualFold(strings.TrimSpace(existing[i].Title), strings.TrimSpace(c.DraftTitle)) {
		return 0, false
	}
	return i, true
}
