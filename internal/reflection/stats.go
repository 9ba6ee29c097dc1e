package reflection

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// StoreStatistics summarizes the entries of a memory store.
type StoreStatistics struct {
	TotalEntries int                         `json:"total_entries"`
	ByCategory   map[learning.Category]int   `json:"by_category"`
	ByConfidence map[learning.Confidence]int `json:"by_confidence"`
	FirstDate    time.Time                   `json:"first_date,omitempty"`
	LastDate     time.Time                   `json:"last_date,omitempty"`
}

// CalculateStatistics computes counts per category and confidence and the
// date range of entries.
func CalculateStatistics(entries []learning.LearningEntry) StoreStatistics {
	stats := StoreStatistics{
		TotalEntries: len(entries),
		ByCategory:   make(map[learning.Category]int),
		ByConfidence: make(map[learning.Confidence]int),
	}

	for _, e := range entries {
		stats.ByCategory[e.Category]++
		stats.ByConfidence[e.Confidence]++

		if stats.FirstDate.IsZero() || e.Date.Before(stats.FirstDate) {
			stats.FirstDate = e.Date
		}
		if e.Date.After(stats.LastDate) {
			stats.LastDate = e.Date
		}
	}
	return stats
}

// String renders the statistics on one line.
func (s StoreStatistics) String() string {
	if s.TotalEntries == 0 {
		return "0 entries"
	}
	parts := make([]string, 0, len(learning.Categories))
	for _, c := range learning.Categories {
		if n := s.ByCategory[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(c.Label())))
		}
	}
	noun := "entries"
	if s.TotalEntries == 1 {
		noun = "entry"
	}
	return fmt.Sprintf("%d %s (%s), %s to %s", s.TotalEntries, noun, strings.Join(parts, ", "),
		s.FirstDate.Format(learning.DateLayout), s.LastDate.Format(learning.DateLayout))
}
