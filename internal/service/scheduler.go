package service

import (
	"time"

	"tubequiz/internal/domain"
)

// reviewIntervals are the review delays in days; concepts past the end reuse the last one.
var reviewIntervals = []int{1, 3, 7, 14}

// Scheduler spaces weak concepts over increasing review intervals.
type Scheduler struct {
	now func() time.Time
}

// NewScheduler creates a Scheduler; a nil clock uses time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// Schedule returns one entry per weak concept, in input order.
func (s *Scheduler) Schedule(weakConcepts []string) []domain.SpacingEntry {
	now := s.now()
	entries := make([]domain.SpacingEntry, 0, len(weakConcepts))
	for i, concept := range weakConcepts {
		days := reviewIntervals[min(i, len(reviewIntervals)-1)]
		entries = append(entries, domain.SpacingEntry{
			Concept:        concept,
			NextReviewDate: now.AddDate(0, 0, days),
			IntervalDays:   days,
		})
	}
	return entries
}
