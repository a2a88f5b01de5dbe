package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Schedule(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	s := NewScheduler(func() time.Time { return now })

	entries := s.Schedule([]string{"a", "b", "c", "d", "e"})
	require.Len(t, entries, 5)

	wantDays := []int{1, 3, 7, 14, 14}
	for i, e := range entries {
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}[i], e.Concept)
		assert.Equal(t, wantDays[i], e.IntervalDays)
		assert.Equal(t, now.AddDate(0, 0, wantDays[i]), e.NextReviewDate)
	}
}

func TestScheduler_NoConcepts(t *testing.T) {
	s := NewScheduler(nil)
	assert.Empty(t, s.Schedule(nil))
	assert.Empty(t, s.Schedule([]string{}))
}
