package mocks

import (
	"slices"
	"sync"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
)

// RecordingScheduler remembers which orders were scheduled and cancelled.
type RecordingScheduler struct {
	mu          sync.Mutex
	scheduled   []int64
	cancelled   []int64
	ScheduleErr error
}

var _ application.PollScheduler = (*RecordingScheduler)(nil)

func (s *RecordingScheduler) Schedule(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ScheduleErr != nil {
		return s.ScheduleErr
	}
	s.scheduled = append(s.scheduled, orderID)
	return nil
}

func (s *RecordingScheduler) Cancel(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, orderID)
}

func (s *RecordingScheduler) Scheduled() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.scheduled)
}

func (s *RecordingScheduler) Cancelled() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cancelled)
}
