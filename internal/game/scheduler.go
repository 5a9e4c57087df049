package game

import (
	"sort"
	"time"
)

// TaskID identifies a scheduled continuation.
type TaskID int

type task struct {
	id  TaskID
	due time.Duration
	fn  func()
}

// Scheduler runs deferred continuations on the session clock. The clock only moves
// when Advance is called, so continuations never run concurrently with a frame.
type Scheduler struct {
	now    time.Duration
	nextID TaskID
	tasks  []task
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current session time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// After schedules fn to run once d has elapsed on the session clock.
func (s *Scheduler) After(d time.Duration, fn func()) TaskID {
	if d < 0 {
		d = 0
	}
	s.nextID++
	s.tasks = append(s.tasks, task{id: s.nextID, due: s.now + d, fn: fn})
	return s.nextID
}

// Cancel removes a pending task. It reports whether the task was still pending.
func (s *Scheduler) Cancel(id TaskID) bool {
	for i, t := range s.tasks {
		if t.id == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// CancelAll drops every pending task.
func (s *Scheduler) CancelAll() {
	s.tasks = nil
}

// Pending returns the number of tasks not yet run.
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}

// Advance moves the clock forward and runs due tasks in due order (ties by scheduling order).
// Tasks scheduled by a running task with zero delay run in the same call.
func (s *Scheduler) Advance(dt time.Duration) {
	if dt > 0 {
		s.now += dt
	}
	for {
		due := s.popDue()
		if due == nil {
			return
		}
		due.fn()
	}
}

func (s *Scheduler) popDue() *task {
	if len(s.tasks) == 0 {
		return nil
	}
	sort.SliceStable(s.tasks, func(i, j int) bool {
		return s.tasks[i].due < s.tasks[j].due
	})
	if s.tasks[0].due > s.now {
		return nil
	}
	t := s.tasks[0]
	s.tasks = s.tasks[1:]
	return &t
}
