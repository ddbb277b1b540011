package core

import (
	"container/heap"
	"sync"
	"time"
)

// Cancel stops a scheduled task. Calling it more than once is safe.
type Cancel func()

// Scheduler runs deferred and periodic tasks.
type Scheduler interface {
	Now() time.Time
	// AfterFunc runs f once after d.
	AfterFunc(d time.Duration, f func()) Cancel
	// Every runs f every period until cancelled.
	Every(period time.Duration, f func()) Cancel
}

// RealScheduler schedules tasks on the wall clock.
type RealScheduler struct{}

func (RealScheduler) Now() time.Time {
	return time.Now()
}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

func (RealScheduler) Every(period time.Duration, f func()) Cancel {
	ticker := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualScheduler is a virtual clock. Time only moves on Advance, which runs
// due tasks synchronously in deadline order on the calling goroutine.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks taskQueue
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

type task struct {
	at        time.Time
	seq       int
	period    time.Duration
	f         func()
	cancelled bool
	index     int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Cancel {
	return s.schedule(d, 0, f)
}

func (s *ManualScheduler) Every(period time.Duration, f func()) Cancel {
	return s.schedule(period, period, f)
}

func (s *ManualScheduler) schedule(d, period time.Duration, f func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &task{at: s.now.Add(d), seq: s.seq, period: period, f: f}
	heap.Push(&s.tasks, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.cancelled {
			return
		}
		t.cancelled = true
		if t.index >= 0 {
			heap.Remove(&s.tasks, t.index)
		}
	}
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by running tasks are honoured if they fall within the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		if len(s.tasks) == 0 || s.tasks[0].at.After(target) {
			break
		}
		t := heap.Pop(&s.tasks).(*task)
		s.now = t.at
		if t.period > 0 {
			s.seq++
			t.at = t.at.Add(t.period)
			t.seq = s.seq
			heap.Push(&s.tasks, t)
		} else {
			t.cancelled = true
		}
		s.mu.Unlock()
		t.f()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

// Pending returns the number of scheduled tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
