package runtime

import (
	"sync"
	"time"
)

// taskKey identifies one pending task: who it belongs to (connection id,
// pair key, or a global owner) and what it is for.
type taskKey struct {
	Owner   string
	Purpose string
}

// pendingTask pairs a live timer with the callback it will post, so a
// task can be cancelled or fired ahead of schedule by key.
type pendingTask struct {
	timer *time.Timer
	fn    func()
}

// Scheduler turns wall-clock timers into callbacks delivered on the
// coordinator goroutine. Scheduling the same (owner, purpose) again
// replaces the pending task, which is the reset semantic every per-entity
// timer in the system relies on (typing-stop, away-timeout, dm-expiry).
type Scheduler struct {
	mu      sync.Mutex
	tasks   map[taskKey]*pendingTask
	tickers []*time.Ticker
	run     chan func()
	done    chan struct{}
	stopped bool
}

func NewScheduler(buffer int) *Scheduler {
	return &Scheduler{
		tasks: make(map[taskKey]*pendingTask),
		run:   make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Tasks is the channel the coordinator drains; every fired timer arrives
// here as a callback to execute on the reactor goroutine.
func (s *Scheduler) Tasks() <-chan func() {
	return s.run
}

// Schedule arms (or re-arms) the task. A pending timer for the same key is
// cancelled first, never left to accumulate.
func (s *Scheduler) Schedule(owner, purpose string, d time.Duration, fn func()) {
	key := taskKey{Owner: owner, Purpose: purpose}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.tasks[key]; ok {
		prev.timer.Stop()
	}

	task := &pendingTask{fn: fn}
	task.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		// A replaced timer may still fire; only the current one counts.
		if s.tasks[key] != task {
			s.mu.Unlock()
			return
		}
		delete(s.tasks, key)
		s.mu.Unlock()
		s.post(fn)
	})
	s.tasks[key] = task
}

// Fire posts a pending task immediately, exactly as if its timer had
// elapsed. Reports whether the task existed.
func (s *Scheduler) Fire(owner, purpose string) bool {
	key := taskKey{Owner: owner, Purpose: purpose}
	s.mu.Lock()
	task, ok := s.tasks[key]
	if ok {
		task.timer.Stop()
		delete(s.tasks, key)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.post(task.fn)
	return true
}

// Cancel drops a pending task if present.
func (s *Scheduler) Cancel(owner, purpose string) {
	key := taskKey{Owner: owner, Purpose: purpose}
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[key]; ok {
		task.timer.Stop()
		delete(s.tasks, key)
	}
}

// CancelOwner drops every pending task for an owner. Called on disconnect
// so no timer outlives its connection.
func (s *Scheduler) CancelOwner(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, task := range s.tasks {
		if key.Owner == owner {
			task.timer.Stop()
			delete(s.tasks, key)
		}
	}
}

// Every posts fn on each tick until Stop. Used for the global sweeps
// (silence, mood decay, ghost fade).
func (s *Scheduler) Every(interval time.Duration, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ticker := time.NewTicker(interval)
	s.tickers = append(s.tickers, ticker)
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.post(fn)
			}
		}
	}()
}

// Stop cancels everything outstanding. Pending callbacks that already
// fired but were not yet drained are discarded with the channel.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	for key, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, key)
	}
	for _, ticker := range s.tickers {
		ticker.Stop()
	}
}

func (s *Scheduler) post(fn func()) {
	select {
	case s.run <- fn:
	case <-s.done:
	}
}

// Pending reports whether a task is armed, for tests and introspection.
func (s *Scheduler) Pending(owner, purpose string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[taskKey{Owner: owner, Purpose: purpose}]
	return ok
}
